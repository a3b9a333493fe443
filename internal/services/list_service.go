// Package services – listing
//
// This file implements the read side of the party directory: grouping parties
// by member set for /list, and paging plus change stats for the HTTP API.
package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/pull-party-bot/internal/domain"
	"github.com/tbourn/pull-party-bot/internal/parse"
	"github.com/tbourn/pull-party-bot/internal/repo"
)

// Group is a set of party names sharing one member list.
type Group struct {
	Members []string
	Names   []string
}

// Groups returns the chat's parties grouped by identical member lists.
// Groups are ordered by their smallest name and names inside a group are
// ordered case-insensitively. With filters, only parties whose name equals a
// filter or whose members include a filter handle are kept.
func (s *PartyService) Groups(ctx context.Context, chatID int64, filters []string) ([]Group, error) {
	ctx, span := s.tracer().Start(ctx, "Groups",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.Int("filters", len(filters)),
		),
	)
	defer span.End()

	parties, err := s.Repo.ListParties(ctx, s.DB, chatID)
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		parties = filterParties(parties, filters)
	}
	return groupParties(parties), nil
}

// ListPage returns one page of a chat's parties, ordered by name, and the
// chat's total party count. page is 1-based.
func (s *PartyService) ListPage(ctx context.Context, chatID int64, page, pageSize int) ([]domain.Party, int64, error) {
	ctx, span := s.tracer().Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	total, err := repo.CountParties(ctx, s.DB, chatID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListPartiesPage(ctx, s.DB, chatID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Stats returns the party count and latest change time for a chat, used to
// build conditional responses.
func (s *PartyService) Stats(ctx context.Context, chatID int64) (int64, *time.Time, error) {
	return repo.PartiesStats(ctx, s.DB, chatID)
}

func filterParties(parties []domain.Party, filters []string) []domain.Party {
	want := make(map[string]struct{}, len(filters))
	for _, f := range filters {
		want[strings.ToLower(parse.StripAt(f))] = struct{}{}
	}
	out := parties[:0:0]
	for _, p := range parties {
		if _, ok := want[p.NameKey]; ok {
			out = append(out, p)
			continue
		}
		for _, m := range p.Members() {
			if _, ok := want[strings.ToLower(parse.StripAt(m))]; ok {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func groupParties(parties []domain.Party) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, p := range parties {
		i, ok := index[p.Users]
		if !ok {
			i = len(groups)
			index[p.Users] = i
			groups = append(groups, Group{Members: p.Members()})
		}
		groups[i].Names = append(groups[i].Names, p.Name)
	}
	for i := range groups {
		sort.SliceStable(groups[i].Names, func(a, b int) bool {
			return lessName(groups[i].Names[a], groups[i].Names[b])
		})
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return lessName(groups[a].Names[0], groups[b].Names[0])
	})
	return groups
}

// lessName orders case-insensitively, then by raw bytes for stability.
func lessName(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
