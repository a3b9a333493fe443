// Package services – PartyService
//
// This file implements PartyService, which owns the party directory rules:
// resolving names to members (including the live admins pseudo-party),
// proposing suggestions for misses, and validating every mutation before it
// reaches the store.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the chat id and, where applicable, the operation name.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/pull-party-bot/internal/callback"
	"github.com/tbourn/pull-party-bot/internal/domain"
	"github.com/tbourn/pull-party-bot/internal/parse"
	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/repo"
	"github.com/tbourn/pull-party-bot/internal/suggest"
)

// AdminsParty is the reserved name of the live administrator pseudo-party.
const AdminsParty = "admins"

// AdminSource fetches a chat's administrator roster.
type AdminSource interface {
	GetAdministrators(ctx context.Context, chatID int64) ([]platform.Administrator, error)
}

// PartyService coordinates party resolution and mutations.
type PartyService struct {
	DB      *gorm.DB
	Repo    PartyRepo
	Admins  AdminSource
	Parser  *parse.Parser
	Suggest *suggest.Engine

	// AdminTimeout bounds a single roster fetch; zero leaves it to the caller's ctx.
	AdminTimeout time.Duration
	// ReceiptTTL is how long an answered prompt stays protected against replays.
	ReceiptTTL time.Duration

	Now func() time.Time
}

// NewPartyService constructs a PartyService with default parser and
// suggestion settings.
func NewPartyService(db *gorm.DB, r PartyRepo, admins AdminSource) *PartyService {
	return &PartyService{
		DB:           db,
		Repo:         r,
		Admins:       admins,
		Parser:       parse.New(""),
		Suggest:      suggest.New(),
		AdminTimeout: 5 * time.Second,
		ReceiptTTL:   48 * time.Hour,
		Now:          time.Now,
	}
}

func (s *PartyService) tracer() trace.Tracer { return otel.Tracer("services/PartyService") }

func (s *PartyService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ---------------------------------------------------------------------------
// Administrators

// administrators fetches the roster with a bounded wait.
func (s *PartyService) administrators(ctx context.Context, chatID int64) ([]platform.Administrator, error) {
	if s.Admins == nil {
		return nil, ErrExternalFetchFailure
	}
	if s.AdminTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AdminTimeout)
		defer cancel()
	}
	list, err := s.Admins.GetAdministrators(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalFetchFailure, err)
	}
	return list, nil
}

// RequireAdmin returns nil when userID administers chat. Non-group chats and
// non-administrators get ErrPermissionDenied; a failed roster fetch yields
// ErrExternalFetchFailure.
func (s *PartyService) RequireAdmin(ctx context.Context, chat platform.Chat, userID int64) error {
	if !chat.Kind.IsGroup() {
		return ErrPermissionDenied
	}
	list, err := s.administrators(ctx, chat.ID)
	if err != nil {
		return err
	}
	for _, a := range list {
		if a.UserID == userID {
			return nil
		}
	}
	return ErrPermissionDenied
}

// adminHandles renders the roster as "@handle" tokens, skipping accounts
// without a username and those whose name ends in "bot".
func adminHandles(list []platform.Administrator) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a.Username == "" || strings.HasSuffix(strings.ToLower(a.Username), "bot") {
			continue
		}
		out = append(out, "@"+a.Username)
	}
	return out
}

// AdminMembers returns the live admins pseudo-party of a group chat as
// "@handle" tokens.
func (s *PartyService) AdminMembers(ctx context.Context, chat platform.Chat) ([]string, error) {
	if !chat.Kind.IsGroup() {
		return nil, ErrUnsupportedChatKind
	}
	list, err := s.administrators(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return adminHandles(list), nil
}

// ---------------------------------------------------------------------------
// Resolution

// Suggestion is a proposed cleanup of a stale reference: a party close to a
// miss, bound to a delete intent by an encoded callback token.
type Suggestion struct {
	Miss   string
	Party  domain.Party
	Action callback.Action
	Token  string
}

// Resolution is the outcome of resolving one batch of names.
type Resolution struct {
	// Members is the union of every resolved member set in first-seen order.
	Members []string
	// Hits counts requested names that produced members.
	Hits int
	// Misses are the names that matched no stored party.
	Misses []string
	// Suggestions has at most one entry per miss.
	Suggestions []Suggestion
	// Unsupported is set when admins was requested outside a group chat.
	Unsupported bool
	// FetchFailed is set when the admins roster could not be fetched.
	FetchFailed bool
}

// Failed reports whether some request has neither members nor a suggestion.
// A failed roster fetch counts as a miss that never gets a suggestion.
func (r *Resolution) Failed() bool {
	unresolved := len(r.Misses)
	if r.FetchFailed {
		unresolved++
	}
	return len(r.Suggestions) < unresolved
}

// Resolve maps names to members for chat. Names are matched
// case-insensitively and each distinct name is resolved once. Every named hit
// refreshes the party's last-use time.
func (s *PartyService) Resolve(ctx context.Context, chat platform.Chat, names []string) (*Resolution, error) {
	ctx, span := s.tracer().Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.Int64("chat.id", chat.ID),
			attribute.Int("names", len(names)),
		),
	)
	defer span.End()

	res := &Resolution{}
	seenName := make(map[string]struct{}, len(names))
	seenMember := make(map[string]struct{})
	addMembers := func(ms []string) {
		for _, m := range ms {
			key := strings.ToLower(m)
			if _, ok := seenMember[key]; ok {
				continue
			}
			seenMember[key] = struct{}{}
			res.Members = append(res.Members, m)
		}
	}

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, ok := seenName[name]; ok {
			continue
		}
		seenName[name] = struct{}{}

		if name == AdminsParty {
			if !chat.Kind.IsGroup() {
				res.Unsupported = true
				continue
			}
			list, err := s.administrators(ctx, chat.ID)
			if err != nil {
				span.RecordError(err)
				res.FetchFailed = true
				continue
			}
			res.Hits++
			addMembers(adminHandles(list))
			continue
		}

		p, err := s.Repo.GetParty(ctx, s.DB, chat.ID, name)
		if errors.Is(err, repo.ErrNotFound) {
			res.Misses = append(res.Misses, name)
			continue
		}
		if err != nil {
			return nil, err
		}
		res.Hits++
		addMembers(p.Members())
		if err := s.Repo.TouchParty(ctx, s.DB, p.ID, s.now()); err != nil {
			return nil, err
		}
	}

	if len(res.Misses) > 0 {
		sugg, err := s.suggestions(ctx, chat.ID, res.Misses)
		if err != nil {
			return nil, err
		}
		res.Suggestions = sugg
	}
	span.SetAttributes(
		attribute.Int("members", len(res.Members)),
		attribute.Int("misses", len(res.Misses)),
		attribute.Int("suggestions", len(res.Suggestions)),
	)
	return res, nil
}

// suggestions ranks the chat's parties against misses. A party whose member
// set is shared with other rows is offered as a single alias to remove;
// otherwise the whole party is offered.
func (s *PartyService) suggestions(ctx context.Context, chatID int64, misses []string) ([]Suggestion, error) {
	parties, err := s.Repo.ListParties(ctx, s.DB, chatID)
	if err != nil {
		return nil, err
	}
	shared := make(map[string]int, len(parties))
	for _, p := range parties {
		shared[p.Users]++
	}

	ranked := s.Suggest.Suggest(misses, parties)
	out := make([]Suggestion, 0, len(ranked))
	for _, r := range ranked {
		action := callback.ActionDeleteParty
		if shared[r.Party.Users] > 1 {
			action = callback.ActionDeleteAlias
		}
		tok, err := callback.Encode(callback.Data{Action: action, PartyID: r.Party.ID})
		if err != nil {
			return nil, err
		}
		out = append(out, Suggestion{Miss: r.Miss, Party: r.Party, Action: action, Token: tok})
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Mutations

// Change selects a name-bearing mutation.
type Change int

const (
	ChangeCreate Change = iota
	ChangeReplace
	ChangeAdd
	ChangeRemove
)

// String returns the command name of c.
func (c Change) String() string {
	switch c {
	case ChangeCreate:
		return "create"
	case ChangeReplace:
		return "change"
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	default:
		return fmt.Sprintf("change(%d)", int(c))
	}
}

// replacesAll reports whether c defines the whole member set.
func (c Change) replacesAll() bool { return c == ChangeCreate || c == ChangeReplace }

// MutationResult describes an applied mutation.
type MutationResult struct {
	// Name is the party name as typed, without '@'.
	Name string
	// Party is the stored row after the write; nil when Deleted.
	Party *domain.Party
	// Deleted is set when remove emptied the party.
	Deleted bool
	// Warnings carries non-fatal notices such as ErrPartialHandleRejection.
	Warnings []error
}

// validName strips a leading '@' and applies the name rules shared by every
// name-bearing command.
func (s *PartyService) validName(arg string) (string, error) {
	name := parse.StripAt(arg)
	if !s.Parser.ValidName(name) {
		return "", ErrInvalidName
	}
	if domain.NameKey(name) == AdminsParty {
		return "", ErrReservedName
	}
	return name, nil
}

// Mutate applies create, change, add or remove. args is the distinct argument
// list: a party name followed by member handles.
//
// Checks run in order: arity, name syntax, reserved name, existence, handle
// syntax, singleton. A rejected operation leaves the store untouched. When
// some handles are malformed but at least one remains, the result carries
// ErrPartialHandleRejection as a warning; the error value is reserved for
// rejections. The existence check and the write share one transaction.
func (s *PartyService) Mutate(ctx context.Context, chatID int64, change Change, args []string) (*MutationResult, error) {
	ctx, span := s.tracer().Start(ctx, "Mutate",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.String("op", change.String()),
		),
	)
	defer span.End()

	if len(args) < 2 {
		return nil, ErrEmptyArguments
	}
	name, err := s.validName(args[0])
	if err != nil {
		return nil, err
	}

	var res *MutationResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.Repo.GetParty(ctx, tx, chatID, name)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			existing = nil
		case err != nil:
			return err
		}
		if change == ChangeCreate && existing != nil {
			return ErrAlreadyExists
		}
		if change != ChangeCreate && existing == nil {
			return ErrNotFound
		}

		handles, requested := parse.Handles(args[1:])
		if len(handles) == 0 {
			return ErrEmptyArguments
		}
		if change.replacesAll() && len(handles) == 1 && strings.EqualFold(parse.StripAt(handles[0]), name) {
			return ErrSingletonParty
		}

		res = &MutationResult{Name: name}
		if len(handles) < requested {
			res.Warnings = append(res.Warnings, ErrPartialHandleRejection)
		}

		switch change {
		case ChangeCreate:
			p, err := s.Repo.CreateParty(ctx, tx, chatID, name, handles)
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrAlreadyExists
			}
			res.Party = p
			return err
		case ChangeReplace:
			res.Party, err = s.Repo.UpsertParty(ctx, tx, chatID, existing.Name, handles)
			return err
		case ChangeAdd:
			res.Party, err = s.Repo.UpsertParty(ctx, tx, chatID, existing.Name, union(existing.Members(), handles))
			return err
		case ChangeRemove:
			left := subtract(existing.Members(), handles)
			if len(left) == 0 {
				res.Deleted = true
				_, err := s.Repo.DeletePartyByName(ctx, tx, chatID, existing.Name)
				return err
			}
			res.Party, err = s.Repo.UpsertParty(ctx, tx, chatID, existing.Name, left)
			return err
		default:
			return fmt.Errorf("unknown change %d", int(change))
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Alias creates a new party named args[0] with the members of the existing
// party args[1].
func (s *PartyService) Alias(ctx context.Context, chatID int64, args []string) (*MutationResult, error) {
	ctx, span := s.tracer().Start(ctx, "Alias",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	switch {
	case len(args) < 2:
		return nil, ErrEmptyArguments
	case len(args) > 2:
		return nil, ErrInvalidArgument
	}
	name, err := s.validName(args[0])
	if err != nil {
		return nil, err
	}
	target := parse.StripAt(args[1])
	if domain.NameKey(target) == AdminsParty {
		return nil, ErrReservedName
	}

	var res *MutationResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := s.Repo.GetParty(ctx, tx, chatID, target)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		p, err := s.Repo.CreateParty(ctx, tx, chatID, name, src.Members())
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrAlreadyExists
		}
		if err != nil {
			return err
		}
		res = &MutationResult{Name: name, Party: p}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteOutcome reports the result of deleting one requested name.
type DeleteOutcome struct {
	Name    string
	Deleted bool
	// Err is ErrReservedName for the admins pseudo-party.
	Err error
}

// Delete removes the named parties after checking that userID administers
// chat. Each name is handled independently.
func (s *PartyService) Delete(ctx context.Context, chat platform.Chat, userID int64, names []string) ([]DeleteOutcome, error) {
	ctx, span := s.tracer().Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.Int64("chat.id", chat.ID),
			attribute.Int("names", len(names)),
		),
	)
	defer span.End()

	if err := s.RequireAdmin(ctx, chat, userID); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrEmptyArguments
	}

	out := make([]DeleteOutcome, 0, len(names))
	for _, raw := range names {
		name := parse.StripAt(raw)
		if name == "" {
			continue
		}
		if domain.NameKey(name) == AdminsParty {
			out = append(out, DeleteOutcome{Name: name, Err: ErrReservedName})
			continue
		}
		ok, err := s.Repo.DeletePartyByName(ctx, s.DB, chat.ID, name)
		if err != nil {
			return out, err
		}
		out = append(out, DeleteOutcome{Name: name, Deleted: ok})
	}
	return out, nil
}

// Clear removes every party of chat after the administrator check.
func (s *PartyService) Clear(ctx context.Context, chat platform.Chat, userID int64) (int64, error) {
	ctx, span := s.tracer().Start(ctx, "Clear",
		trace.WithAttributes(attribute.Int64("chat.id", chat.ID)),
	)
	defer span.End()

	if err := s.RequireAdmin(ctx, chat, userID); err != nil {
		return 0, err
	}
	return s.Repo.DeleteAllParties(ctx, s.DB, chat.ID)
}

// union appends the handles of add that are not in base, case-insensitively.
func union(base, add []string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, h := range list {
			key := strings.ToLower(h)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// subtract returns base without the handles in drop, case-insensitively.
func subtract(base, drop []string) []string {
	gone := make(map[string]struct{}, len(drop))
	for _, h := range drop {
		gone[strings.ToLower(h)] = struct{}{}
	}
	out := make([]string, 0, len(base))
	for _, h := range base {
		if _, ok := gone[strings.ToLower(h)]; !ok {
			out = append(out, h)
		}
	}
	return out
}
