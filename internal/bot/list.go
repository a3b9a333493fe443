// Package bot – /list rendering
//
// This file renders the chat's parties grouped by identical member sets as a
// small tree, and splits long output into platform-sized messages.
package bot

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/pull-party-bot/internal/parse"
	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/services"
)

// list serves /list. A group chat with stored parties also shows the live
// admins pseudo-party first; with no parties the chat gets the empty notice.
func (r *Router) list(ctx context.Context, m platform.Message) error {
	args := parse.Args(m.Args)
	groups, err := r.parties.Groups(ctx, m.Chat.ID, args)
	if err != nil {
		return r.fail(ctx, m.Chat.ID, "list", err)
	}
	if len(groups) == 0 {
		key := "list_empty"
		if len(args) > 0 {
			key = "list_args_empty"
		}
		r.reply(ctx, m.Chat.ID, key)
		return nil
	}

	var lines []string
	if len(args) == 0 && m.Chat.Kind.IsGroup() {
		admins, err := r.parties.AdminMembers(ctx, m.Chat)
		switch {
		case err == nil && len(admins) > 0:
			lines = append(lines, memberLine(admins), branch(r.text.Get("list_admins"), true))
		case err != nil && !errors.Is(err, services.ErrExternalFetchFailure):
			return r.fail(ctx, m.Chat.ID, "list", err)
		case err != nil:
			log.Warn().Err(err).Int64("chat_id", m.Chat.ID).Msg("admins roster unavailable for list")
		}
	}
	lines = append(lines, renderGroups(groups)...)

	header := "list_success"
	if len(args) > 0 {
		header = "list_args_success"
	}
	rude := r.isRude(ctx, m.Chat.ID)
	for _, chunk := range chunkLines(r.text.Get(header), lines, r.messageLimit) {
		if rude {
			chunk = shout(chunk)
		}
		r.send(ctx, platform.OutMessage{ChatID: m.Chat.ID, Text: chunk, ParseMode: platform.ParseMarkdown})
	}
	return nil
}

// renderGroups renders each group as a member line followed by one tree
// branch per name:
//
//	- alice1 bobby2
//	  ├── `crew`
//	  └── `team`
func renderGroups(groups []services.Group) []string {
	var lines []string
	for _, g := range groups {
		lines = append(lines, memberLine(g.Members))
		for i, n := range g.Names {
			lines = append(lines, branch(code(n), i == len(g.Names)-1))
		}
	}
	return lines
}

func memberLine(members []string) string {
	plain := make([]string, 0, len(members))
	for _, m := range members {
		plain = append(plain, escapeMarkdown(parse.StripAt(m)))
	}
	return "- " + strings.Join(plain, " ")
}

func branch(label string, last bool) string {
	if last {
		return "  └── " + label
	}
	return "  ├── " + label
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// escapeMarkdown escapes the legacy Markdown entity markers.
func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// chunkLines joins header and lines into messages of at most limit runes,
// splitting only between lines. The header always shares a message with the
// first line. A single line longer than limit is sent on its own and left to
// the platform.
func chunkLines(header string, lines []string, limit int) []string {
	var (
		out  []string
		cur  strings.Builder
		size int
	)
	cur.WriteString(header)
	size = utf8.RuneCountInString(header)
	fresh := true // no line written into cur yet

	for _, l := range lines {
		n := utf8.RuneCountInString(l)
		sep := 0
		if !fresh {
			sep = 1
		}
		if limit > 0 && !fresh && size+sep+n > limit {
			out = append(out, cur.String())
			cur.Reset()
			size, sep = 0, 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(l)
		size += sep + n
		fresh = false
	}
	if size > 0 {
		out = append(out, cur.String())
	}
	return out
}
