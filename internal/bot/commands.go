// Package bot – command handlers
//
// This file implements the text commands: start and help, pulling parties
// (explicit /party and implicit @mentions with suggestion prompts), the
// party mutations, rude mode and feedback forwarding.
package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/pull-party-bot/internal/parse"
	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/services"
)

func (r *Router) start(ctx context.Context, m platform.Message) error {
	r.reply(ctx, m.Chat.ID, "start")
	return nil
}

func (r *Router) help(ctx context.Context, m platform.Message) error {
	args := parse.Args(m.Args)
	if len(args) == 0 {
		r.reply(ctx, m.Chat.ID, "help")
		return nil
	}
	if t, ok := r.text.Help(args[0]); ok {
		r.send(ctx, platform.OutMessage{ChatID: m.Chat.ID, Text: t, ParseMode: platform.ParseMarkdown})
		return nil
	}
	r.reply(ctx, m.Chat.ID, "help_error")
	return nil
}

// ---------------------------------------------------------------------------
// Pulling parties

// party serves /party: every argument is a party name.
func (r *Router) party(ctx context.Context, m platform.Message) error {
	args := parse.Args(m.Args)
	names := make([]string, 0, len(args))
	for _, a := range args {
		if n := parse.StripAt(a); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return r.fail(ctx, m.Chat.ID, "party", services.ErrEmptyArguments)
	}
	return r.pull(ctx, m, names, func() {
		key := "party_request_fails"
		if len(names) == 1 {
			key = "party_request_fail"
		}
		r.reply(ctx, m.Chat.ID, key)
	})
}

// implicit scans ordinary messages for @party mentions. Forwarded content is
// never scanned and misses are not reported, only offered as suggestions.
func (r *Router) implicit(ctx context.Context, m platform.Message) error {
	if m.Forwarded {
		return nil
	}
	body := m.Body()
	if body == "" {
		return nil
	}
	mentions := r.parties.Parser.Mentions(body)
	names := mentions[:0]
	for _, n := range mentions {
		if r.username != "" && strings.EqualFold(n, r.username) {
			continue
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil
	}
	return r.pull(ctx, m, names, nil)
}

// pull resolves names and answers with, in order: the union of members as a
// reply, the failure notice when some name stayed unresolved, and the
// suggestion prompt.
func (r *Router) pull(ctx context.Context, m platform.Message, names []string, onFailure func()) error {
	res, err := r.parties.Resolve(ctx, m.Chat, names)
	if err != nil {
		return r.fail(ctx, m.Chat.ID, "party", err)
	}
	observeResolution(res)

	if res.Unsupported {
		r.reply(ctx, m.Chat.ID, "admins_fail")
	}
	if res.FetchFailed {
		log.Warn().Int64("chat_id", m.Chat.ID).Msg("admins roster unavailable")
		r.reply(ctx, m.Chat.ID, "admins_fetch_fail")
	}
	if len(res.Members) > 0 {
		r.say(ctx, platform.OutMessage{
			ChatID:  m.Chat.ID,
			Text:    strings.Join(res.Members, " "),
			ReplyTo: m.ID,
		})
	}
	// The roster failure has its own notice; onFailure covers stored names.
	if len(res.Suggestions) < len(res.Misses) && onFailure != nil {
		onFailure()
	}
	if len(res.Suggestions) == 0 {
		return nil
	}

	rows := make([][]platform.Button, 0, len(res.Suggestions))
	for _, s := range res.Suggestions {
		rows = append(rows, []platform.Button{{
			Label: r.text.Get("misspell_button", s.Party.Name),
			Data:  s.Token,
		}})
	}
	r.send(ctx, platform.OutMessage{
		ChatID:    m.Chat.ID,
		Text:      r.text.Get("party_misspell"),
		ParseMode: platform.ParseMarkdown,
		Keyboard:  rows,
	})
	return nil
}

func observeResolution(res *services.Resolution) {
	resolutionsTotal.WithLabelValues("hit").Add(float64(res.Hits))
	resolutionsTotal.WithLabelValues("miss").Add(float64(len(res.Misses)))
	if res.Unsupported {
		resolutionsTotal.WithLabelValues("admins_unsupported").Inc()
	}
	if res.FetchFailed {
		resolutionsTotal.WithLabelValues("admins_failed").Inc()
	}
	if res.Failed() {
		resolutionsTotal.WithLabelValues("failed").Inc()
	}
	suggestionsTotal.Add(float64(len(res.Suggestions)))
}

// ---------------------------------------------------------------------------
// Mutations

// mutate serves create, change, add and remove.
func (r *Router) mutate(change services.Change) handlerFunc {
	op := change.String()
	return func(ctx context.Context, m platform.Message) error {
		res, err := r.parties.Mutate(ctx, m.Chat.ID, change, parse.Args(m.Args))
		if err != nil {
			return r.fail(ctx, m.Chat.ID, op, err)
		}
		for _, w := range res.Warnings {
			if errors.Is(w, services.ErrPartialHandleRejection) {
				r.reply(ctx, m.Chat.ID, "users_fail")
			}
		}
		key := op + "_success"
		if res.Deleted {
			key = "remove_deleted"
		}
		r.sayKey(ctx, m.Chat.ID, key, code(res.Name))
		return nil
	}
}

func (r *Router) alias(ctx context.Context, m platform.Message) error {
	args := parse.Args(m.Args)
	res, err := r.parties.Alias(ctx, m.Chat.ID, args)
	if err != nil {
		return r.fail(ctx, m.Chat.ID, "alias", err)
	}
	r.sayKey(ctx, m.Chat.ID, "alias_success", code(res.Name), code(parse.StripAt(args[1])))
	return nil
}

func (r *Router) delete(ctx context.Context, m platform.Message) error {
	outcomes, err := r.parties.Delete(ctx, m.Chat, senderID(m), parse.Args(m.Args))
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			r.reply(ctx, m.Chat.ID, errorKey("delete", o.Err))
		case o.Deleted:
			r.sayKey(ctx, m.Chat.ID, "delete_success", code(o.Name))
		default:
			r.sayKey(ctx, m.Chat.ID, "delete_missing", code(o.Name))
		}
	}
	if err != nil {
		return r.fail(ctx, m.Chat.ID, "delete", err)
	}
	return nil
}

func (r *Router) clear(ctx context.Context, m platform.Message) error {
	n, err := r.parties.Clear(ctx, m.Chat, senderID(m))
	if err != nil {
		return r.fail(ctx, m.Chat.ID, "clear", err)
	}
	log.Info().Int64("chat_id", m.Chat.ID).Int64("deleted", n).Msg("parties cleared")
	r.reply(ctx, m.Chat.ID, "clear_success")
	return nil
}

// senderID is zero for anonymous senders, who never pass the admin check.
func senderID(m platform.Message) int64 {
	if m.From == nil {
		return 0
	}
	return m.From.ID
}

// ---------------------------------------------------------------------------
// Settings and feedback

func (r *Router) rude(ctx context.Context, m platform.Message) error {
	args := parse.Args(m.Args)
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	on, changed, err := r.chats.SetRude(ctx, m.Chat.ID, arg)
	if err != nil {
		return r.fail(ctx, m.Chat.ID, "rude", err)
	}
	state, face := "off", "😇"
	if on {
		state, face = "on", "😈"
	}
	key := "rude_already"
	if changed {
		key = "rude_now"
	}
	r.sayKey(ctx, m.Chat.ID, key, state, face)
	return nil
}

func (r *Router) sendFeedback(ctx context.Context, m platform.Message) error {
	var from platform.User
	if m.From != nil {
		from = *m.From
	}
	out, err := r.feedback.Compose(from, m.Chat, m.Args)
	if err != nil {
		return r.fail(ctx, m.Chat.ID, "feedback", err)
	}
	if _, err := r.client.SendMessage(ctx, out); err != nil {
		r.reply(ctx, m.Chat.ID, "internal_error")
		return err
	}
	r.reply(ctx, m.Chat.ID, "feedback_success")
	return nil
}
