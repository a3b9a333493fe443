// Package bot – suggestion button presses
//
// This file answers presses on suggestion prompts and retracts the prompt.
package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/pull-party-bot/internal/callback"
	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/services"
)

// onCallback serves a press on a suggestion button. Whatever happens, the
// prompt is retracted and the query is answered exactly once; both run on a
// context detached from the update deadline.
func (r *Router) onCallback(ctx context.Context, q *platform.CallbackQuery) error {
	var (
		notice  string
		outcome = "error"
	)
	defer func() {
		callbacksTotal.WithLabelValues(outcome).Inc()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.ackTimeout)
		defer cancel()
		if q.Message != nil {
			if derr := r.client.DeleteMessage(actx, q.Message.Chat.ID, q.Message.ID); derr != nil {
				log.Debug().Err(derr).Int64("chat_id", q.Message.Chat.ID).Int("message_id", q.Message.ID).Msg("retract prompt failed")
			}
		}
		if aerr := r.client.AnswerCallback(actx, q.ID, notice); aerr != nil {
			log.Warn().Err(aerr).Str("callback_id", q.ID).Msg("answer callback failed")
		}
	}()

	if q.Message == nil {
		outcome = "unavailable"
		return nil
	}

	res, err := r.parties.ApplySuggestion(ctx, q.Message.Chat, q.From.ID, q.Message.ID, q.Data)
	switch {
	case errors.Is(err, services.ErrDecodeFailure):
		outcome = "decode_failed"
		log.Debug().Err(err).Int64("chat_id", q.Message.Chat.ID).Msg("ignoring malformed callback")
		return nil
	case errors.Is(err, services.ErrPermissionDenied):
		outcome = "denied"
		notice = r.text.Get("permission_deny_callback")
		return nil
	case errors.Is(err, services.ErrExternalFetchFailure):
		outcome = "sender_fail"
		notice = r.text.Get("sender_fail_callback")
		return nil
	case err != nil:
		return err
	case res.Replayed:
		outcome = "replayed"
		return nil
	case len(res.Deleted) == 0:
		outcome = "noop"
		return nil
	}

	outcome = res.Action.String()
	names := make([]string, 0, len(res.Deleted))
	for _, p := range res.Deleted {
		names = append(names, p.Name)
	}
	key := "callback_party_deleted"
	if res.Action == callback.ActionDeleteAlias {
		key = "callback_alias_deleted"
	}
	notice = r.text.Get(key, strings.Join(names, ", "))
	log.Info().
		Int64("chat_id", q.Message.Chat.ID).
		Str("action", res.Action.String()).
		Strs("parties", names).
		Msg("suggestion applied")
	return nil
}
