// Package bot – Router
//
// This file implements the Router, which owns the command table, maps service
// errors to reply templates and applies rude-mode casing to outgoing text.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/services"
	"github.com/tbourn/pull-party-bot/internal/templates"
)

// DefaultMessageLimit is the platform's maximum message length in runes.
const DefaultMessageLimit = 4096

// handlerFunc serves one command message.
type handlerFunc func(ctx context.Context, m platform.Message) error

type command struct {
	name        string
	description string
	run         handlerFunc
}

// Router dispatches updates to command handlers, the implicit mention scanner
// and the suggestion callback handler. It holds no per-update state and is
// safe for concurrent use.
type Router struct {
	client   platform.Client
	parties  *services.PartyService
	chats    *services.ChatService
	feedback *services.FeedbackService
	text     *templates.Set

	username     string
	messageLimit int
	ackTimeout   time.Duration

	commands []command
	byName   map[string]command
}

// Option configures a Router.
type Option func(*Router)

// WithUsername sets the bot's own handle so implicit mentions of the bot are
// ignored.
func WithUsername(name string) Option {
	return func(r *Router) { r.username = strings.TrimPrefix(name, "@") }
}

// WithMessageLimit sets the maximum rune length of a single outgoing message.
func WithMessageLimit(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.messageLimit = n
		}
	}
}

// WithFeedback enables /feedback forwarding.
func WithFeedback(f *services.FeedbackService) Option {
	return func(r *Router) { r.feedback = f }
}

// NewRouter builds a Router. text defaults to the embedded templates when nil.
func NewRouter(client platform.Client, parties *services.PartyService, chats *services.ChatService, text *templates.Set, opts ...Option) *Router {
	if text == nil {
		text = templates.Default()
	}
	r := &Router{
		client:       client,
		parties:      parties,
		chats:        chats,
		text:         text,
		messageLimit: DefaultMessageLimit,
		ackTimeout:   10 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}

	r.commands = []command{
		{"start", "awake the bot", r.start},
		{"help", "show this usage guide", r.help},
		{"list", "show the parties of the chat", r.list},
		{"party", "tag the members of existing parties", r.party},
		{"create", "create new party", r.mutate(services.ChangeCreate)},
		{"change", "change an existing party", r.mutate(services.ChangeReplace)},
		{"add", "add new users to the given party", r.mutate(services.ChangeAdd)},
		{"remove", "remove given users from the provided party", r.mutate(services.ChangeRemove)},
		{"alias", "give an existing party another name", r.alias},
		{"delete", "forget the parties as they have never happened", r.delete},
		{"clear", "shut down all the parties ever existed", r.clear},
		{"rude", "switch RUDE(CAPS LOCK) mode", r.rude},
	}
	if r.feedback.Enabled() {
		r.commands = append(r.commands, command{"feedback", "share your ideas and experience with developers", r.sendFeedback})
	}
	r.byName = make(map[string]command, len(r.commands))
	for _, c := range r.commands {
		r.byName[c.name] = c
	}
	return r
}

// Commands lists the registered commands for the platform's command menu.
func (r *Router) Commands() []platform.Command {
	out := make([]platform.Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, platform.Command{Name: c.name, Description: c.description})
	}
	return out
}

// Handle routes one update. Errors returned are unexpected failures (storage,
// transport); expected outcomes are reported to the chat and return nil.
func (r *Router) Handle(ctx context.Context, u platform.Update) error {
	switch {
	case u.Callback != nil:
		updatesTotal.WithLabelValues("callback", "").Inc()
		return r.onCallback(ctx, u.Callback)
	case u.Message != nil:
		m := *u.Message
		if c, ok := r.byName[m.Command]; ok {
			updatesTotal.WithLabelValues("command", c.name).Inc()
			return c.run(ctx, m)
		}
		updatesTotal.WithLabelValues("message", "").Inc()
		return r.implicit(ctx, m)
	default:
		updatesTotal.WithLabelValues("other", "").Inc()
		return nil
	}
}

// ---------------------------------------------------------------------------
// Sending

// isRude looks up the chat's casing mode; lookup failures fall back to normal.
func (r *Router) isRude(ctx context.Context, chatID int64) bool {
	rude, err := r.chats.IsRude(ctx, chatID)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("rude lookup failed")
		return false
	}
	return rude
}

// send delivers a message and logs delivery failures. Delivery problems are
// not returned: the update has been served either way.
func (r *Router) send(ctx context.Context, msg platform.OutMessage) {
	if _, err := r.client.SendMessage(ctx, msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("send message failed")
	}
}

// render expands a template. A missing key is logged and rendered as the key.
func (r *Router) render(key string, args ...any) string {
	if !r.text.Has(key) {
		log.Error().Str("template", key).Msg("missing reply template")
	}
	return r.text.Get(key, args...)
}

// reply sends a static template as Markdown.
func (r *Router) reply(ctx context.Context, chatID int64, key string, args ...any) {
	r.send(ctx, platform.OutMessage{
		ChatID:    chatID,
		Text:      r.render(key, args...),
		ParseMode: platform.ParseMarkdown,
	})
}

// say sends dynamic text, upper-cased in rude chats.
func (r *Router) say(ctx context.Context, msg platform.OutMessage) {
	if r.isRude(ctx, msg.ChatID) {
		msg.Text = shout(msg.Text)
	}
	r.send(ctx, msg)
}

// sayKey renders a template and sends it as dynamic Markdown text.
func (r *Router) sayKey(ctx context.Context, chatID int64, key string, args ...any) {
	r.say(ctx, platform.OutMessage{
		ChatID:    chatID,
		Text:      r.render(key, args...),
		ParseMode: platform.ParseMarkdown,
	})
}

// shout upper-cases s. A Caser is stateful, so one is built per call.
func shout(s string) string {
	return cases.Upper(language.Und).String(s)
}

// code renders a party name as inline code. Names never contain backticks.
func code(name string) string { return "`" + name + "`" }

// fail reports err to the chat. Known service errors map to templates and are
// absorbed; anything else gets the generic template and is returned.
func (r *Router) fail(ctx context.Context, chatID int64, op string, err error) error {
	key := errorKey(op, err)
	if key == "" {
		r.reply(ctx, chatID, "internal_error")
		return err
	}
	r.reply(ctx, chatID, key)
	return nil
}

// errorKey maps a service error raised by op to a template key, or "" when
// the error is unexpected.
func errorKey(op string, err error) string {
	switch {
	case errors.Is(err, services.ErrEmptyArguments):
		switch op {
		case "create":
			return "create_empty"
		case "change", "add", "remove":
			return "change_empty"
		case "alias":
			return "alias_empty"
		case "party":
			return "party_empty"
		case "delete":
			return "delete_empty"
		case "feedback":
			return "feedback_empty"
		}
		return "help_error"
	case errors.Is(err, services.ErrInvalidArgument):
		switch op {
		case "rude":
			return "rude_fail"
		case "alias":
			return "alias_empty"
		}
		return "help_error"
	case errors.Is(err, services.ErrInvalidName):
		return "name_fail"
	case errors.Is(err, services.ErrReservedName):
		return "reserved"
	case errors.Is(err, services.ErrNotFound):
		return "change_missing"
	case errors.Is(err, services.ErrAlreadyExists):
		return "create_exists"
	case errors.Is(err, services.ErrSingletonParty):
		return "singleton"
	case errors.Is(err, services.ErrPartialHandleRejection):
		return "users_fail"
	case errors.Is(err, services.ErrPermissionDenied):
		return "permission_deny"
	case errors.Is(err, services.ErrExternalFetchFailure):
		return "sender_fail"
	case errors.Is(err, services.ErrUnsupportedChatKind):
		return "admins_fail"
	case errors.Is(err, services.ErrRateLimited):
		return "feedback_limited"
	default:
		return ""
	}
}
