// Package platform describes the chat-platform surface the bot depends on:
// neutral update types and the narrow Client interface. Adapters such as
// platform/telegram translate a concrete API into these types.
package platform

import "context"

// ChatKind is the platform chat type.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// IsGroup reports whether the chat has an administrator roster.
func (k ChatKind) IsGroup() bool {
	return k == ChatGroup || k == ChatSupergroup
}

// Chat identifies where an update happened.
type Chat struct {
	ID    int64
	Kind  ChatKind
	Title string
}

// User is the sender of a message or callback.
type User struct {
	ID       int64
	Username string
	IsBot    bool
}

// Message is an inbound chat message. Command and Args are set when the text
// is a bot command; Command has no leading slash or @bot suffix.
type Message struct {
	ID        int
	Chat      Chat
	From      *User
	Text      string
	Caption   string
	Forwarded bool
	Command   string
	Args      string
}

// Body returns the text of the message, falling back to the caption.
func (m Message) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// CallbackQuery is a press on an inline button. Message is nil when the
// originating message is no longer available.
type CallbackQuery struct {
	ID      string
	From    User
	Message *Message
	Data    string
}

// Update is one unit of inbound work. Exactly one of Message or Callback is set
// for updates the bot handles.
type Update struct {
	ID       int
	Message  *Message
	Callback *CallbackQuery
}

// Kind returns a short label for logs and metrics.
func (u Update) Kind() string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil && u.Message.Command != "":
		return "command"
	case u.Message != nil:
		return "message"
	default:
		return "other"
	}
}

// Administrator is one entry of a chat's administrator roster.
type Administrator struct {
	UserID   int64
	Username string
	Status   string // creator|administrator
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Label string
	Data  string
}

// ParseMode values for OutMessage.
const (
	ParseNone     = ""
	ParseMarkdown = "Markdown"
)

// OutMessage is a message to send. Keyboard rows are rendered as inline
// buttons.
type OutMessage struct {
	ChatID    int64
	Text      string
	ParseMode string
	ReplyTo   int
	Keyboard  [][]Button
}

// Command is a bot command published to the platform's command menu.
type Command struct {
	Name        string
	Description string
}

// Client is the outbound surface of the chat platform. Implementations must
// honour ctx cancellation so a slow call never blocks other updates.
type Client interface {
	GetAdministrators(ctx context.Context, chatID int64) ([]Administrator, error)
	SendMessage(ctx context.Context, msg OutMessage) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
