// Package transport defines the abstract chat boundary the core talks to.
// The concrete Telegram implementation lives in transport/telegram.
package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID     int
	ChatID int64
	FromID int64
	Text   string
}

type Callback struct {
	ID        string
	ChatID    int64
	FromID    int64
	MessageID int
	Data      string
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Keyboard is a logical keyboard kind; the adapter maps it to its own markup.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMenu
	KeyboardSettings
	KeyboardDoseDone // inline "done" button attached to reminders
)

type SendOptions struct {
	Keyboard Keyboard
}

// Sink is the minimal delivery capability the core needs. Failures come back
// as errors the caller must catch; a failed send is never fatal.
type Sink interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Adapter is a full chat transport: an update source plus a Sink.
type Adapter interface {
	Sink
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
	EditText(ctx context.Context, ref MessageRef, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
