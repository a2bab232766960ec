// Package command turns raw transport updates into bot commands.
package command

import (
	"strings"

	"pillbot/internal/transport"
)

// Menu and settings button labels. The keyboard markup and the parser must
// agree on these byte for byte.
const (
	ButtonTookIt        = "💊 Took it"
	ButtonStats         = "📊 Stats"
	ButtonSettings      = "⚙️ Settings"
	ButtonChangeTime    = "⏰ Change time"
	ButtonChangeWeekday = "📅 Change report day"
	ButtonResetLog      = "🔄 Reset log"
	ButtonTestPing      = "🧪 Test ping"
	ButtonBack          = "🔙 Back"
)

// CallbackDoseDone is the payload of the inline button under a reminder.
const CallbackDoseDone = "done"

type Kind int

const (
	Unknown Kind = iota
	Start
	RecordDose
	GetStats
	OpenSettings
	RequestChangeTime
	RequestChangeWeekday
	ResetLog
	RequestTestPing
	Cancel
	FreeText
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case RecordDose:
		return "record_dose"
	case GetStats:
		return "get_stats"
	case OpenSettings:
		return "open_settings"
	case RequestChangeTime:
		return "change_time"
	case RequestChangeWeekday:
		return "change_weekday"
	case ResetLog:
		return "reset_log"
	case RequestTestPing:
		return "test_ping"
	case Cancel:
		return "cancel"
	case FreeText:
		return "free_text"
	default:
		return "unknown"
	}
}

type Command struct {
	Kind   Kind
	UserID int64
	ChatID int64
	// Text carries the raw input for FreeText, used by the settings dialog.
	Text string
	// Callback is set when the command came from an inline button.
	Callback *transport.Callback
}

// Parse maps an update to a command. Unmatched message text becomes FreeText
// so an active settings dialog can consume it.
func Parse(u transport.Update) (Command, bool) {
	switch u.Kind {
	case transport.UpdateMessage:
		if u.Message == nil {
			return Command{}, false
		}
		m := u.Message
		cmd := Command{UserID: m.FromID, ChatID: m.ChatID, Text: m.Text}
		cmd.Kind = kindForText(m.Text)
		return cmd, true
	case transport.UpdateCallback:
		if u.Callback == nil {
			return Command{}, false
		}
		cb := u.Callback
		if cb.Data != CallbackDoseDone {
			return Command{}, false
		}
		return Command{
			Kind:     RecordDose,
			UserID:   cb.FromID,
			ChatID:   cb.ChatID,
			Callback: cb,
		}, true
	default:
		return Command{}, false
	}
}

func kindForText(text string) Kind {
	switch strings.TrimSpace(text) {
	case "/start":
		return Start
	case ButtonTookIt:
		return RecordDose
	case ButtonStats:
		return GetStats
	case ButtonSettings:
		return OpenSettings
	case ButtonChangeTime:
		return RequestChangeTime
	case ButtonChangeWeekday:
		return RequestChangeWeekday
	case ButtonResetLog:
		return ResetLog
	case ButtonTestPing:
		return RequestTestPing
	case ButtonBack, "/cancel":
		return Cancel
	default:
		return FreeText
	}
}
