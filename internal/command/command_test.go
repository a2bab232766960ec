package command

import (
	"testing"

	"pillbot/internal/transport"
)

func msgUpdate(text string) transport.Update {
	return transport.Update{
		Kind:    transport.UpdateMessage,
		Message: &transport.Message{ID: 1, ChatID: 10, FromID: 7, Text: text},
	}
}

func TestParseMessages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want Kind
	}{
		{"/start", Start},
		{"  /start  ", Start},
		{ButtonTookIt, RecordDose},
		{ButtonStats, GetStats},
		{ButtonSettings, OpenSettings},
		{ButtonChangeTime, RequestChangeTime},
		{ButtonChangeWeekday, RequestChangeWeekday},
		{ButtonResetLog, ResetLog},
		{ButtonTestPing, RequestTestPing},
		{ButtonBack, Cancel},
		{"/cancel", Cancel},
		{"08:15", FreeText},
		{"whatever", FreeText},
	}
	for _, tc := range cases {
		cmd, ok := Parse(msgUpdate(tc.text))
		if !ok {
			t.Fatalf("Parse(%q) not ok", tc.text)
		}
		if cmd.Kind != tc.want {
			t.Fatalf("Parse(%q) kind = %v, want %v", tc.text, cmd.Kind, tc.want)
		}
		if cmd.UserID != 7 || cmd.ChatID != 10 {
			t.Fatalf("Parse(%q) ids = %d/%d", tc.text, cmd.UserID, cmd.ChatID)
		}
	}
}

func TestParseFreeTextKeepsRawInput(t *testing.T) {
	t.Parallel()

	cmd, ok := Parse(msgUpdate(" 08:15 "))
	if !ok || cmd.Kind != FreeText {
		t.Fatalf("Parse = %v, %v", cmd.Kind, ok)
	}
	if cmd.Text != " 08:15 " {
		t.Fatalf("Text = %q, want raw input preserved", cmd.Text)
	}
}

func TestParseDoseDoneCallback(t *testing.T) {
	t.Parallel()

	u := transport.Update{
		Kind: transport.UpdateCallback,
		Callback: &transport.Callback{
			ID: "cb1", ChatID: 10, FromID: 7, MessageID: 42, Data: CallbackDoseDone,
		},
	}
	cmd, ok := Parse(u)
	if !ok {
		t.Fatal("Parse callback not ok")
	}
	if cmd.Kind != RecordDose {
		t.Fatalf("Kind = %v, want RecordDose", cmd.Kind)
	}
	if cmd.Callback == nil || cmd.Callback.MessageID != 42 {
		t.Fatalf("Callback not carried: %+v", cmd.Callback)
	}
}

func TestParseUnknownCallbackIgnored(t *testing.T) {
	t.Parallel()

	u := transport.Update{
		Kind:     transport.UpdateCallback,
		Callback: &transport.Callback{ID: "cb1", Data: "nope"},
	}
	if _, ok := Parse(u); ok {
		t.Fatal("unknown callback data should not parse")
	}
}
