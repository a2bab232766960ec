package telegram

import (
	tele "gopkg.in/telebot.v4"

	"pillbot/internal/command"
	"pillbot/internal/transport"
)

func markupFor(k transport.Keyboard) *tele.ReplyMarkup {
	switch k {
	case transport.KeyboardMenu:
		return menuKeyboard()
	case transport.KeyboardSettings:
		return settingsKeyboard()
	case transport.KeyboardDoseDone:
		return doseDoneKeyboard()
	default:
		return nil
	}
}

func menuKeyboard() *tele.ReplyMarkup {
	mk := &tele.ReplyMarkup{ResizeKeyboard: true}
	mk.Reply(
		mk.Row(mk.Text(command.ButtonTookIt)),
		mk.Row(mk.Text(command.ButtonStats), mk.Text(command.ButtonSettings)),
	)
	return mk
}

func settingsKeyboard() *tele.ReplyMarkup {
	mk := &tele.ReplyMarkup{ResizeKeyboard: true}
	mk.Reply(
		mk.Row(mk.Text(command.ButtonChangeTime), mk.Text(command.ButtonChangeWeekday)),
		mk.Row(mk.Text(command.ButtonResetLog), mk.Text(command.ButtonTestPing)),
		mk.Row(mk.Text(command.ButtonBack)),
	)
	return mk
}

func doseDoneKeyboard() *tele.ReplyMarkup {
	mk := &tele.ReplyMarkup{}
	mk.Inline(mk.Row(mk.Data("✅ Took it", command.CallbackDoseDone)))
	return mk
}
