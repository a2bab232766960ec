package bot

import (
	"context"

	"pillbot/internal/command"
	"pillbot/internal/transport"
	"pillbot/pkg/logx"
)

// HandleUpdate is the single entry point for inbound updates. Handling is
// serialized per user; different users proceed in parallel.
func (b *Bot) HandleUpdate(ctx context.Context, u transport.Update) {
	cmd, ok := command.Parse(u)
	if !ok {
		return
	}

	unlock := b.locks.lock(cmd.UserID)
	defer unlock()

	if err := b.dispatch(ctx, cmd); err != nil {
		b.log.Warn("command failed",
			logx.String("command", cmd.Kind.String()),
			logx.Int64("user_id", cmd.UserID),
			logx.Err(err))
		b.send(ctx, cmd.ChatID, replyOops, nil)
	}
}

func (b *Bot) dispatch(ctx context.Context, cmd command.Command) error {
	// Free text belongs to an active settings dialog; any other command
	// abandons the dialog first.
	if b.flow.Active(cmd.UserID) {
		switch cmd.Kind {
		case command.FreeText:
			reply, err := b.flow.Submit(ctx, cmd.UserID, cmd.Text)
			if err != nil {
				return err
			}
			b.send(ctx, cmd.ChatID, reply, nil)
			return nil
		case command.Cancel:
			b.send(ctx, cmd.ChatID, b.flow.Cancel(cmd.UserID),
				&transport.SendOptions{Keyboard: transport.KeyboardSettings})
			return nil
		default:
			b.flow.Interrupt(cmd.UserID)
		}
	}

	switch cmd.Kind {
	case command.Start:
		return b.handleStart(ctx, cmd)
	case command.RecordDose:
		return b.handleRecordDose(ctx, cmd)
	case command.GetStats:
		return b.handleStats(ctx, cmd)
	case command.OpenSettings:
		b.send(ctx, cmd.ChatID, replySettingsMenu,
			&transport.SendOptions{Keyboard: transport.KeyboardSettings})
		return nil
	case command.RequestChangeTime:
		b.send(ctx, cmd.ChatID, b.flow.StartChangeTime(cmd.UserID), nil)
		return nil
	case command.RequestChangeWeekday:
		b.send(ctx, cmd.ChatID, b.flow.StartChangeWeekday(cmd.UserID), nil)
		return nil
	case command.ResetLog:
		return b.handleReset(ctx, cmd)
	case command.RequestTestPing:
		return b.handleTestPing(ctx, cmd)
	case command.Cancel:
		b.send(ctx, cmd.ChatID, replyBackToMenu,
			&transport.SendOptions{Keyboard: transport.KeyboardMenu})
		return nil
	default:
		// Free text outside a dialog is ignored.
		return nil
	}
}

// send delivers a best-effort reply. Delivery failures are logged, never
// propagated; the state change the reply describes has already happened.
func (b *Bot) send(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) {
	if text == "" || chatID == 0 {
		return
	}
	if _, err := b.msgr.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt); err != nil {
		b.log.Warn("reply delivery failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}
