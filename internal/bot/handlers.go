package bot

import (
	"context"
	"fmt"

	"pillbot/internal/command"
	"pillbot/internal/scheduler"
	"pillbot/internal/settings"
	"pillbot/internal/transport"
	"pillbot/pkg/logx"
)

func (b *Bot) handleStart(ctx context.Context, cmd command.Command) error {
	chatID := cmd.ChatID
	if _, err := b.settings.Set(ctx, cmd.UserID, settings.Patch{ChatID: &chatID}); err != nil {
		return fmt.Errorf("register chat: %w", err)
	}
	if err := b.InstallForUser(cmd.UserID); err != nil {
		return fmt.Errorf("install jobs: %w", err)
	}
	st := b.settings.Get(cmd.UserID)
	at := scheduler.TimeOfDay{Hour: st.ReminderHour, Minute: st.ReminderMinute}
	b.send(ctx, cmd.ChatID, welcomeText(at, st.Weekday()),
		&transport.SendOptions{Keyboard: transport.KeyboardMenu})
	return nil
}

func (b *Bot) handleRecordDose(ctx context.Context, cmd command.Command) error {
	recorded, err := b.doses.RecordToday(ctx, cmd.UserID)
	if err != nil {
		return fmt.Errorf("record dose: %w", err)
	}
	reply := replyRecorded
	if !recorded {
		reply = replyAlreadyToday
	}

	if cb := cmd.Callback; cb != nil {
		if err := b.msgr.AnswerCallback(ctx, cb.ID, reply); err != nil {
			b.log.Warn("callback answer failed", logx.Err(err))
		}
		ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
		if err := b.msgr.EditText(ctx, ref, replyReminder+"\n\n"+reply); err != nil {
			b.log.Warn("reminder edit failed", logx.Err(err))
		}
		return nil
	}
	b.send(ctx, cmd.ChatID, reply, nil)
	return nil
}

func (b *Bot) handleStats(ctx context.Context, cmd command.Command) error {
	now := b.clk.Now()
	week := b.stats.LastNDays(cmd.UserID, 7, now)
	month := b.stats.CurrentCalendarMonth(cmd.UserID, now)
	total := b.stats.Total(cmd.UserID)
	b.send(ctx, cmd.ChatID, statsText(week, month, total), nil)
	return nil
}

func (b *Bot) handleReset(ctx context.Context, cmd command.Command) error {
	if err := b.doses.Reset(ctx, cmd.UserID); err != nil {
		return fmt.Errorf("reset log: %w", err)
	}
	b.send(ctx, cmd.ChatID, replyReset, nil)
	return nil
}

func (b *Bot) handleTestPing(ctx context.Context, cmd command.Command) error {
	err := b.sched.InstallOnceAfter(pingJobName(cmd.UserID), b.pingDelay, b.pingAction(cmd.UserID))
	if err != nil {
		return fmt.Errorf("schedule ping: %w", err)
	}
	b.send(ctx, cmd.ChatID, replyPingQueued, nil)
	return nil
}
