package bot

import (
	"context"
	"fmt"
	"time"

	"pillbot/internal/scheduler"
	"pillbot/internal/transport"
	"pillbot/pkg/logx"
)

func reminderJobName(userID int64) string { return fmt.Sprintf("reminder:%d", userID) }
func reportJobName(userID int64) string   { return fmt.Sprintf("report:%d", userID) }
func pingJobName(userID int64) string     { return fmt.Sprintf("ping:%d", userID) }

// InstallForUser arms both per-user jobs from the user's current settings.
// Installing again with unchanged settings is harmless; the scheduler
// replaces jobs by name.
func (b *Bot) InstallForUser(userID int64) error {
	st := b.settings.Get(userID)
	at := scheduler.TimeOfDay{Hour: st.ReminderHour, Minute: st.ReminderMinute}
	if err := b.RescheduleReminder(userID, at); err != nil {
		return err
	}
	return b.RescheduleReport(userID, st.Weekday(), at)
}

// RescheduleReminder re-arms the user's daily reminder at the given time.
func (b *Bot) RescheduleReminder(userID int64, at scheduler.TimeOfDay) error {
	return b.sched.InstallDaily(reminderJobName(userID), at, b.reminderAction(userID))
}

// RescheduleReport re-arms the user's weekly report. The report fires at the
// reminder time on the chosen weekday.
func (b *Bot) RescheduleReport(userID int64, weekday time.Weekday, at scheduler.TimeOfDay) error {
	return b.sched.InstallWeekly(reportJobName(userID), at, weekday, b.reportAction(userID))
}

func (b *Bot) reminderAction(userID int64) scheduler.Action {
	return func(ctx context.Context) error {
		unlock := b.locks.lock(userID)
		defer unlock()

		chat, ok := b.chatFor(userID)
		if !ok {
			return nil
		}
		_, err := b.msgr.SendText(ctx, chat, replyReminder,
			&transport.SendOptions{Keyboard: transport.KeyboardDoseDone})
		return err
	}
}

func (b *Bot) reportAction(userID int64) scheduler.Action {
	return func(ctx context.Context) error {
		unlock := b.locks.lock(userID)
		defer unlock()

		chat, ok := b.chatFor(userID)
		if !ok {
			return nil
		}
		now := b.clk.Now()
		week := b.stats.LastNDays(userID, 7, now)
		month := b.stats.CurrentCalendarMonth(userID, now)
		_, err := b.msgr.SendText(ctx, chat, reportText(week, month), nil)
		return err
	}
}

func (b *Bot) pingAction(userID int64) scheduler.Action {
	return func(ctx context.Context) error {
		chat, ok := b.chatFor(userID)
		if !ok {
			return nil
		}
		_, err := b.msgr.SendText(ctx, chat, replyPing, nil)
		return err
	}
}

// chatFor resolves the user's registered chat. A user who never hit /start
// has no chat yet; their jobs fire into the void until they do.
func (b *Bot) chatFor(userID int64) (transport.ChatTarget, bool) {
	st := b.settings.Get(userID)
	if st.ChatID == 0 {
		b.log.Warn("job fired for user with no registered chat", logx.Int64("user_id", userID))
		return transport.ChatTarget{}, false
	}
	return transport.ChatTarget{ChatID: st.ChatID}, true
}
