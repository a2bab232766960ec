package bot

import (
	"fmt"
	"time"

	"pillbot/internal/scheduler"
)

const (
	replyWelcome = "Hi! I'll remind you to take your dose every day.\n" +
		"Tap \"💊 Took it\" when you have, and I'll keep the log."
	replyRecorded     = "Recorded. Nice and steady. ✅"
	replyAlreadyToday = "Already logged for today. 👍"
	replyReset        = "Log wiped. Starting fresh."
	replySettingsMenu = "Settings. What do you want to change?"
	replyBackToMenu   = "Back to the main menu."
	replyPingQueued   = "Test ping scheduled, it should arrive in a few seconds."
	replyPing         = "🧪 Test ping. Delivery works."
	replyReminder     = "💊 Time for your dose. Did you take it?"
	replyOops         = "Something went wrong on my side. Try again in a moment."
)

func statsText(week, month, total int) string {
	return fmt.Sprintf(
		"📊 Your stats\n\nLast 7 days: %d\nThis month: %d\nAll time: %d",
		week, month, total,
	)
}

func reportText(week, month int) string {
	return fmt.Sprintf(
		"📅 Weekly report\n\nDoses in the last 7 days: %d\nThis month so far: %d\nKeep it up!",
		week, month,
	)
}

func welcomeText(at scheduler.TimeOfDay, weekday time.Weekday) string {
	return fmt.Sprintf(
		"%s\n\nDaily reminder: %s\nWeekly report: %s\n\nChange both under ⚙️ Settings.",
		replyWelcome, at, weekday,
	)
}
