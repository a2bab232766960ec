// Package bot routes parsed commands into the dose log, the settings dialog
// and the scheduler, and owns the per-user job wiring.
package bot

import (
	"context"
	"time"

	"pillbot/internal/clock"
	"pillbot/internal/conversation"
	"pillbot/internal/dose"
	"pillbot/internal/scheduler"
	"pillbot/internal/settings"
	"pillbot/internal/stats"
	"pillbot/internal/transport"
	"pillbot/pkg/logx"
)

// Messenger is the outbound slice of the transport the bot uses.
type Messenger interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
	EditText(ctx context.Context, ref transport.MessageRef, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type Bot struct {
	log       logx.Logger
	msgr      Messenger
	clk       clock.Clock
	doses     *dose.Store
	settings  *settings.Store
	stats     *stats.Aggregator
	sched     *scheduler.Service
	flow      *conversation.Flow
	locks     *userLocks
	pingDelay time.Duration
}

func New(
	msgr Messenger,
	clk clock.Clock,
	doses *dose.Store,
	sets *settings.Store,
	agg *stats.Aggregator,
	sched *scheduler.Service,
	pingDelay time.Duration,
	log logx.Logger,
) *Bot {
	if pingDelay <= 0 {
		pingDelay = 3 * time.Second
	}
	b := &Bot{
		log:       log,
		msgr:      msgr,
		clk:       clk,
		doses:     doses,
		settings:  sets,
		stats:     agg,
		sched:     sched,
		locks:     newUserLocks(),
		pingDelay: pingDelay,
	}
	b.flow = conversation.New(sets, b, log)
	return b
}

// InstallAll re-arms jobs for every user known to the settings store. Called
// once at startup so reminders survive restarts.
func (b *Bot) InstallAll() {
	for _, userID := range b.settings.Users() {
		if err := b.InstallForUser(userID); err != nil {
			b.log.Warn("job install failed",
				logx.Int64("user_id", userID), logx.Err(err))
		}
	}
}
