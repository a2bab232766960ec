// Package app is the composition root: it builds every component from the
// config file and owns startup and shutdown order.
package app

import (
	"context"
	"io"
	"sync"

	"pillbot/internal/bot"
	"pillbot/internal/clock"
	"pillbot/internal/config"
	"pillbot/internal/dose"
	"pillbot/internal/eventbus"
	"pillbot/internal/scheduler"
	"pillbot/internal/settings"
	"pillbot/internal/stats"
	"pillbot/internal/storage"
	"pillbot/internal/transport"
	"pillbot/internal/transport/telegram"
	"pillbot/pkg/logx"
)

const updateWorkers = 4

type App struct {
	cfgm *config.Manager

	log     logx.Logger
	logCl   io.Closer
	bus     eventbus.Bus
	backend storage.Backend

	adapter *telegram.Adapter
	sched   *scheduler.Service
	bot     *bot.Bot

	updates chan transport.Update
	cfgSub  chan *config.Config
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	log, logCl, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File != "",
			Path:    cfg.Logging.File,
		},
	})
	if err != nil {
		return nil, err
	}
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := cfg.StorageBusyTimeout()
	if err != nil {
		return nil, err
	}
	backend, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	clk := clock.System()
	doses, err := dose.New(ctx, backend, clk, log.With(logx.String("comp", "dose")))
	if err != nil {
		backend.Close()
		return nil, err
	}
	sets, err := settings.New(ctx, backend, log.With(logx.String("comp", "settings")))
	if err != nil {
		backend.Close()
		return nil, err
	}

	bus := eventbus.New()
	sched := scheduler.New(scheduler.Config{
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
		Timezone:  cfg.Scheduler.Timezone,
	}, clk, log.With(logx.String("comp", "scheduler")), bus)

	pollTimeout, err := cfg.TelegramPollTimeout()
	if err != nil {
		backend.Close()
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		backend.Close()
		return nil, err
	}

	pingDelay, err := cfg.BotTestPingDelay()
	if err != nil {
		backend.Close()
		return nil, err
	}
	b := bot.New(adapter, clk, doses, sets, stats.New(doses), sched, pingDelay,
		log.With(logx.String("comp", "bot")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logCl:   logCl,
		bus:     bus,
		backend: backend,
		adapter: adapter,
		sched:   sched,
		bot:     b,
		updates: make(chan transport.Update, 64),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.sched.Start(runCtx)
	a.bot.InstallAll()

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}

	for i := 0; i < updateWorkers; i++ {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for {
				select {
				case <-runCtx.Done():
					return
				case u := <-a.updates:
					a.bot.HandleUpdate(runCtx, u)
				}
			}
		}()
	}

	a.cfgSub = a.cfgm.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-a.cfgSub:
				if !ok {
					return
				}
				a.sched.SetTimezone(cfg.Scheduler.Timezone)
			}
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	_ = a.adapter.Stop(ctx)
	a.sched.Stop(ctx)
	a.wg.Wait()
	err := a.backend.Close()
	a.log.Info("stopped")
	if a.logCl != nil {
		_ = a.logCl.Close()
	}
	return err
}
