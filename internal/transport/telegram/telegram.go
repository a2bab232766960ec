// Package telegram adapts gopkg.in/telebot.v4 to the transport interfaces.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"pillbot/internal/transport"
	"pillbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	RatePerSec  float64
}

type Adapter struct {
	bot     *tele.Bot
	limiter *rate.Limiter
	log     logx.Logger
	out     atomic.Value // chan<- transport.Update
	done    chan struct{}
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: empty token")
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 10 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: poll},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: new bot: %w", err)
	}
	a := &Adapter{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
		done:    make(chan struct{}),
	}
	bot.Handle(tele.OnText, a.onText)
	bot.Handle(tele.OnCallback, a.onCallback)
	return a, nil
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.out.Store(out)
	go func() {
		defer close(a.done)
		a.bot.Start()
	}()
	a.log.Info("telegram adapter started", logx.String("bot", a.bot.Me.Username))
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.bot.Stop()
	select {
	case <-a.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (a *Adapter) onText(c tele.Context) error {
	m := c.Message()
	if m == nil {
		return nil
	}
	a.emit(transport.Update{
		Kind: transport.UpdateMessage,
		Message: &transport.Message{
			ID:     m.ID,
			ChatID: m.Chat.ID,
			FromID: m.Sender.ID,
			Text:   m.Text,
		},
	})
	return nil
}

func (a *Adapter) onCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nil
	}
	// telebot prefixes unique-button payloads with "\f<unique>|<data>".
	data := strings.TrimPrefix(cb.Data, "\f")
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}
	a.emit(transport.Update{
		Kind: transport.UpdateCallback,
		Callback: &transport.Callback{
			ID:        cb.ID,
			ChatID:    cb.Message.Chat.ID,
			FromID:    cb.Sender.ID,
			MessageID: cb.Message.ID,
			Data:      strings.TrimSpace(data),
		},
	})
	return nil
}

func (a *Adapter) emit(u transport.Update) {
	v := a.out.Load()
	if v == nil {
		return
	}
	ch, ok := v.(chan<- transport.Update)
	if !ok {
		return
	}
	select {
	case ch <- u:
	default:
		a.log.Warn("update dropped, dispatch queue full")
	}
}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return transport.MessageRef{}, err
	}
	var sendOpts []any
	if opt != nil {
		if mk := markupFor(opt.Keyboard); mk != nil {
			sendOpts = append(sendOpts, mk)
		}
	}
	msg, err := a.bot.Send(tele.ChatID(to.ChatID), text, sendOpts...)
	if err != nil {
		return transport.MessageRef{}, fmt.Errorf("telegram: send to %d: %w", to.ChatID, err)
	}
	return transport.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}

func (a *Adapter) EditText(ctx context.Context, ref transport.MessageRef, text string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := a.bot.Edit(&tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}, text)
	if err != nil {
		return fmt.Errorf("telegram: edit %d/%d: %w", ref.ChatID, ref.MessageID, err)
	}
	return nil
}

func (a *Adapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	err := a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	if err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}
