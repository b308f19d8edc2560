// Package telegram connects the monitor to the Telegram Bot API: long-poll
// for inbound updates and sendMessage for outbound text.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bnema/lonewatch/internal/domain"
	"github.com/bnema/lonewatch/internal/ports"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultPollTimeout = 30 * time.Second
	defaultRetryDelay  = 5 * time.Second

	// latestUpdate asks the API for the newest update only, confirming
	// everything before it.
	latestUpdate = -1
)

var allowedUpdates = []string{"message", "my_chat_member"}

// api is the subset of *tgbotapi.BotAPI the adapter uses.
type api interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Options struct {
	// Endpoint overrides tgbotapi.APIEndpoint, mainly for tests.
	Endpoint    string
	HTTPClient  *http.Client
	PollTimeout time.Duration
	RetryDelay  time.Duration
	Logger      *log.Logger
}

type Bot struct {
	api         api
	pollTimeout time.Duration
	retryDelay  time.Duration
	logger      *log.Logger

	mu      sync.Mutex
	offset  int
	discard bool
}

var (
	_ ports.Notifier       = (*Bot)(nil)
	_ ports.InboundSource  = (*Bot)(nil)
	_ ports.OffsetResetter = (*Bot)(nil)
)

// New authenticates token against the Bot API.
func New(token string, opts Options) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram api token is empty")
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	botAPI, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}

	bot := newBot(botAPI, opts)
	bot.logger.Printf("Authorized on account %s", botAPI.Self.UserName)
	return bot, nil
}

func newBot(botAPI api, opts Options) *Bot {
	bot := &Bot{
		api:         botAPI,
		pollTimeout: opts.PollTimeout,
		retryDelay:  opts.RetryDelay,
		logger:      opts.Logger,
	}
	if bot.pollTimeout <= 0 {
		bot.pollTimeout = defaultPollTimeout
	}
	if bot.retryDelay <= 0 {
		bot.retryDelay = defaultRetryDelay
	}
	if bot.logger == nil {
		bot.logger = log.New(io.Discard, "", 0)
	}

	return bot
}

// Send delivers text to the private chat of to. The underlying client has
// no context support, so a cancelled ctx abandons the request.
func (b *Bot) Send(ctx context.Context, to domain.UserID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(int64(to), text)
	done := make(chan error, 1)
	go func() {
		_, err := b.api.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// ResetOffset makes the next poll skip every pending update.
func (b *Bot) ResetOffset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.discard = true
}

// Run long-polls until ctx ends. Poll errors are logged and retried.
func (b *Bot) Run(ctx context.Context, handle ports.InboundHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cfg, discard := b.nextPoll()
		updates, err := b.poll(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Printf("Polling telegram: %v", err)
			if !sleep(ctx, b.retryDelay) {
				return ctx.Err()
			}
			continue
		}

		if discard && len(updates) > 0 {
			b.logger.Printf("Discarded pending updates up to %d", updates[len(updates)-1].UpdateID)
		}
		for _, update := range updates {
			b.advance(update.UpdateID)
			if discard {
				continue
			}
			if event, ok := toInbound(update); ok {
				handle(ctx, event)
			}
		}
	}
}

func (b *Bot) nextPoll() (tgbotapi.UpdateConfig, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	discard := b.discard
	b.discard = false

	cfg := tgbotapi.NewUpdate(b.offset)
	if discard {
		cfg = tgbotapi.NewUpdate(latestUpdate)
		cfg.Timeout = 0
	} else {
		cfg.Timeout = int(b.pollTimeout / time.Second)
	}
	cfg.AllowedUpdates = allowedUpdates

	return cfg, discard
}

func (b *Bot) advance(updateID int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if updateID >= b.offset {
		b.offset = updateID + 1
	}
}

func (b *Bot) poll(ctx context.Context, cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	type result struct {
		updates []tgbotapi.Update
		err     error
	}

	done := make(chan result, 1)
	go func() {
		updates, err := b.api.GetUpdates(cfg)
		done <- result{updates: updates, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.updates, res.err
	}
}

func toInbound(update tgbotapi.Update) (ports.Inbound, bool) {
	if member := update.MyChatMember; member != nil {
		switch member.NewChatMember.Status {
		case "kicked", "left":
			return ports.Inbound{Sender: domain.UserID(member.Chat.ID), Removed: true}, true
		default:
			return ports.Inbound{}, false
		}
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return ports.Inbound{}, false
	}

	event := ports.Inbound{Sender: domain.UserID(msg.Chat.ID), Text: msg.Text}
	if msg.From != nil {
		event.DisplayName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}

	return event, true
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
