// Package telegram connects the bot to the Telegram Bot API using long
// polling. It routes commands to the activation store and media updates into
// the description pipeline, and implements the pipeline's delivery and
// resolver collaborators.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"github.com/qzbx-cloud/avision/internal/config"
	"github.com/qzbx-cloud/avision/internal/pipeline"
	"github.com/qzbx-cloud/avision/internal/store"
)

// Channel is the Telegram front-end. It owns the bot connection, the file
// resolver and the outbound limiter, and drives the pipeline core.
type Channel struct {
	bot         *telego.Bot
	cfg         config.TelegramConfig
	activations store.ActivationStore
	resolver    *FileResolver
	dispatcher  *pipeline.Dispatcher
	aggregator  *pipeline.Aggregator
	limiter     *rate.Limiter

	debounce time.Duration

	pollCtx    context.Context
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates the channel and wires the dispatch pipeline behind it.
func New(cfg config.TelegramConfig, pcfg config.PipelineConfig, activations store.ActivationStore, describer pipeline.Describer) (*Channel, error) {
	var opts []telego.BotOption

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	sendRate := cfg.SendRate
	if sendRate <= 0 {
		sendRate = 30
	}

	c := &Channel{
		bot:         bot,
		cfg:         cfg,
		activations: activations,
		resolver:    NewFileResolver(bot, cfg),
		limiter:     rate.NewLimiter(rate.Limit(sendRate), 5),
		debounce:    pcfg.DebounceDuration(),
	}
	c.dispatcher = pipeline.NewDispatcher(c.resolver, describer, c, pcfg.ChunkLimit, pcfg.PacingDuration())
	return c, nil
}

// Start begins long polling for updates. Non-blocking after setup.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCtx = pollCtx
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	// Flushed media groups run under the polling context: stopping the
	// channel also stops pipeline work it started.
	c.aggregator = pipeline.NewAggregator(pollCtx, c.debounce, c.activations, nil, c.dispatcher.Process)

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: 30,
		AllowedUpdates: []string{
			"message",
			"my_chat_member",
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("telegram bot connected", "username", c.bot.Username())

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				switch {
				case update.Message != nil:
					c.handleMessage(pollCtx, update.Message)
				case update.MyChatMember != nil:
					c.handleMyChatMember(pollCtx, update.MyChatMember)
				default:
					slog.Debug("telegram update skipped", "update_id", update.UpdateID)
				}
			}
		}
	}()

	return nil
}

// Stop shuts down the bot by cancelling the polling context and waiting for
// the polling goroutine to exit, so Telegram releases the getUpdates lock
// before a new instance starts.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")

	if c.pollCancel != nil {
		c.pollCancel()
	}

	if c.pollDone != nil {
		select {
		case <-c.pollDone:
			slog.Info("telegram bot stopped")
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}

	return nil
}
