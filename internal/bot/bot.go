// Package bot runs the Telegram side channel: users link a chat with
// /start <token> and linked chats receive their activities.
package bot

import (
	"context"
	"fmt"
	"time"

	"engagement-engine/internal/auth"
	"engagement-engine/internal/bot/handlers"
	"engagement-engine/internal/bot/middleware"
	"engagement-engine/internal/storage"
	"engagement-engine/internal/storage/redis"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Bot represents Telegram bot
type Bot struct {
	bot      *tele.Bot
	users    storage.UserStore
	cache    *redis.Client
	verifier *auth.Verifier
	logger   *zap.Logger
}

type Options struct {
	Token string
	// URL overrides the Bot API endpoint.
	URL string
	// Offline skips the getMe call made at construction.
	Offline bool
	// Synchronous runs handlers on the polling goroutine.
	Synchronous bool
}

func New(
	opts Options,
	users storage.UserStore,
	cache *redis.Client,
	verifier *auth.Verifier,
	logger *zap.Logger,
) (*Bot, error) {
	pref := tele.Settings{
		Token:       opts.Token,
		URL:         opts.URL,
		Offline:     opts.Offline,
		Synchronous: opts.Synchronous,
		Poller:      &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		users:    users,
		cache:    cache,
		verifier: verifier,
		logger:   logger,
	}

	bot.setupMiddleware()

	bot.registerHandlers()

	logger.Info("bot initialized successfully")

	return bot, nil
}

func (b *Bot) setupMiddleware() {
	b.bot.Use(middleware.Recovery(b.logger))

	b.bot.Use(middleware.Logger(b.logger))

	if b.cache != nil {
		b.bot.Use(middleware.RateLimit(b.cache, b.logger))
	}
}

func (b *Bot) registerHandlers() {
	ctx := &handlers.Context{
		Users:    b.users,
		Verifier: b.verifier,
		Logger:   b.logger,
	}

	b.bot.Handle("/start", handlers.HandleStart(ctx))
	b.bot.Handle("/stop", handlers.HandleStop(ctx))
	b.bot.Handle("/help", handlers.HandleHelp(ctx))

	b.logger.Info("handlers registered")
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting bot...")

	go b.bot.Start()

	<-ctx.Done()

	b.logger.Info("stopping bot...")
	b.bot.Stop()

	return nil
}

// Publisher returns the realtime publisher that sends activities to linked chats.
func (b *Bot) Publisher(baseURL string) *Publisher {
	return NewPublisher(b.bot, b.users, baseURL, b.logger)
}

// ProcessUpdate runs a single update through the middleware and handlers.
func (b *Bot) ProcessUpdate(u tele.Update) {
	b.bot.ProcessUpdate(u)
}
