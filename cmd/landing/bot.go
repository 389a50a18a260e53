package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HenryOlvera28/landing/internal/app"
	"github.com/HenryOlvera28/landing/internal/catalog"
	"github.com/HenryOlvera28/landing/internal/tally"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot front end",
	Long: `Runs the Telegram bot. The token comes from telegram.token or
TELEGRAM_BOT_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telegram.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	publish, closePublisher, err := tallyPublisher(ctx)
	if err != nil {
		return err
	}
	defer closePublisher()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	bot.Debug = cfg.Telegram.Debug
	logger.Info("bot started", zap.String("username", bot.Self.UserName))

	application := app.New(app.Deps{
		Bot:      bot,
		Votes:    store,
		Tally:    tally.NewEngine(store),
		Catalog:  catalog.NewClient(cfg.Catalog, nil, logger),
		Featured: cfg.Catalog.FeaturedLimit,
		Publish:  publish,
		Logger:   logger,
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	application.Run(ctx, updates)
	bot.StopReceivingUpdates()

	logger.Info("shutting down")
	return nil
}
