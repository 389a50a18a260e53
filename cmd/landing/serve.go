package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HenryOlvera28/landing/internal/catalog"
	"github.com/HenryOlvera28/landing/internal/httpapi"
	"github.com/HenryOlvera28/landing/internal/render"
	"github.com/HenryOlvera28/landing/internal/session"
	"github.com/HenryOlvera28/landing/internal/tally"
	"github.com/HenryOlvera28/landing/internal/vote"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the landing page and the vote API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	engine := tally.NewEngine(store)
	sessions := session.NewManager(func(key string, shown *render.Snapshot) *vote.Flow {
		return vote.NewFlow(vote.Deps{
			Votes:     store,
			Tally:     engine,
			Presenter: shown,
			Publish:   publish,
			Logger:    logger.With(zap.String("session", key)),
		})
	})

	pages := catalog.NewClient(cfg.Catalog, nil, logger)
	server := httpapi.New(sessions, pages, cfg.Catalog.FeaturedLimit, logger)

	err = server.Run(ctx, cfg.HTTP.Addr)
	logger.Info("shutting down")
	return err
}
