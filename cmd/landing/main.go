package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HenryOlvera28/landing/internal/broker"
	"github.com/HenryOlvera28/landing/internal/config"
	"github.com/HenryOlvera28/landing/internal/render"
	"github.com/HenryOlvera28/landing/internal/storage"
)

var (
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "landing",
	Short: "Product landing page with a vote tally",
	Long: `landing serves the product landing page, records votes for products
and shows the running tally.

Votes go to the store selected by store.driver (sqlite, redis, postgres or
memory). When rabbitmq.url is set every rendered tally is also published to
rabbitmq.queue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		if logger, err = zc.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfg, err = config.Load(configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// tallyPublisher returns the AMQP presenter when RabbitMQ is configured, or
// nil. The returned func closes the connection.
func tallyPublisher(ctx context.Context) (render.Presenter, func(), error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, func() {}, nil
	}

	conn, err := broker.Connect(ctx, cfg.RabbitMQ.URL, broker.DefaultOptions, logger)
	if err != nil {
		return nil, nil, err
	}
	ch, err := broker.OpenQueue(conn, cfg.RabbitMQ.Queue)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	logger.Info("publishing tallies", zap.String("queue", cfg.RabbitMQ.Queue))

	return render.NewAMQPPublisher(ch, cfg.RabbitMQ.Queue), func() {
		_ = ch.Close()
		_ = conn.Close()
	}, nil
}

func openStore(ctx context.Context) (storage.VoteStore, error) {
	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open vote store: %w", err)
	}
	return store, nil
}
