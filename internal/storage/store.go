package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/HenryOlvera28/landing/internal/config"
	"github.com/HenryOlvera28/landing/internal/domain"
)

// VoteStore is an append-only log of vote records.
type VoteStore interface {
	Write(ctx context.Context, rec domain.VoteRecord) error
	ReadAll(ctx context.Context) ([]domain.VoteRecord, error)
	Close() error
}

const (
	OpWrite = "write"
	OpRead  = "read"
)

// Error is returned by every store adapter when the backend fails.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s failed", e.Backend, e.Op)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Backend: backend, Op: op, Err: err}
}

// Open builds the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (VoteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(cfg.Driver)
	logger = logger.With(zap.String("store", driver))

	switch driver {
	case config.DriverSQLite, "":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("vote store ready", zap.String("path", cfg.SQLitePath))
		return s, nil

	case config.DriverRedis:
		client, err := ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		logger.Info("vote store ready", zap.String("addr", cfg.RedisAddr), zap.String("key", cfg.RedisKey))
		return NewRedisStore(client, cfg.RedisKey), nil

	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("vote store ready")
		return s, nil

	case config.DriverMemory:
		logger.Warn("using in-memory vote store, votes are lost on exit")
		return NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
