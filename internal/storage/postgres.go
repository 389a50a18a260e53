package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/HenryOlvera28/landing/internal/domain"
)

const backendPostgres = "postgres"

type voteRow struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	VoteID    string    `gorm:"uniqueIndex;not null"`
	ProductID string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (voteRow) TableName() string { return "votes" }

type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn, pings it and migrates the votes table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&voteRow{}); err != nil {
		return fmt.Errorf("migrate votes: %w", err)
	}
	return nil
}

func (s *PostgresStore) Write(ctx context.Context, rec domain.VoteRecord) error {
	row := voteRow{
		VoteID:    rec.ID,
		ProductID: rec.SubjectID,
		CreatedAt: rec.CreatedAt.UTC(),
	}
	return wrap(backendPostgres, OpWrite, s.db.WithContext(ctx).Create(&row).Error)
}

func (s *PostgresStore) ReadAll(ctx context.Context) ([]domain.VoteRecord, error) {
	var rows []voteRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, wrap(backendPostgres, OpRead, err)
	}

	records := make([]domain.VoteRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, domain.VoteRecord{
			ID:        r.VoteID,
			SubjectID: r.ProductID,
			CreatedAt: r.CreatedAt,
		})
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
