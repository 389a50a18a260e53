package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/HenryOlvera28/landing/internal/domain"
)

//go:embed schema.sql
var embeddedSchema embed.FS

const backendSQLite = "sqlite"

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database file at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := NewSQLiteStore(db)
	if err := s.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return s, nil
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) InitSchema() error {
	b, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return err
	}

	schema := strings.TrimSpace(string(b))
	_, err = s.db.Exec(schema)
	return err
}

// ---------- Votes ----------

func (s *SQLiteStore) Write(ctx context.Context, rec domain.VoteRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO votes(id, product_id, created_at)
VALUES (?, ?, ?)
`, rec.ID, rec.SubjectID, rec.CreatedAt.UTC())
	return wrap(backendSQLite, OpWrite, err)
}

func (s *SQLiteStore) ReadAll(ctx context.Context) ([]domain.VoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, product_id, created_at FROM votes ORDER BY seq`)
	if err != nil {
		return nil, wrap(backendSQLite, OpRead, err)
	}
	defer rows.Close()

	records := []domain.VoteRecord{}
	for rows.Next() {
		var r domain.VoteRecord
		if err := rows.Scan(&r.ID, &r.SubjectID, &r.CreatedAt); err != nil {
			return nil, wrap(backendSQLite, OpRead, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(backendSQLite, OpRead, err)
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
