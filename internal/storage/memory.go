package storage

import (
	"context"
	"sync"

	"github.com/HenryOlvera28/landing/internal/domain"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.VoteRecord
}

func NewMemoryStore(seed ...domain.VoteRecord) *MemoryStore {
	return &MemoryStore{records: append([]domain.VoteRecord(nil), seed...)}
}

func (s *MemoryStore) Write(ctx context.Context, rec domain.VoteRecord) error {
	if err := ctx.Err(); err != nil {
		return wrap("memory", OpWrite, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) ReadAll(ctx context.Context) ([]domain.VoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("memory", OpRead, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.VoteRecord{}, s.records...), nil
}

func (s *MemoryStore) Close() error { return nil }
