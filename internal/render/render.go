// Package render turns a computed tally into something a visitor can see.
//
// Presenters never modify the slice they are given; those that keep state
// keep their own copy.
package render

import (
	"context"
	"sync"

	"github.com/HenryOlvera28/landing/internal/domain"
)

const EmptyMessage = "No votes yet."

type Presenter interface {
	Render(ctx context.Context, tally []domain.TallyEntry) error
}

type PresenterFunc func(ctx context.Context, tally []domain.TallyEntry) error

func (f PresenterFunc) Render(ctx context.Context, tally []domain.TallyEntry) error {
	return f(ctx, tally)
}

// Chain renders to each presenter in order and stops at the first error.
// Presenters after a failing one keep what they showed before, so a
// Snapshot placed last only records tallies every other presenter accepted.
func Chain(presenters ...Presenter) Presenter {
	return PresenterFunc(func(ctx context.Context, tally []domain.TallyEntry) error {
		for _, p := range presenters {
			if p == nil {
				continue
			}
			if err := p.Render(ctx, tally); err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot remembers the last tally it rendered.
type Snapshot struct {
	mu       sync.RWMutex
	last     []domain.TallyEntry
	rendered bool
}

func (s *Snapshot) Render(_ context.Context, tally []domain.TallyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = append([]domain.TallyEntry{}, tally...)
	s.rendered = true
	return nil
}

// Last returns a copy of the last rendered tally and whether anything was
// rendered yet.
func (s *Snapshot) Last() ([]domain.TallyEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.rendered {
		return nil, false
	}
	return append([]domain.TallyEntry{}, s.last...), true
}
