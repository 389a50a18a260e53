// Package tally groups vote records into per-product counts.
package tally

import (
	"context"
	"errors"
	"fmt"

	"github.com/HenryOlvera28/landing/internal/domain"
)

var ErrInvalidRecord = errors.New("invalid vote record")

// InvalidRecordError reports a stored record without a product identifier.
type InvalidRecordError struct {
	Index int
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid vote record at index %d: missing product id", e.Index)
}

func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// Compute counts records per subject. Entries keep the order in which each
// subject was first seen in records.
func Compute(records []domain.VoteRecord) ([]domain.TallyEntry, error) {
	entries := make([]domain.TallyEntry, 0, len(records))
	index := make(map[string]int, len(records))

	for i, r := range records {
		if r.SubjectID == "" {
			return nil, &InvalidRecordError{Index: i}
		}
		if pos, ok := index[r.SubjectID]; ok {
			entries[pos].Count++
			continue
		}
		index[r.SubjectID] = len(entries)
		entries = append(entries, domain.TallyEntry{SubjectID: r.SubjectID, Count: 1})
	}
	return entries, nil
}

func Total(entries []domain.TallyEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Count
	}
	return total
}

type Reader interface {
	ReadAll(ctx context.Context) ([]domain.VoteRecord, error)
}

// Engine recomputes the tally from the full record set on every call.
type Engine struct {
	votes Reader
}

func NewEngine(votes Reader) *Engine {
	return &Engine{votes: votes}
}

func (e *Engine) Tally(ctx context.Context) ([]domain.TallyEntry, error) {
	records, err := e.votes.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return Compute(records)
}
