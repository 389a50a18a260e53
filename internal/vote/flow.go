// Package vote implements casting a single vote and refreshing the tally
// shown to the visitor who cast it.
package vote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HenryOlvera28/landing/internal/domain"
	"github.com/HenryOlvera28/landing/internal/render"
	"github.com/HenryOlvera28/landing/internal/storage"
)

var (
	ErrMissingSelection     = errors.New("please select a product before voting")
	ErrSubmissionInProgress = errors.New("a vote is already being submitted")
	ErrRefreshFailed        = errors.New("vote saved but the tally could not be refreshed")
)

const SavedMessage = "Vote saved."

type State int

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Writer interface {
	Write(ctx context.Context, rec domain.VoteRecord) error
}

type Tallier interface {
	Tally(ctx context.Context) ([]domain.TallyEntry, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() (string, error)
}

type Deps struct {
	Votes     Writer
	Tally     Tallier
	Presenter render.Presenter
	Clock     Clock
	IDGen     IDGenerator
	Logger    *zap.Logger

	// Publish receives the tally after every successful vote. Its errors
	// are logged and never reach the caller.
	Publish render.Presenter

	// OnTransition, when set, is called after every state change.
	OnTransition func(from, to State)
}

type Result struct {
	Record  domain.VoteRecord
	Tally   []domain.TallyEntry
	Message string
}

// Flow is the vote submission state machine of one client session.
type Flow struct {
	votes     Writer
	tally     Tallier
	presenter render.Presenter
	publish   render.Presenter
	clock     Clock
	ids       IDGenerator
	logger    *zap.Logger
	onChange  func(from, to State)

	mu    sync.Mutex
	state State
}

func NewFlow(deps Deps) *Flow {
	f := &Flow{
		votes:     deps.Votes,
		tally:     deps.Tally,
		presenter: deps.Presenter,
		publish:   deps.Publish,
		clock:     deps.Clock,
		ids:       deps.IDGen,
		logger:    deps.Logger,
		onChange:  deps.OnTransition,
		state:     Idle,
	}
	if f.clock == nil {
		f.clock = systemClock{}
	}
	if f.ids == nil {
		f.ids = uuidGenerator{}
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	if f.presenter == nil {
		f.presenter = render.PresenterFunc(func(context.Context, []domain.TallyEntry) error { return nil })
	}
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit records one vote for subjectID and re-renders the tally.
//
// A blank selection returns ErrMissingSelection and a second call while a
// write is pending returns ErrSubmissionInProgress; neither changes state.
// A failed write returns a *storage.Error and the flow goes back to Idle
// without rendering. Once the write succeeds the vote stays saved even if
// the refresh fails, which is reported with ErrRefreshFailed.
func (f *Flow) Submit(ctx context.Context, subjectID string) (Result, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return Result{}, ErrMissingSelection
	}

	if err := f.begin(); err != nil {
		return Result{}, err
	}

	log := f.logger.With(zap.String("product_id", subjectID))

	id, err := f.ids.NewID()
	if err != nil {
		f.fail()
		log.Error("generate vote id", zap.Error(err))
		return Result{}, fmt.Errorf("generate vote id: %w", err)
	}

	rec := domain.VoteRecord{
		ID:        id,
		SubjectID: subjectID,
		CreatedAt: f.clock.Now().UTC(),
	}

	if err := f.votes.Write(ctx, rec); err != nil {
		f.fail()
		log.Warn("vote not saved", zap.Error(err))
		return Result{}, asStoreError(err)
	}

	f.transition(Success)
	log.Info("vote saved", zap.String("vote_id", rec.ID))

	res := Result{Record: rec, Message: SavedMessage}

	entries, err := f.refresh(ctx)
	if err != nil {
		log.Warn("tally refresh after vote failed", zap.Error(err))
		return res, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	res.Tally = entries

	if f.publish != nil {
		if err := f.publish.Render(ctx, entries); err != nil {
			log.Warn("publish tally", zap.Error(err))
		}
	}
	return res, nil
}

// Refresh recomputes and renders the tally without voting. On error nothing
// is rendered.
func (f *Flow) Refresh(ctx context.Context) ([]domain.TallyEntry, error) {
	entries, err := f.refresh(ctx)
	if err != nil {
		f.logger.Warn("tally refresh failed", zap.Error(err))
		return nil, err
	}
	return entries, nil
}

func (f *Flow) refresh(ctx context.Context) ([]domain.TallyEntry, error) {
	entries, err := f.tally.Tally(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.presenter.Render(ctx, entries); err != nil {
		return nil, fmt.Errorf("render tally: %w", err)
	}
	return entries, nil
}

func (f *Flow) begin() error {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return ErrSubmissionInProgress
	}
	from := f.state
	f.state = Submitting
	f.mu.Unlock()

	f.notify(from, Submitting)
	return nil
}

// fail records Submitting -> Failed -> Idle so the caller may retry.
func (f *Flow) fail() {
	f.transition(Failed)
	f.transition(Idle)
}

func (f *Flow) transition(to State) {
	f.mu.Lock()
	from := f.state
	f.state = to
	f.mu.Unlock()

	f.notify(from, to)
}

func (f *Flow) notify(from, to State) {
	f.logger.Debug("vote flow transition", zap.Stringer("from", from), zap.Stringer("to", to))
	if f.onChange != nil {
		f.onChange(from, to)
	}
}

func asStoreError(err error) error {
	var storeErr *storage.Error
	if errors.As(err, &storeErr) {
		return err
	}
	return &storage.Error{Backend: "store", Op: storage.OpWrite, Err: err}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
