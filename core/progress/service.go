package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/catalog"
)

var (
	// repository errors
	ErrNotFound = errors.New("progress record not found")
	ErrConflict = errors.New("progress record conflict")

	msgAnotherInProgress = "another lesson already in progress"
	msgConcurrentChange  = "lesson progress changed concurrently"

	// LastAccessedDesc is the ordering used by ModuleProgress.
	LastAccessedDesc = core.DBOrdering{Field: "last_accessed", Ascending: false}
)

type (
	Repository interface {
		// GetRecord returns ErrNotFound when the user never started the lesson.
		GetRecord(ctx context.Context, userID string, lessonID int64) (Record, error)
		// GetActiveRecord returns the user's in_progress record or ErrNotFound.
		GetActiveRecord(ctx context.Context, userID string) (Record, error)
		QueryRecords(ctx context.Context, userID string, ordering ...core.DBOrdering) ([]Record, error)
		// CreateRecord returns ErrConflict if the record exists or another record is already in_progress.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		// UpdateRecord only applies when the stored status still equals expected; otherwise it returns ErrConflict.
		UpdateRecord(ctx context.Context, rec Record, expected Status) (Record, error)
	}

	Service struct {
		repo    Repository
		catalog catalog.Gateway
		locks   *core.KeyedMutex
		timeout time.Duration
		now     func() time.Time // mockable
	}
)

func NewService(repo Repository, gw catalog.Gateway, locks *core.KeyedMutex, conf *core.Config) *Service {
	if locks == nil {
		locks = core.NewKeyedMutex()
	}
	return &Service{
		repo:    repo,
		catalog: gw,
		locks:   locks,
		timeout: conf.Store.Timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc replaces the service clock.
func (svc *Service) SetNowFunc(now func() time.Time) {
	svc.now = now
}

// StartLesson opens the user's timer on an active lesson.
func (svc *Service) StartLesson(ctx context.Context, userID string, lessonID int64) (Record, error) {
	lsn, err := svc.catalog.ActiveLesson(ctx, lessonID)
	if err != nil {
		return Record{}, err
	}

	unlock := svc.locks.Lock(userID)
	defer unlock()

	ctx, cancel := core.WithTimeout(ctx, svc.timeout)
	defer cancel()

	rec, err := svc.repo.GetRecord(ctx, userID, lessonID)
	switch {
	case errors.Cause(err) == ErrNotFound:
		rec = Record{UserID: userID, ModuleID: lsn.ModuleID, LessonID: lsn.ID, Status: StatusNotStarted}
	case err != nil:
		return Record{}, core.AsUnavailable(err, "getting progress record")
	}

	now := svc.now()
	started, err := Start(rec, now)
	if err != nil {
		return Record{}, err
	}

	active, err := svc.repo.GetActiveRecord(ctx, userID)
	switch {
	case err == nil:
		if active.LessonID != lessonID {
			return Record{}, core.NewConflictError(msgAnotherInProgress)
		}
	case errors.Cause(err) != ErrNotFound:
		return Record{}, core.AsUnavailable(err, "getting active record")
	}

	if rec.IsNew() {
		started, err = svc.repo.CreateRecord(ctx, started)
	} else {
		started, err = svc.repo.UpdateRecord(ctx, started, StatusNotStarted)
	}
	if err != nil {
		if errors.Cause(err) == ErrConflict {
			return Record{}, core.NewConflictError(msgAnotherInProgress)
		}
		return Record{}, core.AsUnavailable(err, "saving progress record")
	}
	return started, nil
}

// CompleteLesson closes the user's timer on the lesson and stores score. Score must be in [0, 1].
func (svc *Service) CompleteLesson(ctx context.Context, userID string, lessonID int64, score float64) (Record, error) {
	if !(score >= 0 && score <= 1) { // rejects NaN too
		return Record{}, core.NewValidationError(
			errors.New("invalid score"),
			core.FieldError{Field: "score", Error: "score must be between 0 and 1"},
		)
	}
	if _, err := svc.catalog.Lesson(ctx, lessonID); err != nil {
		return Record{}, err
	}

	unlock := svc.locks.Lock(userID)
	defer unlock()

	ctx, cancel := core.WithTimeout(ctx, svc.timeout)
	defer cancel()

	rec, err := svc.repo.GetRecord(ctx, userID, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Record{}, core.NewConflictError(msgNotStarted)
		}
		return Record{}, core.AsUnavailable(err, "getting progress record")
	}

	completed, err := Complete(rec, score, svc.now())
	if err != nil {
		return Record{}, err
	}
	return svc.update(ctx, completed, StatusInProgress)
}

// AbandonLesson returns the user's in_progress lesson to not_started and frees the active slot.
func (svc *Service) AbandonLesson(ctx context.Context, userID string, lessonID int64) (Record, error) {
	unlock := svc.locks.Lock(userID)
	defer unlock()

	ctx, cancel := core.WithTimeout(ctx, svc.timeout)
	defer cancel()

	rec, err := svc.repo.GetRecord(ctx, userID, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Record{}, core.NewNotFoundError("progress record not found")
		}
		return Record{}, core.AsUnavailable(err, "getting progress record")
	}

	abandoned, err := Abandon(rec, svc.now())
	if err != nil {
		return Record{}, err
	}
	return svc.update(ctx, abandoned, StatusInProgress)
}

func (svc *Service) update(ctx context.Context, rec Record, expected Status) (Record, error) {
	rec, err := svc.repo.UpdateRecord(ctx, rec, expected)
	if err != nil {
		if errors.Cause(err) == ErrConflict {
			return Record{}, core.NewConflictError(msgConcurrentChange)
		}
		return Record{}, core.AsUnavailable(err, "updating progress record")
	}
	return rec, nil
}

// Overview recomputes the user's summary from the catalog and the stored records.
func (svc *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	cur, err := svc.catalog.ActiveCurriculum(ctx)
	if err != nil {
		return Overview{}, err
	}

	ctx, cancel := core.WithTimeout(ctx, svc.timeout)
	defer cancel()

	records, err := svc.repo.QueryRecords(ctx, userID)
	if err != nil {
		return Overview{}, core.AsUnavailable(err, "querying progress records")
	}
	return Summarize(cur, records), nil
}

// ModuleProgress lists every record of the user, most recently accessed first.
func (svc *Service) ModuleProgress(ctx context.Context, userID string) ([]Record, error) {
	ctx, cancel := core.WithTimeout(ctx, svc.timeout)
	defer cancel()

	records, err := svc.repo.QueryRecords(ctx, userID, LastAccessedDesc)
	if err != nil {
		return nil, core.AsUnavailable(err, "querying progress records")
	}
	return records, nil
}
