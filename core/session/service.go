package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/catalog"
	"github.com/definite-d/zonosign-backend/core/progress"
)

var (
	// repository errors
	ErrNotFound = errors.New("session not found")
	ErrConflict = errors.New("session conflict")

	msgNotFound      = "session not found"
	msgClosed        = "session already ended"
	msgNotOwner      = "session belongs to another user"
	msgActiveSession = "an active %s session already exists"
)

type (
	Repository interface {
		// CreateSession returns ErrConflict when the user already has an open session of the same kind.
		CreateSession(ctx context.Context, sess Session) (Session, error)
		// GetSession returns ErrNotFound for unknown ids.
		GetSession(ctx context.Context, id string) (Session, error)
		// GetActiveSession returns the user's open session of kind k or ErrNotFound.
		GetActiveSession(ctx context.Context, userID string, k Kind) (Session, error)
		QueryActiveSessions(ctx context.Context) ([]Session, error)
		// QuerySessions lists the user's sessions, newest first.
		QuerySessions(ctx context.Context, userID string) ([]Session, error)
		// UpdateSession only applies to open sessions; a closed one yields ErrConflict.
		UpdateSession(ctx context.Context, sess Session) (Session, error)
	}

	Recognizer interface {
		Recognize(ctx context.Context, sess Session, frame Frame) (Recognition, error)
	}

	// LessonTracker abandons the lesson a timed out session was bound to.
	LessonTracker interface {
		AbandonLesson(ctx context.Context, userID string, lessonID int64) (progress.Record, error)
	}

	Service struct {
		repo        Repository
		registry    *Registry
		catalog     catalog.Gateway
		recognizer  Recognizer
		lessons     LessonTracker
		locks       *core.KeyedMutex
		logger      core.Logger
		idleTimeout time.Duration
		storeTO     time.Duration
		recognizeTO time.Duration
		now         func() time.Time // mockable
		newID       func() (uuid.UUID, error)
	}

	Deps struct {
		Repo       Repository
		Catalog    catalog.Gateway
		Recognizer Recognizer
		Lessons    LessonTracker
		Locks      *core.KeyedMutex
		Logger     core.Logger
	}
)

func NewService(deps Deps, conf *core.Config) *Service {
	locks := deps.Locks
	if locks == nil {
		locks = core.NewKeyedMutex()
	}
	return &Service{
		repo:        deps.Repo,
		registry:    NewRegistry(),
		catalog:     deps.Catalog,
		recognizer:  deps.Recognizer,
		lessons:     deps.Lessons,
		locks:       locks,
		logger:      deps.Logger,
		idleTimeout: conf.Session.IdleTimeout,
		storeTO:     conf.Store.Timeout,
		recognizeTO: conf.Recognition.Timeout,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewV7,
	}
}

// SetNowFunc replaces the service clock.
func (svc *Service) SetNowFunc(now func() time.Time) {
	svc.now = now
}

// SetIdleTimeout overrides the configured idle window.
func (svc *Service) SetIdleTimeout(d time.Duration) {
	svc.idleTimeout = d
}

func (svc *Service) Registry() *Registry {
	return svc.registry
}

// Restore loads the sessions still open in the store into the registry.
func (svc *Service) Restore(ctx context.Context) error {
	ctx, cancel := core.WithTimeout(ctx, svc.storeTO)
	defer cancel()

	sessions, err := svc.repo.QueryActiveSessions(ctx)
	if err != nil {
		return core.AsUnavailable(err, "querying active sessions")
	}
	svc.registry.Load(sessions)
	return nil
}

// StartSession opens a session of kind k for the user.
func (svc *Service) StartSession(ctx context.Context, userID string, k Kind, lessonID *int64, cfg Config) (Session, error) {
	if !k.Valid() {
		return Session{}, core.NewValidationError(
			errors.New("invalid session type"),
			core.FieldError{Field: "session_type", Error: "session_type must be one of practice, transcription, assessment"},
		)
	}
	if k.LessonBound() && lessonID == nil {
		return Session{}, core.NewValidationError(
			errors.New("lesson required"),
			core.FieldError{Field: "lesson_id", Error: fmt.Sprintf("lesson_id is required for %s sessions", k)},
		)
	}
	if lessonID != nil {
		if _, err := svc.catalog.ActiveLesson(ctx, *lessonID); err != nil {
			return Session{}, err
		}
	}

	unlock := svc.locks.Lock(userID)
	defer unlock()

	ctx, cancel := core.WithTimeout(ctx, svc.storeTO)
	defer cancel()

	if open, err := svc.repo.GetActiveSession(ctx, userID, k); err == nil {
		svc.registry.loadOrStore(open)
		return Session{}, core.NewConflictError(fmt.Sprintf(msgActiveSession, k))
	} else if errors.Cause(err) != ErrNotFound {
		return Session{}, core.AsUnavailable(err, "getting active session")
	}
	// the store has none open; any registry entry left is one another process closed
	svc.registry.dropFor(userID, k)

	id, err := svc.newID()
	if err != nil {
		return Session{}, errors.Wrap(err, "generating session id")
	}
	now := svc.now()
	settings := cfg.Settings
	if settings == nil {
		settings = make(map[string]interface{})
	}
	sess := Session{
		ID:           id.String(),
		UserID:       userID,
		Kind:         k,
		LessonID:     lessonID,
		StartTime:    now,
		LastActivity: now,
		Data: Data{
			Language:      core.NormalizeLanguage(cfg.Language),
			Settings:      settings,
			DetectedSigns: make([]Detection, 0),
		},
	}

	sess, err = svc.repo.CreateSession(ctx, sess)
	if err != nil {
		if errors.Cause(err) == ErrConflict {
			return Session{}, core.NewConflictError(fmt.Sprintf(msgActiveSession, k))
		}
		return Session{}, core.AsUnavailable(err, "creating session")
	}
	svc.registry.loadOrStore(sess)
	return sess, nil
}

// lookup finds the registry entry for id, falling back to the store for sessions this process has not seen.
// Closed sessions found in the store are returned without an entry.
func (svc *Service) lookup(ctx context.Context, id string) (*entry, Session, error) {
	if e, ok := svc.registry.get(id); ok {
		return e, Session{}, nil
	}

	ctx, cancel := core.WithTimeout(ctx, svc.storeTO)
	defer cancel()

	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, Session{}, core.NewNotFoundError(msgNotFound)
		}
		return nil, Session{}, core.AsUnavailable(err, "getting session")
	}
	if !sess.Active() {
		return nil, sess, nil
	}
	return svc.registry.loadOrStore(sess), sess, nil
}

// ProcessFrame runs one frame through the recognizer and appends the result to the session.
// Frames of a session are applied one at a time, in arrival order.
func (svc *Service) ProcessFrame(ctx context.Context, id, callerID string, frame Frame) (FrameResult, error) {
	e, stored, err := svc.lookup(ctx, id)
	if err != nil {
		return FrameResult{}, err
	}
	if e == nil {
		if stored.UserID != callerID {
			return FrameResult{}, core.NewNotFoundError(msgNotFound)
		}
		return FrameResult{}, core.NewConflictError(msgClosed)
	}
	if e.userID != callerID {
		return FrameResult{}, core.NewNotFoundError(msgNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return FrameResult{}, core.NewConflictError(msgClosed)
	}

	rctx, cancel := core.WithTimeout(ctx, svc.recognizeTO)
	rec, err := svc.recognizer.Recognize(rctx, e.sess, frame)
	cancel()
	if err != nil {
		return FrameResult{}, core.AsUnavailable(err, "recognizing frame")
	}
	if rec.Detections == nil {
		rec.Detections = make([]Detection, 0)
	}

	now := svc.now()
	next := e.sess.apply(rec, now)

	sctx, cancel := core.WithTimeout(ctx, svc.storeTO)
	defer cancel()
	if _, err = svc.repo.UpdateSession(sctx, next); err != nil {
		if errors.Cause(err) == ErrConflict {
			e.markClosed(e.sess)
			svc.registry.remove(id)
			return FrameResult{}, core.NewConflictError(msgClosed)
		}
		return FrameResult{}, core.AsUnavailable(err, "updating session")
	}
	e.sess = next

	return FrameResult{
		SessionID:       next.ID,
		FrameSeq:        next.Data.FrameCount,
		Confidence:      rec.Confidence,
		DetectedSigns:   rec.Detections,
		TranscribedText: rec.Text,
		Transcript:      next.Data.Transcript,
		Timestamp:       now,
	}, nil
}

// EndSession closes the caller's session.
func (svc *Service) EndSession(ctx context.Context, id, callerID string) (Session, error) {
	e, stored, err := svc.lookup(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if e == nil {
		if stored.UserID != callerID {
			return Session{}, core.NewForbiddenError(msgNotOwner)
		}
		return Session{}, core.NewConflictError(msgClosed)
	}
	if e.userID != callerID {
		return Session{}, core.NewForbiddenError(msgNotOwner)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return svc.close(ctx, e)
}

// close ends the session held by e. The caller holds e.mu.
func (svc *Service) close(ctx context.Context, e *entry) (Session, error) {
	if e.closed.Load() {
		return Session{}, core.NewConflictError(msgClosed)
	}

	closed := e.sess.close(svc.now())

	ctx, cancel := core.WithTimeout(ctx, svc.storeTO)
	defer cancel()
	if _, err := svc.repo.UpdateSession(ctx, closed); err != nil {
		if errors.Cause(err) == ErrConflict {
			e.markClosed(e.sess)
			svc.registry.remove(e.sess.ID)
			return Session{}, core.NewConflictError(msgClosed)
		}
		return Session{}, core.AsUnavailable(err, "ending session")
	}
	e.markClosed(closed)
	svc.registry.remove(closed.ID)
	return closed, nil
}

// Session returns one of the caller's sessions.
func (svc *Service) Session(ctx context.Context, id, callerID string) (Session, error) {
	if e, ok := svc.registry.get(id); ok && e.userID == callerID {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.sess, nil
	}

	ctx, cancel := core.WithTimeout(ctx, svc.storeTO)
	defer cancel()

	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Session{}, core.NewNotFoundError(msgNotFound)
		}
		return Session{}, core.AsUnavailable(err, "getting session")
	}
	if sess.UserID != callerID {
		return Session{}, core.NewNotFoundError(msgNotFound)
	}
	return sess, nil
}

// History lists the caller's sessions, newest first.
func (svc *Service) History(ctx context.Context, userID string) ([]Session, error) {
	ctx, cancel := core.WithTimeout(ctx, svc.storeTO)
	defer cancel()

	sessions, err := svc.repo.QuerySessions(ctx, userID)
	if err != nil {
		return nil, core.AsUnavailable(err, "querying sessions")
	}
	return sessions, nil
}

// SweepIdle closes every session idle for longer than the idle timeout and abandons its bound lesson.
// Sessions closed concurrently by their owner are skipped.
func (svc *Service) SweepIdle(ctx context.Context) ([]Session, error) {
	cutoff := svc.now().Add(-svc.idleTimeout)
	swept := make([]Session, 0)

	for _, id := range svc.registry.idleSince(cutoff) {
		e, ok := svc.registry.get(id)
		if !ok {
			continue
		}

		e.mu.Lock()
		if e.closed.Load() || !e.sess.LastActivity.Before(cutoff) {
			e.mu.Unlock()
			continue
		}
		closed, err := svc.close(ctx, e)
		e.mu.Unlock()

		if err != nil {
			if core.IsConflict(err) {
				continue
			}
			return swept, errors.Wrapf(err, "closing idle session %s", id)
		}
		swept = append(swept, closed)
		svc.log("session timed out", closed)

		if closed.LessonID != nil && svc.lessons != nil {
			_, err = svc.lessons.AbandonLesson(ctx, closed.UserID, *closed.LessonID)
			if err != nil && !core.IsConflict(err) && !core.IsNotFound(err) && svc.logger != nil {
				svc.logger.Error(fmt.Sprintf("abandoning lesson %d", *closed.LessonID), err, core.LogUser{ID: closed.UserID})
			}
		}
	}
	return swept, nil
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (svc *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.SweepIdle(ctx); err != nil && svc.logger != nil {
				svc.logger.Error(fmt.Sprintf("sweeping idle sessions: %v", err), err)
			}
		}
	}
}

func (svc *Service) log(msg string, sess Session) {
	if svc.logger == nil {
		return
	}
	svc.logger.Info(msg, map[string]interface{}{
		"session_id":   sess.ID,
		"session_type": sess.Kind,
		"duration":     sess.Duration,
	}, core.LogUser{ID: sess.UserID})
}
