package inmemdb

import (
	"context"
	"sort"

	"github.com/definite-d/zonosign-backend/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db.session}
}

// clone copies the slices and maps of sess so callers never share them with the table.
func clone(sess session.Session) session.Session {
	sess.Data.DetectedSigns = append([]session.Detection(nil), sess.Data.DetectedSigns...)
	settings := make(map[string]interface{}, len(sess.Data.Settings))
	for k, v := range sess.Data.Settings {
		settings[k] = v
	}
	sess.Data.Settings = settings
	return sess
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t[sess.ID]; ok {
		return session.Session{}, session.ErrConflict
	}
	for _, s := range repo.db.t {
		if s.UserID == sess.UserID && s.Kind == sess.Kind && s.Active() {
			return session.Session{}, session.ErrConflict
		}
	}
	stored := clone(sess)
	repo.db.t[sess.ID] = &stored
	return sess, nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.t[id]; ok {
		return clone(*s), nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) GetActiveSession(_ context.Context, userID string, k session.Kind) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.t {
		if s.UserID == userID && s.Kind == k && s.Active() {
			return clone(*s), nil
		}
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) filter(match func(session.Session) bool) []session.Session {
	sessions := make([]session.Session, 0)
	for _, s := range repo.db.t {
		if match(*s) {
			sessions = append(sessions, clone(*s))
		}
	}
	return sessions
}

func (repo *sessionRepository) QueryActiveSessions(_ context.Context) ([]session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := repo.filter(session.Session.Active)
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })
	return sessions, nil
}

func (repo *sessionRepository) QuerySessions(_ context.Context, userID string) ([]session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := repo.filter(func(s session.Session) bool { return s.UserID == userID })
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartTime.Equal(sessions[j].StartTime) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions, nil
}

func (repo *sessionRepository) UpdateSession(_ context.Context, sess session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.t[sess.ID]
	if !ok || !orig.Active() {
		return session.Session{}, session.ErrConflict
	}
	stored := clone(sess)
	repo.db.t[sess.ID] = &stored
	return sess, nil
}
