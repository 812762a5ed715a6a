package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/session"
)

const sessionColumns = "id, user_id, session_type, lesson_id, start_time, end_time, duration, accuracy_score, last_activity, session_data"

type sessionRow struct {
	ID            string       `db:"id"`
	UserID        string       `db:"user_id"`
	SessionType   string       `db:"session_type"`
	LessonID      null.Int64   `db:"lesson_id"`
	StartTime     string       `db:"start_time"`
	EndTime       null.String  `db:"end_time"`
	Duration      int64        `db:"duration"`
	AccuracyScore null.Float64 `db:"accuracy_score"`
	LastActivity  string       `db:"last_activity"`
	SessionData   string       `db:"session_data"`
}

func newSessionRow(sess session.Session) (sessionRow, error) {
	data, err := json.Marshal(sess.Data)
	if err != nil {
		return sessionRow{}, errors.Wrap(err, "encoding session data")
	}
	return sessionRow{
		ID:            sess.ID,
		UserID:        sess.UserID,
		SessionType:   string(sess.Kind),
		LessonID:      null.Int64FromPtr(sess.LessonID),
		StartTime:     formatTime(sess.StartTime),
		EndTime:       formatNullTime(sess.EndTime),
		Duration:      sess.Duration,
		AccuracyScore: null.Float64FromPtr(sess.Accuracy),
		LastActivity:  formatTime(sess.LastActivity),
		SessionData:   string(data),
	}, nil
}

func (row sessionRow) session() (session.Session, error) {
	sess := session.Session{
		ID:       row.ID,
		UserID:   row.UserID,
		Kind:     session.Kind(row.SessionType),
		LessonID: row.LessonID.Ptr(),
		Duration: row.Duration,
		Accuracy: row.AccuracyScore.Ptr(),
	}
	var err error
	if sess.StartTime, err = parseTime(row.StartTime); err != nil {
		return session.Session{}, err
	}
	if sess.EndTime, err = parseNullTime(row.EndTime); err != nil {
		return session.Session{}, err
	}
	if sess.LastActivity, err = parseTime(row.LastActivity); err != nil {
		return session.Session{}, err
	}
	if err = json.Unmarshal([]byte(row.SessionData), &sess.Data); err != nil {
		return session.Session{}, errors.Wrapf(err, "decoding session %s data", row.ID)
	}
	return sess, nil
}

type sessionRepository struct {
	db core.DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db core.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	row, err := newSessionRow(sess)
	if err != nil {
		return session.Session{}, err
	}
	q := repo.db.Rebind("INSERT INTO practice_sessions (" + sessionColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	_, err = repo.db.ExecContext(
		ctx, q,
		row.ID, row.UserID, row.SessionType, row.LessonID, row.StartTime, row.EndTime,
		row.Duration, row.AccuracyScore, row.LastActivity, row.SessionData,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return session.Session{}, session.ErrConflict
		}
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (repo *sessionRepository) getOne(ctx context.Context, where string, args ...interface{}) (session.Session, error) {
	var row sessionRow
	q := repo.db.Rebind("SELECT " + sessionColumns + " FROM practice_sessions WHERE " + where)
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "selecting session")
	}
	return row.session()
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	return repo.getOne(ctx, "id = ?", id)
}

func (repo *sessionRepository) GetActiveSession(ctx context.Context, userID string, k session.Kind) (session.Session, error) {
	return repo.getOne(ctx, "user_id = ? AND session_type = ? AND end_time IS NULL", userID, string(k))
}

func (repo *sessionRepository) query(ctx context.Context, q string, args ...interface{}) ([]session.Session, error) {
	rows := make([]sessionRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for _, row := range rows {
		sess, err := row.session()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (repo *sessionRepository) QueryActiveSessions(ctx context.Context) ([]session.Session, error) {
	return repo.query(ctx, "SELECT "+sessionColumns+" FROM practice_sessions WHERE end_time IS NULL ORDER BY start_time ASC")
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, userID string) ([]session.Session, error) {
	return repo.query(ctx, "SELECT "+sessionColumns+" FROM practice_sessions WHERE user_id = ? ORDER BY start_time DESC, id DESC", userID)
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	row, err := newSessionRow(sess)
	if err != nil {
		return session.Session{}, err
	}
	q := repo.db.Rebind(`UPDATE practice_sessions
		SET end_time = ?, duration = ?, accuracy_score = ?, last_activity = ?, session_data = ?
		WHERE id = ? AND end_time IS NULL`)
	res, err := repo.db.ExecContext(ctx, q, row.EndTime, row.Duration, row.AccuracyScore, row.LastActivity, row.SessionData, row.ID)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if err = checkUpdated(res, "practice_sessions", sess.ID, session.ErrConflict); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}
