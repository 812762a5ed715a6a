package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/progress"
)

const recordColumns = "id, user_id, module_id, lesson_id, status, progress, score, time_spent, started_at, completed_at, last_accessed"

var recordOrderings = map[string]bool{
	"last_accessed": true,
	"started_at":    true,
	"completed_at":  true,
	"lesson_id":     true,
	"id":            true,
}

type recordRow struct {
	ID           int64        `db:"id"`
	UserID       string       `db:"user_id"`
	ModuleID     int64        `db:"module_id"`
	LessonID     int64        `db:"lesson_id"`
	Status       string       `db:"status"`
	Progress     float64      `db:"progress"`
	Score        null.Float64 `db:"score"`
	TimeSpent    int64        `db:"time_spent"`
	StartedAt    null.String  `db:"started_at"`
	CompletedAt  null.String  `db:"completed_at"`
	LastAccessed string       `db:"last_accessed"`
}

func (row recordRow) record() (progress.Record, error) {
	rec := progress.Record{
		ID:        row.ID,
		UserID:    row.UserID,
		ModuleID:  row.ModuleID,
		LessonID:  row.LessonID,
		Status:    progress.Status(row.Status),
		Progress:  row.Progress,
		Score:     row.Score.Ptr(),
		TimeSpent: row.TimeSpent,
	}
	var err error
	if rec.StartedAt, err = parseNullTime(row.StartedAt); err != nil {
		return progress.Record{}, err
	}
	if rec.CompletedAt, err = parseNullTime(row.CompletedAt); err != nil {
		return progress.Record{}, err
	}
	if rec.LastAccessed, err = parseTime(row.LastAccessed); err != nil {
		return progress.Record{}, err
	}
	return rec, nil
}

type progressRepository struct {
	db core.DB
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db core.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) getOne(ctx context.Context, where string, args ...interface{}) (progress.Record, error) {
	var row recordRow
	q := repo.db.Rebind("SELECT " + recordColumns + " FROM user_progress WHERE " + where)
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return progress.Record{}, progress.ErrNotFound
		}
		return progress.Record{}, errors.Wrap(err, "selecting progress record")
	}
	return row.record()
}

func (repo *progressRepository) GetRecord(ctx context.Context, userID string, lessonID int64) (progress.Record, error) {
	return repo.getOne(ctx, "user_id = ? AND lesson_id = ?", userID, lessonID)
}

func (repo *progressRepository) GetActiveRecord(ctx context.Context, userID string) (progress.Record, error) {
	return repo.getOne(ctx, "user_id = ? AND status = ?", userID, string(progress.StatusInProgress))
}

func (repo *progressRepository) QueryRecords(ctx context.Context, userID string, ordering ...core.DBOrdering) ([]progress.Record, error) {
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if recordOrderings[ord.Field] {
			orderBy = append(orderBy, ord.String())
		}
	}
	orderBy = append(orderBy, "id DESC")

	q := repo.db.Rebind("SELECT " + recordColumns + " FROM user_progress WHERE user_id = ? ORDER BY " + strings.Join(orderBy, ", "))
	rows := make([]recordRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "selecting progress records")
	}

	records := make([]progress.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (repo *progressRepository) CreateRecord(ctx context.Context, rec progress.Record) (progress.Record, error) {
	q := repo.db.Rebind(`INSERT INTO user_progress
		(user_id, module_id, lesson_id, status, progress, score, time_spent, started_at, completed_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := repo.db.QueryRowxContext(
		ctx, q,
		rec.UserID, rec.ModuleID, rec.LessonID, string(rec.Status), rec.Progress, null.Float64FromPtr(rec.Score),
		rec.TimeSpent, formatNullTime(rec.StartedAt), formatNullTime(rec.CompletedAt), formatTime(rec.LastAccessed),
	).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return progress.Record{}, progress.ErrConflict
		}
		return progress.Record{}, errors.Wrap(err, "inserting progress record")
	}
	return rec, nil
}

func (repo *progressRepository) UpdateRecord(ctx context.Context, rec progress.Record, expected progress.Status) (progress.Record, error) {
	q := repo.db.Rebind(`UPDATE user_progress
		SET status = ?, progress = ?, score = ?, time_spent = ?, started_at = ?, completed_at = ?, last_accessed = ?
		WHERE id = ? AND status = ?`)
	res, err := repo.db.ExecContext(
		ctx, q,
		string(rec.Status), rec.Progress, null.Float64FromPtr(rec.Score), rec.TimeSpent,
		formatNullTime(rec.StartedAt), formatNullTime(rec.CompletedAt), formatTime(rec.LastAccessed),
		rec.ID, string(expected),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return progress.Record{}, progress.ErrConflict
		}
		return progress.Record{}, errors.Wrap(err, "updating progress record")
	}
	if err = checkUpdated(res, "user_progress", rec.ID, progress.ErrConflict); err != nil {
		return progress.Record{}, err
	}
	return rec, nil
}
