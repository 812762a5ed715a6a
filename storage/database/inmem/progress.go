package inmemdb

import (
	"context"
	"sort"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/progress"
)

type progressRepository struct {
	db *progressTable
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db.progress}
}

func (repo *progressRepository) find(match func(progress.Record) bool) (progress.Record, bool) {
	for _, rec := range repo.db.t {
		if match(*rec) {
			return *rec, true
		}
	}
	return progress.Record{}, false
}

func (repo *progressRepository) GetRecord(_ context.Context, userID string, lessonID int64) (progress.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.find(func(r progress.Record) bool { return r.UserID == userID && r.LessonID == lessonID }); ok {
		return rec, nil
	}
	return progress.Record{}, progress.ErrNotFound
}

func (repo *progressRepository) GetActiveRecord(_ context.Context, userID string) (progress.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.find(func(r progress.Record) bool { return r.UserID == userID && r.Status == progress.StatusInProgress }); ok {
		return rec, nil
	}
	return progress.Record{}, progress.ErrNotFound
}

func (repo *progressRepository) QueryRecords(_ context.Context, userID string, ordering ...core.DBOrdering) ([]progress.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]progress.Record, 0)
	for _, rec := range repo.db.t {
		if rec.UserID == userID {
			records = append(records, *rec)
		}
	}

	byLastAccessed := false
	ascending := false
	for _, ord := range ordering {
		if ord.Field == "last_accessed" {
			byLastAccessed, ascending = true, ord.Ascending
			break
		}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if byLastAccessed && !a.LastAccessed.Equal(b.LastAccessed) {
			if ascending {
				return a.LastAccessed.Before(b.LastAccessed)
			}
			return a.LastAccessed.After(b.LastAccessed)
		}
		return a.ID > b.ID
	})
	return records, nil
}

// conflicts reports whether rec would break the (user, lesson) key or the single in_progress slot.
func (repo *progressRepository) conflicts(rec progress.Record) bool {
	_, ok := repo.find(func(r progress.Record) bool {
		if r.ID == rec.ID {
			return false
		}
		if r.UserID != rec.UserID {
			return false
		}
		return r.LessonID == rec.LessonID ||
			(r.Status == progress.StatusInProgress && rec.Status == progress.StatusInProgress)
	})
	return ok
}

func (repo *progressRepository) CreateRecord(_ context.Context, rec progress.Record) (progress.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.conflicts(rec) {
		return progress.Record{}, progress.ErrConflict
	}
	repo.db.pk++
	rec.ID = repo.db.pk
	repo.db.t[rec.ID] = &rec
	return rec, nil
}

func (repo *progressRepository) UpdateRecord(_ context.Context, rec progress.Record, expected progress.Status) (progress.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.t[rec.ID]
	if !ok || orig.Status != expected || repo.conflicts(rec) {
		return progress.Record{}, progress.ErrConflict
	}
	repo.db.t[rec.ID] = &rec
	return rec, nil
}
