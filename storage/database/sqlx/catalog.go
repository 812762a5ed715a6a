package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/catalog"
)

const (
	moduleColumns = "id, title, description, order_index, difficulty_level, estimated_duration, is_active"
	lessonColumns = "id, module_id, title, description, order_index, estimated_duration, is_active"
)

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db core.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) GetLesson(ctx context.Context, id int64) (catalog.Lesson, error) {
	var lsn catalog.Lesson
	q := repo.db.Rebind("SELECT " + lessonColumns + " FROM lessons WHERE id = ?")
	if err := repo.db.GetContext(ctx, &lsn, q, id); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Lesson{}, catalog.ErrNotFound
		}
		return catalog.Lesson{}, errors.Wrap(err, "selecting lesson")
	}
	return lsn, nil
}

func (repo *catalogRepository) QueryModules(ctx context.Context, activeOnly bool) ([]catalog.Module, error) {
	q := "SELECT " + moduleColumns + " FROM modules"
	if activeOnly {
		q += " WHERE is_active = ?"
	}
	q += " ORDER BY order_index ASC, id ASC"

	modules := make([]catalog.Module, 0)
	var err error
	if activeOnly {
		err = repo.db.SelectContext(ctx, &modules, repo.db.Rebind(q), true)
	} else {
		err = repo.db.SelectContext(ctx, &modules, q)
	}
	return modules, errors.Wrap(err, "selecting modules")
}

func (repo *catalogRepository) QueryLessons(ctx context.Context, activeOnly bool) ([]catalog.Lesson, error) {
	q := "SELECT " + lessonColumns + " FROM lessons"
	if activeOnly {
		q += " WHERE is_active = ?"
	}
	q += " ORDER BY module_id ASC, order_index ASC, id ASC"

	lessons := make([]catalog.Lesson, 0)
	var err error
	if activeOnly {
		err = repo.db.SelectContext(ctx, &lessons, repo.db.Rebind(q), true)
	} else {
		err = repo.db.SelectContext(ctx, &lessons, q)
	}
	return lessons, errors.Wrap(err, "selecting lessons")
}

// SaveCatalog upserts modules and lessons by id in one transaction.
func (repo *catalogRepository) SaveCatalog(ctx context.Context, modules []catalog.Module, lessons []catalog.Lesson) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	modQ := tx.Rebind(`INSERT INTO modules (` + moduleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, description = excluded.description,
		order_index = excluded.order_index, difficulty_level = excluded.difficulty_level,
		estimated_duration = excluded.estimated_duration, is_active = excluded.is_active`)
	for _, m := range modules {
		_, err = tx.ExecContext(ctx, modQ, m.ID, m.Title, m.Description, m.OrderIndex, m.DifficultyLevel, m.EstimatedDuration, m.IsActive)
		if err != nil {
			return errors.Wrapf(err, "saving module %d", m.ID)
		}
	}

	lsnQ := tx.Rebind(`INSERT INTO lessons (` + lessonColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET module_id = excluded.module_id, title = excluded.title,
		description = excluded.description, order_index = excluded.order_index,
		estimated_duration = excluded.estimated_duration, is_active = excluded.is_active`)
	for _, l := range lessons {
		_, err = tx.ExecContext(ctx, lsnQ, l.ID, l.ModuleID, l.Title, l.Description, l.OrderIndex, l.EstimatedDuration, l.IsActive)
		if err != nil {
			return errors.Wrapf(err, "saving lesson %d", l.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing catalog")
}
