package inmemdb

import (
	"context"
	"sort"

	"github.com/definite-d/zonosign-backend/core/catalog"
)

type catalogRepository struct {
	db *catalogTable
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db.catalog}
}

func (repo *catalogRepository) GetLesson(_ context.Context, id int64) (catalog.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok {
		return lsn, nil
	}
	return catalog.Lesson{}, catalog.ErrNotFound
}

func (repo *catalogRepository) QueryModules(_ context.Context, activeOnly bool) ([]catalog.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	modules := make([]catalog.Module, 0, len(repo.db.modules))
	for _, m := range repo.db.modules {
		if !activeOnly || m.IsActive {
			modules = append(modules, m)
		}
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].OrderIndex == modules[j].OrderIndex {
			return modules[i].ID < modules[j].ID
		}
		return modules[i].OrderIndex < modules[j].OrderIndex
	})
	return modules, nil
}

func (repo *catalogRepository) QueryLessons(_ context.Context, activeOnly bool) ([]catalog.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := make([]catalog.Lesson, 0, len(repo.db.lessons))
	for _, l := range repo.db.lessons {
		if !activeOnly || l.IsActive {
			lessons = append(lessons, l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].OrderIndex == lessons[j].OrderIndex {
			return lessons[i].ID < lessons[j].ID
		}
		return lessons[i].OrderIndex < lessons[j].OrderIndex
	})
	return lessons, nil
}

func (repo *catalogRepository) SaveCatalog(_ context.Context, modules []catalog.Module, lessons []catalog.Lesson) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, m := range modules {
		repo.db.modules[m.ID] = m
	}
	for _, l := range lessons {
		repo.db.lessons[l.ID] = l
	}
	return nil
}
