package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core"
)

var ErrNotFound = errors.New("lesson not found")

type (
	// Repository is a read-only view over the curriculum catalog.
	Repository interface {
		// GetLesson returns ErrNotFound when no lesson has that id.
		GetLesson(ctx context.Context, id int64) (Lesson, error)
		QueryModules(ctx context.Context, activeOnly bool) ([]Module, error)
		QueryLessons(ctx context.Context, activeOnly bool) ([]Lesson, error)
	}

	// Gateway reads the catalog on behalf of the engine.
	Gateway interface {
		Lesson(ctx context.Context, id int64) (Lesson, error)
		ActiveLesson(ctx context.Context, id int64) (Lesson, error)
		ActiveCurriculum(ctx context.Context) (Curriculum, error)
	}

	Service struct {
		repo    Repository
		timeout time.Duration
	}
)

var _ Gateway = (*Service)(nil)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, timeout: conf.Catalog.Timeout}
}

// Lesson returns the lesson regardless of its active flag.
func (svc *Service) Lesson(ctx context.Context, id int64) (Lesson, error) {
	ctx, cancel := core.WithTimeout(ctx, svc.timeout)
	defer cancel()

	lsn, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Lesson{}, core.NewNotFoundError(fmt.Sprintf("lesson %d not found", id))
		}
		return Lesson{}, core.AsUnavailable(err, "getting lesson")
	}
	return lsn, nil
}

// ActiveLesson returns the lesson only if it is active.
func (svc *Service) ActiveLesson(ctx context.Context, id int64) (Lesson, error) {
	lsn, err := svc.Lesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if !lsn.IsActive {
		return Lesson{}, core.NewNotFoundError(fmt.Sprintf("lesson %d not found", id))
	}
	return lsn, nil
}

func (svc *Service) ActiveCurriculum(ctx context.Context) (Curriculum, error) {
	ctx, cancel := core.WithTimeout(ctx, svc.timeout)
	defer cancel()

	modules, err := svc.repo.QueryModules(ctx, true)
	if err != nil {
		return nil, core.AsUnavailable(err, "querying modules")
	}
	lessons, err := svc.repo.QueryLessons(ctx, true)
	if err != nil {
		return nil, core.AsUnavailable(err, "querying lessons")
	}
	return BuildCurriculum(modules, lessons), nil
}

// BuildCurriculum groups active lessons under active modules. Ties on order index fall back to id.
func BuildCurriculum(modules []Module, lessons []Lesson) Curriculum {
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].OrderIndex == modules[j].OrderIndex {
			return modules[i].ID < modules[j].ID
		}
		return modules[i].OrderIndex < modules[j].OrderIndex
	})
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].OrderIndex == lessons[j].OrderIndex {
			return lessons[i].ID < lessons[j].ID
		}
		return lessons[i].OrderIndex < lessons[j].OrderIndex
	})

	byModule := make(map[int64][]Lesson, len(modules))
	for _, lsn := range lessons {
		if lsn.IsActive {
			byModule[lsn.ModuleID] = append(byModule[lsn.ModuleID], lsn)
		}
	}

	cur := make(Curriculum, 0, len(modules))
	for _, mod := range modules {
		if !mod.IsActive {
			continue
		}
		cur = append(cur, ModuleLessons{Module: mod, Lessons: byModule[mod.ID]})
	}
	return cur
}
