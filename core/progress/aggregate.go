package progress

import (
	"math"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/catalog"
)

// Summarize derives the overview from the active curriculum and the user's records.
// A module counts as completed only when it has active lessons and all of them are completed.
func Summarize(cur catalog.Curriculum, records []Record) Overview {
	byLesson := make(map[int64]Record, len(records))
	var ov Overview
	for _, rec := range records {
		byLesson[rec.LessonID] = rec
		ov.TimeSpentTotal += rec.TimeSpent
	}
	ov.TotalModules = len(cur)

	var lessons int
	var sum float64
	for _, mod := range cur {
		var done int
		for _, lsn := range mod.Lessons {
			lessons++
			rec, ok := byLesson[lsn.ID]
			if !ok {
				continue
			}
			sum += core.Clamp(rec.Progress, 0, 1)
			if rec.Status == StatusCompleted {
				done++
			}
		}

		if len(mod.Lessons) == 0 {
			continue
		}
		if done == len(mod.Lessons) {
			ov.CompletedModules++
		} else if ov.CurrentModule == nil {
			id := mod.ID
			ov.CurrentModule = &id
		}
	}

	if lessons > 0 {
		pct := core.Clamp(100*sum/float64(lessons), 0, 100)
		ov.OverallProgress = math.Round(pct*100) / 100
	}
	return ov
}
