package inmemdb

import (
	"sync"

	"github.com/definite-d/zonosign-backend/core/catalog"
	"github.com/definite-d/zonosign-backend/core/progress"
	"github.com/definite-d/zonosign-backend/core/session"
)

type (
	// DB holds every table in memory. Used in development without a database and in service tests.
	DB struct {
		catalog  *catalogTable
		progress *progressTable
		session  *sessionTable
	}

	catalogTable struct {
		modules map[int64]catalog.Module
		lessons map[int64]catalog.Lesson
		mutex   sync.RWMutex
	}

	progressTable struct {
		t     map[int64]*progress.Record
		pk    int64
		mutex sync.RWMutex
	}

	sessionTable struct {
		t     map[string]*session.Session
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		catalog: &catalogTable{
			modules: make(map[int64]catalog.Module),
			lessons: make(map[int64]catalog.Lesson),
		},
		progress: &progressTable{t: make(map[int64]*progress.Record)},
		session:  &sessionTable{t: make(map[string]*session.Session)},
	}
}
