package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/catalog"
	"github.com/definite-d/zonosign-backend/storage/database"
	"github.com/definite-d/zonosign-backend/storage/database/sqlx"
)

var (
	Modules = []catalog.Module{
		{ID: 1, Title: "Visual Communication Fundamentals", OrderIndex: 1, DifficultyLevel: 1, EstimatedDuration: 180, IsActive: true},
		{ID: 2, Title: "Handshape and Movement Basics", OrderIndex: 2, DifficultyLevel: 1, EstimatedDuration: 240, IsActive: true},
		{ID: 3, Title: "Archived", OrderIndex: 3, DifficultyLevel: 2, IsActive: false},
	}
	Lessons = []catalog.Lesson{
		{ID: 1, ModuleID: 1, Title: "Understanding Visual Space", OrderIndex: 1, EstimatedDuration: 30, IsActive: true},
		{ID: 2, ModuleID: 1, Title: "Facial Expression Recognition", OrderIndex: 2, EstimatedDuration: 45, IsActive: true},
		{ID: 3, ModuleID: 2, Title: "Basic Handshapes", OrderIndex: 1, EstimatedDuration: 30, IsActive: true},
		{ID: 4, ModuleID: 2, Title: "Retired Drill", OrderIndex: 2, EstimatedDuration: 10, IsActive: false},
	}
)

// PrepareDB opens a migrated in-memory sqlite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("database.Open(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate(): %v", err)
	}
	return db
}

// SeedCatalog saves Modules and Lessons into db.
func SeedCatalog(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if err := sqlxrepos.NewCatalogRepository(db).SaveCatalog(context.Background(), Modules, Lessons); err != nil {
		t.Fatalf("SaveCatalog(): %v", err)
	}
}
