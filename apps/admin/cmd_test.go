package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/definite-d/zonosign-backend/apps/api/echo"
	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/session"
	logsvc "github.com/definite-d/zonosign-backend/services/logger"
	sqlxrepos "github.com/definite-d/zonosign-backend/storage/database/sqlx"
	"github.com/definite-d/zonosign-backend/storage/database/testutil"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conf := core.NewTestConfig()

	// set up DB
	db := testutil.PrepareDB(t)
	testutil.SeedCatalog(t, db)

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	// start CLI
	var out bytes.Buffer
	cli := newCommandLine(db, conf, logger)
	cli.out = &out
	return cli, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("cli.run() output = %q, want it to contain %q", out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	var calls []string
	orig := runMigrationFunc
	defer func() { runMigrationFunc = orig }()
	runMigrationFunc = func(db *sqlx.DB, command string, args ...string) error {
		calls = append(calls, strings.Join(append([]string{command}, args...), " "))
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s), only received 0"},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
	})
	assert.Contains(t, calls, "up-to 2")
}

func Test_parseSeed(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantModules int
		wantLessons int
		wantErrStr  string
	}{
		{name: "empty", data: "", wantModules: 0, wantLessons: 0},
		{name: "bad yaml", data: "modules: [", wantErrStr: "decoding seed file"},
		{name: "module without title", data: "modules:\n  - id: 1\n", wantErrStr: `module "": id and title are required`},
		{name: "lesson without id", data: "modules:\n  - id: 1\n    title: M\n    lessons:\n      - title: L\n", wantErrStr: `module 1 lesson "L": id and title are required`},
		{name: "defaults", data: "modules:\n  - id: 1\n    title: M\n    lessons:\n      - id: 7\n        title: L\n        is_active: false\n", wantModules: 1, wantLessons: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modules, lessons, err := parseSeed([]byte(tt.data))
			if tt.wantErrStr != "" {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
				return
			}
			require.NoError(t, err)
			assert.Len(t, modules, tt.wantModules)
			assert.Len(t, lessons, tt.wantLessons)
		})
	}

	modules, lessons, err := parseSeed([]byte("modules:\n  - id: 1\n    title: M\n    lessons:\n      - id: 7\n        title: L\n        is_active: false\n"))
	require.NoError(t, err)
	assert.True(t, modules[0].IsActive)
	assert.Equal(t, 1, modules[0].DifficultyLevel)
	assert.False(t, lessons[0].IsActive)
	assert.Equal(t, int64(1), lessons[0].ModuleID)

	data, err := os.ReadFile(filepath.Join("..", "..", defaultSeedFile))
	require.NoError(t, err)
	modules, lessons, err = parseSeed(data)
	require.NoError(t, err)
	assert.Len(t, modules, 3)
	assert.Len(t, lessons, 2)
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)

	file := filepath.Join(t.TempDir(), "catalog.yaml")
	seed := "modules:\n  - id: 9\n    title: Fingerspelling\n    order_index: 9\n    lessons:\n      - id: 90\n        title: Alphabet\n        order_index: 1\n"
	require.NoError(t, os.WriteFile(file, []byte(seed), 0o600))

	runCLITests(t, cli, out, []cliTest{
		{name: "seed", args: []string{"seed", "--file", file}, wantOut: "Seeded 1 modules, 1 lessons"},
		{name: "reseed is idempotent", args: []string{"seed", "-f", file}, wantOut: "Seeded 1 modules, 1 lessons"},
	})

	err := cli.run([]string{"admin", "seed", "-f", filepath.Join(t.TempDir(), "nope.yaml")})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "reading seed file")
	}

	lsn, err := sqlxrepos.NewCatalogRepository(cli.db).GetLesson(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, "Alphabet", lsn.Title)
	assert.Equal(t, int64(9), lsn.ModuleID)
	assert.True(t, lsn.IsActive)
}

func Test_commandLine_reports(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		_, err := cli.progressSvc.StartLesson(ctx, "user-1", id)
		require.NoError(t, err)
		_, err = cli.progressSvc.CompleteLesson(ctx, "user-1", id, 0.5)
		require.NoError(t, err)
	}
	sess, err := cli.sessionSvc.StartSession(ctx, "user-1", session.KindTranscription, nil, session.Config{Language: "bsl"})
	require.NoError(t, err)

	runCLITests(t, cli, out, []cliTest{
		{name: "overview: no user", args: []string{"overview"}, wantErrStr: "--user is required"},
		{name: "overview: modules", args: []string{"overview", "-u", "user-1"}, wantOut: "Modules:  1 / 2 completed"},
		{name: "overview: progress", args: []string{"overview", "--user", "user-1"}, wantOut: "Progress: 66.67%"},
		{name: "overview: table", args: []string{"overview", "--user", "user-1"}, wantOut: "completed"},
		{name: "overview: new user", args: []string{"overview", "--user", "user-2"}, wantOut: "Current:  1"},
		{name: "sessions: no user", args: []string{"sessions", "-u", " "}, wantErrStr: "--user is required"},
		{name: "sessions", args: []string{"sessions", "-u", "user-1"}, wantOut: sess.ID},
		{name: "sessions: language", args: []string{"sessions", "-u", "user-1"}, wantOut: "BSL"},
	})
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no user", args: []string{"token"}, wantErrStr: "--user is required"},
		{name: "token", args: []string{"token", "-u", "user-1"}},
	})

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, cli.conf.AppName, claims.Issuer)
}

func Test_commandLine_sweep(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	lockPath := filepath.Join(t.TempDir(), "sweep.lock")

	now := time.Now().UTC()
	repo := sqlxrepos.NewSessionRepository(cli.db)
	for i, lastActivity := range []time.Time{now.Add(-time.Hour), now} {
		_, err := repo.CreateSession(ctx, session.Session{
			ID:           fmt.Sprintf("sess-%d", i),
			UserID:       fmt.Sprintf("user-%d", i),
			Kind:         session.KindTranscription,
			StartTime:    lastActivity,
			LastActivity: lastActivity,
			Data:         session.Data{Language: core.LanguageASL, DetectedSigns: []session.Detection{}},
		})
		require.NoError(t, err)
	}

	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	runCLITests(t, cli, out, []cliTest{
		{name: "locked", args: []string{"sweep", "--lock", lockPath}, wantErr: errSweepLocked},
	})
	require.NoError(t, lock.Unlock())

	runCLITests(t, cli, out, []cliTest{
		{name: "sweep", args: []string{"sweep", "--lock", lockPath, "--idle", "10m"}, wantOut: "Closed 1 idle sessions"},
		{name: "nothing left", args: []string{"sweep", "--lock", lockPath, "--idle", "10m"}, wantOut: "Closed 0 idle sessions"},
	})

	swept, err := repo.GetSession(ctx, "sess-0")
	require.NoError(t, err)
	assert.False(t, swept.Active())
	open, err := repo.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, open.Active())
}
