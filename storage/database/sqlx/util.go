package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/definite-d/zonosign-backend/core"
)

// timestamps are stored as fixed width UTC text so they sort lexicographically on every engine
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing timestamp %q", s)
	}
	return t, nil
}

func formatNullTime(t *time.Time) null.String {
	if t == nil {
		return null.String{}
	}
	return null.StringFrom(formatTime(*t))
}

func parseNullTime(s null.String) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23505"
	case *sqlite.Error:
		if e.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || e.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// checkUpdated inspects the result of a compare-and-set update on a single row.
// No row means the guard did not hold; more than one means the table lost its key.
func checkUpdated(res sql.Result, table string, id interface{}, conflict error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "updating %s", table)
	}
	switch {
	case n == 0:
		return conflict
	case n > 1:
		return core.NewShutdownError(fmt.Sprintf("integrity issue: updating %s %v touched %d rows", table, id, n))
	}
	return nil
}
