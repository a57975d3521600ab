package database

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timeLayout is how timestamps are bound and stored.  It is accepted by
// MySQL DATETIME columns and sorts correctly as SQLite text.
const timeLayout = "2006-01-02 15:04:05"

// TimeArg formats t for use as a query argument.
func TimeArg(t time.Time) string { return t.UTC().Format(timeLayout) }

// NullTimeArg is TimeArg for optional timestamps.
func NullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return TimeArg(*t)
}

// Time scans a timestamp column whatever the driver hands back: MySQL
// returns time.Time, SQLite returns text.
type Time struct {
	Time  time.Time
	Valid bool
}

var layouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Time{}
		return nil
	case time.Time:
		*t = Time{Time: v.UTC(), Valid: true}
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("cannot scan %T into database.Time", src)
}

func (t *Time) parse(s string) error {
	for _, l := range layouts {
		if v, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			*t = Time{Time: v.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as time", s)
}

// Value implements driver.Valuer.
func (t Time) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return TimeArg(t.Time), nil
}

// Ptr returns nil for NULL.
func (t Time) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
