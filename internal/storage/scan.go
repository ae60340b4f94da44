package storage

import (
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// dateColumn scans a DATE (postgres) or YYYY-MM-DD TEXT (sqlite) column.
type dateColumn struct {
	dst *core.Date
}

func (c dateColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.dst = core.Date{}
		return nil
	case time.Time:
		*c.dst = core.NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("unsupported date column type %T", src)
	}
}

func (c dateColumn) parse(s string) error {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*c.dst = d
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// timeColumn scans TIMESTAMPTZ (postgres) or text timestamps (sqlite).
type timeColumn struct {
	dst *time.Time
}

func (c timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.dst = time.Time{}
		return nil
	case time.Time:
		*c.dst = v.UTC()
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp column type %T", src)
	}
}

func (c timeColumn) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*c.dst = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

func timestampArg(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ownerArg maps the zero user id (system scope) to NULL.
func ownerArg(userID int64) any {
	if userID == 0 {
		return nil
	}
	return userID
}

func ownerValue(n sql.NullInt64) int64 {
	if !n.Valid {
		return 0
	}
	return n.Int64
}
