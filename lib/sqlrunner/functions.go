package sqlrunner

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
)

func init() {
	// MySQL-compatible functions, so lesson content written
	// against MySQL keeps working on SQLite.
	registerDatePart("YEAR", func(t time.Time) int64 { return int64(t.Year()) })
	registerDatePart("MONTH", func(t time.Time) int64 { return int64(t.Month()) })
	registerDatePart("DAY", func(t time.Time) int64 { return int64(t.Day()) })

	sqlite.MustRegisterFunction("LEFT", &sqlite.FunctionImpl{
		NArgs:         2,
		Deterministic: true,
		Scalar: func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			str, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("invalid argument type: %T", args[0])
			}

			length, ok := args[1].(int64)
			if !ok {
				return nil, fmt.Errorf("invalid argument type: %T", args[1])
			}

			if length < 0 {
				return nil, fmt.Errorf("negative length: %d", length)
			}

			runes := []rune(str)
			if int(length) > len(runes) {
				return str, nil
			}

			return string(runes[:length]), nil
		},
	})

	sqlite.MustRegisterFunction("IF", &sqlite.FunctionImpl{
		NArgs:         3,
		Deterministic: true,
		Scalar: func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			var condition bool
			switch v := args[0].(type) {
			case bool:
				condition = v
			case int64:
				condition = v != 0
			case float64:
				condition = v != 0
			case nil:
				condition = false
			default:
				return nil, fmt.Errorf("invalid argument type: %T", args[0])
			}

			if condition {
				return args[1], nil
			}

			return args[2], nil
		},
	})
}

func registerDatePart(name string, part func(time.Time) int64) {
	sqlite.MustRegisterFunction(name, &sqlite.FunctionImpl{
		NArgs:         1,
		Deterministic: true,
		Scalar: func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			if args[0] == nil {
				return nil, nil
			}

			d, err := parseSqliteDate(args[0])
			if err != nil {
				return nil, fmt.Errorf("parse date: %w", err)
			}

			return part(d), nil
		},
	})
}

// SQLiteTimestampFormats is timestamp formats understood by both this module
// and SQLite. When parsing a string from a timestamp or datetime column,
// the formats are tried in order.
//
// Reference: https://github.com/mattn/go-sqlite3/blob/348128fdcf102af8b9f51fb26ae41c4d7438f1ca/sqlite3.go#L224C1-L240C2
var SQLiteTimestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseSqliteDate returns the zero time for strings no format accepts,
// like MySQL does for invalid dates.
func parseSqliteDate(d any) (time.Time, error) {
	switch v := d.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		return *v, nil
	case string:
		s := strings.TrimSuffix(v, "Z")
		for _, format := range SQLiteTimestampFormats {
			if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("invalid date type: %T", d)
	}
}
