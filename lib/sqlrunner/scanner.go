package sqlrunner

import (
	"database/sql"
	"fmt"
	"time"
)

// CellScanner converts whatever the driver hands back into a Value.
type CellScanner struct {
	value Value
}

func (s *CellScanner) Scan(value any) error {
	switch v := value.(type) {
	case int64:
		s.value = Int(v)
	case float64:
		s.value = Float(v)
	case bool:
		s.value = Bool(v)
	case []byte:
		s.value = String(string(v))
	case string:
		s.value = String(v)
	case time.Time:
		s.value = String(formatTime(v))
	case nil:
		s.value = Null()
	default:
		s.value = String(fmt.Sprintf("%v", value))
	}

	return nil
}

func (s *CellScanner) Value() Value {
	return s.value
}

// formatTime renders DATE-like columns the way they were stored,
// since the driver parses them into time.Time.
func formatTime(t time.Time) string {
	h, m, sec := t.Clock()
	if h == 0 && m == 0 && sec == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format("2006-01-02 15:04:05.999999999")
}

var _ sql.Scanner = &CellScanner{}
