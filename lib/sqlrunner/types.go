package sqlrunner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind is the type of a cell value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
)

// Value is a single cell of a query result.
//
// Numbers remember whether they came from an integer or a real column,
// but compare by value: Int(1) equals Float(1.0). Values of different
// kinds never compare equal.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	isFloat bool
	s       string
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindNumber, i: i} }

func Float(f float64) Value { return Value{kind: KindNumber, f: f, isFloat: true} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// StringVal returns the raw string of a KindString value.
func (v Value) StringVal() string { return v.s }

// Float64 returns the numeric value as a float64.
func (v Value) Float64() float64 {
	if v.isFloat {
		return v.f
	}
	return float64(v.i)
}

// Equal reports whether two cells are equal without any type coercion.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindNumber:
		if !v.isFloat && !other.isFloat {
			return v.i == other.i
		}
		return v.Float64() == other.Float64()
	default:
		return false
	}
}

// String renders the cell for display. NULL is rendered as "NULL".
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	case KindNumber:
		if v.isFloat {
			return strconv.FormatFloat(v.f, 'f', -1, 64)
		}
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	default:
		return "NULL"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if v.isFloat && (math.IsInf(v.f, 0) || math.IsNaN(v.f)) {
			return json.Marshal(v.String())
		}
		return []byte(v.String()), nil
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON reads a cell written by MarshalJSON. Integral numbers
// become Int, other numbers Float.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch raw := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(raw)
	case string:
		*v = String(raw)
	case json.Number:
		if i, err := raw.Int64(); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := raw.Float64()
		if err != nil {
			return err
		}
		*v = Float(f)
	default:
		return fmt.Errorf("unsupported cell value: %s", data)
	}

	return nil
}

// QueryResult is a struct that holds the result of one statement
type QueryResult struct {
	// Columns is a slice of column names
	Columns []string `json:"columns"`
	// Rows is a slice of rows, each row has one value per column
	Rows [][]Value `json:"rows"`
}

// Outcome is the result of executing a script: either the result sets of
// every row-producing statement, or the error that stopped the script.
type Outcome struct {
	Results []QueryResult
	Err     *QueryError
}

func Success(results ...QueryResult) Outcome {
	if results == nil {
		results = []QueryResult{}
	}
	return Outcome{Results: results}
}

func Failure(err error) Outcome {
	return Outcome{Err: NewQueryError(err)}
}

// Failed reports whether the script failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// First returns the first result set, if any.
func (o Outcome) First() (QueryResult, bool) {
	if o.Failed() || len(o.Results) == 0 {
		return QueryResult{}, false
	}
	return o.Results[0], true
}
