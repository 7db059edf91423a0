package inventory

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row is one record as returned by a backend. Any field may be absent or null.
type Row map[string]any

func (r Row) Number(column string) float64 { return Number(r[column]) }

func (r Row) Text(column string) string { return Text(r[column]) }

func (r Row) Bool(column string) bool { return Truthy(r[column]) }

// Project returns a copy of the row holding only the given columns.
func (r Row) Project(columns []string) Row {
	if len(columns) == 0 {
		return r.Clone()
	}
	out := make(Row, len(columns))
	for _, column := range columns {
		if value, ok := r[column]; ok {
			out[column] = value
		}
	}
	return out
}

func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Number coerces a value the way a lenient float parser would: numeric types pass
// through, strings contribute their longest numeric prefix, anything else is 0.
func Number(value any) float64 {
	switch typed := value.(type) {
	case nil:
		return 0
	case float64:
		return finite(typed)
	case float32:
		return finite(float64(typed))
	case int:
		return float64(typed)
	case int8:
		return float64(typed)
	case int16:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint:
		return float64(typed)
	case uint8:
		return float64(typed)
	case uint16:
		return float64(typed)
	case uint32:
		return float64(typed)
	case uint64:
		return float64(typed)
	case json.Number:
		return parseLeadingFloat(typed.String())
	case string:
		return parseLeadingFloat(typed)
	case []byte:
		return parseLeadingFloat(string(typed))
	default:
		return 0
	}
}

// IsNumeric reports whether a value is a number or a string holding exactly one.
func IsNumeric(value any) bool {
	switch typed := value.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return err == nil
	case []byte:
		_, err := strconv.ParseFloat(strings.TrimSpace(string(typed)), 64)
		return err == nil
	default:
		return false
	}
}

func Text(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(typed)
	}
}

func Truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	default:
		return Number(value) != 0
	}
}

func parseLeadingFloat(raw string) float64 {
	value, _ := leadingFloat(raw)
	return value
}

func leadingFloat(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	seenDigit := false
	seenDot := false
	seenExp := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			end = i + 1
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			i = len(s)
		}
	}
	if !seenDigit {
		return 0, false
	}
	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return finite(value), true
}

func finite(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// Compare orders two field values. Values that both coerce to numbers compare
// numerically, nil sorts before everything else, and the rest compare as text.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if IsNumeric(a) && IsNumeric(b) {
		x, y := Number(a), Number(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(Text(a), Text(b))
}
