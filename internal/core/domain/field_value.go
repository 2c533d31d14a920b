package domain

import (
	"fmt"
	"strconv"
	"time"
)

// FieldValueKind tags the concrete type carried by a FieldValue.
type FieldValueKind int

const (
	// KindString marks a FieldValue holding a string.
	KindString FieldValueKind = iota
	// KindInt marks a FieldValue holding an int64.
	KindInt
	// KindFloat marks a FieldValue holding a float64.
	KindFloat
	// KindTimestamp marks a FieldValue holding a UTC time.Time.
	KindTimestamp
)

// FieldValue is the tagged union of value types a message field may hold.
// Rule matchers only ever need its string form (with numeric coercion
// handled separately by the Greater/Smaller matchers), so String is the
// primary accessor.
type FieldValue struct {
	kind  FieldValueKind
	str   string
	num   float64
	when  time.Time
}

// StringValue wraps a string as a FieldValue.
func StringValue(s string) FieldValue {
	return FieldValue{kind: KindString, str: s}
}

// IntValue wraps an int64 as a FieldValue.
func IntValue(n int64) FieldValue {
	return FieldValue{kind: KindInt, num: float64(n)}
}

// FloatValue wraps a float64 as a FieldValue.
func FloatValue(f float64) FieldValue {
	return FieldValue{kind: KindFloat, num: f}
}

// TimestampValue wraps a time.Time as a FieldValue. The time is normalized
// to UTC, matching the message timestamp convention in spec.md §3.
func TimestampValue(t time.Time) FieldValue {
	return FieldValue{kind: KindTimestamp, when: t.UTC()}
}

// Kind reports which concrete type this FieldValue holds.
func (v FieldValue) Kind() FieldValueKind {
	return v.kind
}

// String renders the value's string form, used by every matcher kind.
// Empty-string detection (spec.md §3's "empty string values are dropped")
// happens before a FieldValue is ever stored, so String never needs to
// special-case emptiness itself.
func (v FieldValue) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(int64(v.num), 10)
	case KindFloat:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTimestamp:
		return v.when.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Float64 returns the value coerced to a float64, for the Greater/Smaller
// matchers. The second return value is false when coercion fails (e.g. a
// non-numeric string), never a panic — spec.md §4.1 requires "parse
// failure on either side → false (never throws)".
func (v FieldValue) Float64() (float64, bool) {
	switch v.kind {
	case KindInt, KindFloat:
		return v.num, true
	case KindTimestamp:
		return float64(v.when.UnixNano()), true
	case KindString:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (v FieldValue) GoString() string {
	return fmt.Sprintf("FieldValue{%s}", v.String())
}
