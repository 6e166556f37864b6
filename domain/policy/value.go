package policy

import (
	"fmt"
	"strconv"
	"time"
)

// Value represents a typed cell with explicit missingness
type Value struct {
	Type         ValueType  `json:"type"`
	StringVal    *string    `json:"string_val,omitempty"`
	NumericVal   *float64   `json:"numeric_val,omitempty"`
	BooleanVal   *bool      `json:"boolean_val,omitempty"`
	TimestampVal *time.Time `json:"timestamp_val,omitempty"`
}

// ValueType defines the storage type for values
type ValueType string

const (
	ValueTypeString    ValueType = "string"
	ValueTypeNumeric   ValueType = "numeric"
	ValueTypeBoolean   ValueType = "boolean"
	ValueTypeTimestamp ValueType = "timestamp"
	ValueTypeMissing   ValueType = "missing"
)

// NewStringValue creates a string value; the empty string is missing
func NewStringValue(s string) Value {
	if s == "" {
		return NewMissingValue()
	}
	return Value{Type: ValueTypeString, StringVal: &s}
}

// NewNumericValue creates a numeric value
func NewNumericValue(n float64) Value {
	return Value{Type: ValueTypeNumeric, NumericVal: &n}
}

// NewBooleanValue creates a boolean value
func NewBooleanValue(b bool) Value {
	return Value{Type: ValueTypeBoolean, BooleanVal: &b}
}

// NewTimestampValue creates a timestamp value
func NewTimestampValue(t time.Time) Value {
	return Value{Type: ValueTypeTimestamp, TimestampVal: &t}
}

// NewMissingValue creates a missing value
func NewMissingValue() Value {
	return Value{Type: ValueTypeMissing}
}

// IsMissing reports whether the cell carries no usable value
func (v Value) IsMissing() bool {
	switch v.Type {
	case ValueTypeString:
		return v.StringVal == nil
	case ValueTypeNumeric:
		return v.NumericVal == nil
	case ValueTypeBoolean:
		return v.BooleanVal == nil
	case ValueTypeTimestamp:
		return v.TimestampVal == nil
	}
	return true
}

// String returns the string representation used for grouping and display
func (v Value) String() string {
	switch v.Type {
	case ValueTypeString:
		if v.StringVal != nil {
			return *v.StringVal
		}
	case ValueTypeNumeric:
		if v.NumericVal != nil {
			return strconv.FormatFloat(*v.NumericVal, 'f', -1, 64)
		}
	case ValueTypeBoolean:
		if v.BooleanVal != nil {
			return fmt.Sprintf("%t", *v.BooleanVal)
		}
	case ValueTypeTimestamp:
		if v.TimestampVal != nil {
			return v.TimestampVal.Format(time.RFC3339)
		}
	}
	return "<missing>"
}

// Float64 returns the value as a number. Booleans map to 0/1 so claim
// occurrence can be averaged into a frequency.
func (v Value) Float64() (float64, bool) {
	switch {
	case v.Type == ValueTypeNumeric && v.NumericVal != nil:
		return *v.NumericVal, true
	case v.Type == ValueTypeBoolean && v.BooleanVal != nil:
		if *v.BooleanVal {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Bool returns the boolean value and whether it is present
func (v Value) Bool() (bool, bool) {
	if v.Type == ValueTypeBoolean && v.BooleanVal != nil {
		return *v.BooleanVal, true
	}
	return false, false
}

// Time returns the timestamp value and whether it is present
func (v Value) Time() (time.Time, bool) {
	if v.Type == ValueTypeTimestamp && v.TimestampVal != nil {
		return *v.TimestampVal, true
	}
	return time.Time{}, false
}

// Equal compares two values by type and content
func (v Value) Equal(o Value) bool {
	if v.IsMissing() || o.IsMissing() {
		return v.IsMissing() && o.IsMissing()
	}
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case ValueTypeString:
		return *v.StringVal == *o.StringVal
	case ValueTypeNumeric:
		return *v.NumericVal == *o.NumericVal
	case ValueTypeBoolean:
		return *v.BooleanVal == *o.BooleanVal
	case ValueTypeTimestamp:
		return v.TimestampVal.Equal(*o.TimestampVal)
	}
	return false
}
