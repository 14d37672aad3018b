package core

import (
	"strconv"
)

// Kind tags the variant held by a ScalarValue.
type Kind uint8

const (
	// KindNull is an absent value. Null fields never contribute to schema decisions.
	KindNull Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindInt64 is a signed 64-bit integer.
	KindInt64
	// KindFloat64 is a finite 64-bit float.
	KindFloat64
	// KindText is a string.
	KindText
	// KindBigInt is an integer literal outside the int64 range, kept as decimal digits.
	KindBigInt
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindText:
		return "text"
	case KindBigInt:
		return "bigint"
	default:
		return "unknown"
	}
}

// ScalarValue is the canonical tagged form of a raw record value.
// The zero value is Null. ScalarValues are comparable with ==.
type ScalarValue struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Null returns the Null scalar.
func Null() ScalarValue { return ScalarValue{} }

// NewBool returns a Bool scalar.
func NewBool(v bool) ScalarValue { return ScalarValue{kind: KindBool, b: v} }

// NewInt64 returns an Int64 scalar.
func NewInt64(v int64) ScalarValue { return ScalarValue{kind: KindInt64, i: v} }

// NewFloat64 returns a Float64 scalar.
func NewFloat64(v float64) ScalarValue { return ScalarValue{kind: KindFloat64, f: v} }

// NewText returns a Text scalar.
func NewText(v string) ScalarValue { return ScalarValue{kind: KindText, s: v} }

// NewBigInt returns a scalar for an integer literal that does not fit in int64.
// digits is the canonical base-10 representation, with a leading '-' when negative.
func NewBigInt(digits string) ScalarValue { return ScalarValue{kind: KindBigInt, s: digits} }

// Kind returns the variant tag.
func (v ScalarValue) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v ScalarValue) IsNull() bool { return v.kind == KindNull }

// BoolValue returns the boolean payload. Only meaningful for KindBool.
func (v ScalarValue) BoolValue() bool { return v.b }

// Int64Value returns the integer payload. Only meaningful for KindInt64.
func (v ScalarValue) Int64Value() int64 { return v.i }

// Float64Value returns the float payload. Only meaningful for KindFloat64.
func (v ScalarValue) Float64Value() float64 { return v.f }

// TextValue returns the string payload of KindText, or the digits of KindBigInt.
func (v ScalarValue) TextValue() string { return v.s }

// String renders the value the way it would be stored in a text column.
func (v ScalarValue) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindText, KindBigInt:
		return v.s
	default:
		return ""
	}
}

// Coerce returns the Go value to bind when v is written into a column of type t.
// Values are converted toward the column's family; anything the family cannot hold
// natively is passed as its text form and left to the database cast.
func (v ScalarValue) Coerce(t StorageType) any {
	if v.kind == KindNull {
		return nil
	}

	switch t.Family() {
	case FamilyText:
		return v.String()
	case FamilyFloat:
		switch v.kind {
		case KindFloat64:
			return v.f
		case KindInt64:
			return float64(v.i)
		}
	case FamilyInteger:
		if v.kind == KindInt64 {
			return v.i
		}
	case FamilyBoolean:
		if v.kind == KindBool {
			return v.b
		}
	case FamilyForeign:
		return v.native()
	}
	return v.String()
}

func (v ScalarValue) native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt64:
		return v.i
	case KindFloat64:
		return v.f
	default:
		return v.s
	}
}
