// Package infer turns raw record values into storage types.
//
// Normalize coerces a value of unknown origin into a core.ScalarValue, the
// Classifier maps a scalar to the narrowest catalog type able to hold it, and the
// Resolver joins two types over the compatibility lattice.
package infer

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"golang.org/x/text/cases"
)

var (
	trueLiterals  = []string{"yes", "true"}
	falseLiterals = []string{"no", "false"}
)

// Normalize coerces a raw value into its canonical scalar form. Rules, in order:
// native bool, native integer, native float, collection (as text), integer
// literal, float literal, yes/true/no/false literal, text. nil and "" are Null.
//
// Leading zeros do not survive integer parsing ("007" becomes 7), and "1.0" is a
// float because integer parsing rejects the decimal point.
func Normalize(raw any) core.ScalarValue {
	switch v := raw.(type) {
	case nil:
		return core.Null()
	case core.ScalarValue:
		return v
	case bool:
		return core.NewBool(v)
	case int:
		return core.NewInt64(int64(v))
	case int8:
		return core.NewInt64(int64(v))
	case int16:
		return core.NewInt64(int64(v))
	case int32:
		return core.NewInt64(int64(v))
	case int64:
		return core.NewInt64(v)
	case uint8:
		return core.NewInt64(int64(v))
	case uint16:
		return core.NewInt64(int64(v))
	case uint32:
		return core.NewInt64(int64(v))
	case uint:
		return fromUint64(uint64(v))
	case uint64:
		return fromUint64(v)
	case *big.Int:
		if v == nil {
			return core.Null()
		}
		if v.IsInt64() {
			return core.NewInt64(v.Int64())
		}
		return core.NewBigInt(v.String())
	case float32:
		return fromFloat64(float64(v))
	case float64:
		return fromFloat64(v)
	case json.Number:
		return normalizeString(string(v))
	case []byte:
		return normalizeString(string(v))
	case string:
		return normalizeString(v)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return core.Null()
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array, reflect.Map:
		return core.NewText(fmt.Sprint(raw))
	}

	if s, ok := raw.(fmt.Stringer); ok {
		return core.NewText(s.String())
	}
	return core.NewText(fmt.Sprint(raw))
}

func fromUint64(v uint64) core.ScalarValue {
	if v > math.MaxInt64 {
		return core.NewBigInt(strconv.FormatUint(v, 10))
	}
	return core.NewInt64(int64(v))
}

// fromFloat64 keeps NaN and infinities as text: no catalog type round-trips them
// through a cast.
func fromFloat64(v float64) core.ScalarValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return core.NewText(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return core.NewFloat64(v)
}

func normalizeString(s string) core.ScalarValue {
	if s == "" {
		return core.Null()
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return core.NewInt64(i)
	} else if errors.Is(err, strconv.ErrRange) {
		if n, ok := new(big.Int).SetString(s, 10); ok {
			return core.NewBigInt(n.String())
		}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return core.NewFloat64(f)
	}

	folded := cases.Fold().String(s)
	for _, lit := range trueLiterals {
		if folded == lit {
			return core.NewBool(true)
		}
	}
	for _, lit := range falseLiterals {
		if folded == lit {
			return core.NewBool(false)
		}
	}

	return core.NewText(s)
}
