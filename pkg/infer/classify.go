package infer

import (
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/shopspring/decimal"
)

// Classifier maps scalars to the narrowest storage type of the injected catalog.
// Classification is pure: the same scalar always yields the same type.
type Classifier struct {
	catalog *core.TypeCatalog
}

// NewClassifier creates a classifier over catalog.
// If catalog is nil, core.DefaultCatalog() is used.
func NewClassifier(catalog *core.TypeCatalog) *Classifier {
	if catalog == nil {
		catalog = core.DefaultCatalog()
	}
	return &Classifier{catalog: catalog}
}

// Classify returns the storage type for a non-Null scalar.
func (c *Classifier) Classify(v core.ScalarValue) (core.StorageType, error) {
	switch v.Kind() {
	case core.KindNull:
		return core.StorageType{}, core.ErrNullValue
	case core.KindBool:
		return c.first(core.FamilyBoolean, func(core.StorageType) bool { return true })
	case core.KindInt64:
		i := v.Int64Value()
		t, err := c.first(core.FamilyInteger, func(t core.StorageType) bool { return t.ContainsInt(i) })
		if err != nil {
			return core.StorageType{}, c.tooLarge(v)
		}
		return t, nil
	case core.KindBigInt:
		return core.StorageType{}, c.tooLarge(v)
	case core.KindFloat64:
		places := uint64(DecimalPlaces(v.Float64Value()))
		t, err := c.first(core.FamilyFloat, func(t core.StorageType) bool { return t.Capacity() >= places })
		if err != nil {
			// Past the widest float type; its capacity is the practical ceiling.
			if top, ok := c.catalog.Top(core.FamilyFloat); ok {
				return top, nil
			}
			return core.StorageType{}, err
		}
		return t, nil
	case core.KindText:
		n := uint64(utf8.RuneCountInString(v.TextValue()))
		return c.first(core.FamilyText, func(t core.StorageType) bool { return t.Capacity() > n })
	default:
		return core.StorageType{}, core.ErrUnsupportedType
	}
}

// first returns the smallest member of family accepted by fits.
func (c *Classifier) first(family core.Family, fits func(core.StorageType) bool) (core.StorageType, error) {
	for _, t := range c.catalog.Members(family) {
		if fits(t) {
			return t, nil
		}
	}
	return core.StorageType{}, core.ErrUnsupportedType
}

func (c *Classifier) tooLarge(v core.ScalarValue) error {
	largest, _ := c.catalog.Top(core.FamilyInteger)
	return &core.ValueTooLargeError{Value: v.String(), Largest: largest}
}

// DecimalPlaces counts the digits after the decimal point in the canonical,
// non-scientific decimal form of f (1.5 has 1, 1e-7 has 7, 2.0 has 0).
func DecimalPlaces(f float64) int {
	s := decimal.NewFromFloat(f).String()
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	return len(s) - idx - 1
}
