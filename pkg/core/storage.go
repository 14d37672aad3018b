package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Family groups storage types that are totally ordered by capacity.
type Family uint8

const (
	// FamilyForeign holds declared column types outside the catalog (timestamp, jsonb, ...).
	// Foreign types are never produced by classification and never widened.
	FamilyForeign Family = iota
	// FamilyBoolean is the singleton boolean family.
	FamilyBoolean
	// FamilyInteger is ordered by the sum of absolute range bounds.
	FamilyInteger
	// FamilyFloat is ordered by decimal-place capacity.
	FamilyFloat
	// FamilyText is ordered by maximum length; Text is unbounded.
	FamilyText
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilyBoolean:
		return "boolean"
	case FamilyInteger:
		return "integer"
	case FamilyFloat:
		return "float"
	case FamilyText:
		return "text"
	default:
		return "foreign"
	}
}

// StorageType is a relational column type. Catalog types are package-level values;
// StorageTypes are comparable with ==.
type StorageType struct {
	name     string
	family   Family
	capacity uint64
	min      int64
	max      int64
}

// Catalog members.
var (
	Smallint        = StorageType{name: "smallint", family: FamilyInteger, capacity: 32768 + 32767, min: math.MinInt16, max: math.MaxInt16}
	Integer         = StorageType{name: "integer", family: FamilyInteger, capacity: 2147483648 + 2147483647, min: math.MinInt32, max: math.MaxInt32}
	Bigint          = StorageType{name: "bigint", family: FamilyInteger, capacity: math.MaxUint64, min: math.MinInt64, max: math.MaxInt64}
	Real            = StorageType{name: "real", family: FamilyFloat, capacity: 6}
	DoublePrecision = StorageType{name: "double precision", family: FamilyFloat, capacity: 15}
	Numeric         = StorageType{name: "numeric", family: FamilyFloat, capacity: 64}
	Varchar255      = StorageType{name: "varchar(255)", family: FamilyText, capacity: 255}
	Text            = StorageType{name: "text", family: FamilyText, capacity: math.MaxUint64}
	Boolean         = StorageType{name: "boolean", family: FamilyBoolean, capacity: 1}
)

// Varchar returns the text-family type of a character column limited to n
// characters. It is the catalog's Varchar255 when n is 255, and otherwise a
// type outside the catalog that still joins within the text family.
func Varchar(n int64) StorageType {
	if n == int64(Varchar255.capacity) {
		return Varchar255
	}
	if n <= 0 {
		return Text
	}
	return StorageType{name: fmt.Sprintf("varchar(%d)", n), family: FamilyText, capacity: uint64(n)}
}

// Foreign returns a StorageType for a declared column type outside the catalog.
func Foreign(declared string) StorageType {
	return StorageType{name: strings.ToLower(strings.TrimSpace(declared)), family: FamilyForeign}
}

// Name returns the canonical catalog name, e.g. "double precision" or "varchar(255)".
func (t StorageType) Name() string { return t.name }

// Family returns the family the type belongs to.
func (t StorageType) Family() Family { return t.family }

// Capacity returns the ordering key within the family.
func (t StorageType) Capacity() uint64 { return t.capacity }

// IsForeign reports whether the type lies outside the catalog.
func (t StorageType) IsForeign() bool { return t.family == FamilyForeign }

// IsZero reports whether t is the zero StorageType.
func (t StorageType) IsZero() bool { return t == StorageType{} }

// ContainsInt reports whether v fits the range of an integer-family type.
func (t StorageType) ContainsInt(v int64) bool {
	return t.family == FamilyInteger && v >= t.min && v <= t.max
}

// String returns the type name.
func (t StorageType) String() string { return t.name }

// MarshalText implements encoding.TextMarshaler.
func (t StorageType) MarshalText() ([]byte, error) { return []byte(t.name), nil }

// TypeCatalog is the immutable set of storage types available to classification
// and resolution, ordered by ascending capacity within each family.
type TypeCatalog struct {
	families map[Family][]StorageType
	byName   map[string]StorageType
}

var (
	defaultCatalog     *TypeCatalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the process-wide catalog of the nine built-in types.
func DefaultCatalog() *TypeCatalog {
	defaultCatalogOnce.Do(func() {
		c, err := NewCatalog(Smallint, Integer, Bigint, Real, DoublePrecision, Numeric, Varchar255, Text, Boolean)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// NewCatalog builds a catalog from the given types. Every type must belong to a
// non-foreign family and capacities must be distinct within a family so the
// per-family order is total.
func NewCatalog(types ...StorageType) (*TypeCatalog, error) {
	c := &TypeCatalog{
		families: make(map[Family][]StorageType),
		byName:   make(map[string]StorageType),
	}

	for _, t := range types {
		if t.family == FamilyForeign {
			return nil, fmt.Errorf("type %q has no family", t.name)
		}
		if _, dup := c.byName[t.name]; dup {
			return nil, fmt.Errorf("duplicate type %q", t.name)
		}
		c.byName[t.name] = t
		c.families[t.family] = append(c.families[t.family], t)
	}

	for fam, members := range c.families {
		sort.Slice(members, func(i, j int) bool { return members[i].capacity < members[j].capacity })
		for i := 1; i < len(members); i++ {
			if members[i].capacity == members[i-1].capacity {
				return nil, fmt.Errorf("%s family: %q and %q have equal capacity", fam, members[i-1].name, members[i].name)
			}
		}
	}

	return c, nil
}

// Members returns the types of a family in ascending capacity order.
func (c *TypeCatalog) Members(f Family) []StorageType {
	members := c.families[f]
	out := make([]StorageType, len(members))
	copy(out, members)
	return out
}

// Contains reports whether t is part of the catalog.
func (c *TypeCatalog) Contains(t StorageType) bool {
	got, ok := c.byName[t.name]
	return ok && got == t
}

// Top returns the largest member of a family.
func (c *TypeCatalog) Top(f Family) (StorageType, bool) {
	members := c.families[f]
	if len(members) == 0 {
		return StorageType{}, false
	}
	return members[len(members)-1], true
}

// typeAliases maps common spellings onto canonical catalog names.
var typeAliases = map[string]string{
	"int2":                   "smallint",
	"int":                    "integer",
	"int4":                   "integer",
	"int8":                   "bigint",
	"float4":                 "real",
	"float8":                 "double precision",
	"double":                 "double precision",
	"decimal":                "numeric",
	"bool":                   "boolean",
	"character varying(255)": "varchar(255)",
}

// Lookup resolves a type name, accepting common aliases such as "decimal" or "int4".
func (c *TypeCatalog) Lookup(name string) (StorageType, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if alias, ok := typeAliases[key]; ok {
		key = alias
	}
	t, ok := c.byName[key]
	return t, ok
}
