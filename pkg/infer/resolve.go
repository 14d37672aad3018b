package infer

import (
	"github.com/leapstack-labs/schemashift/pkg/core"
)

// Resolver computes least upper bounds over the storage type lattice: each
// family is a chain ordered by capacity, integers embed into floats, and Text
// is the top element.
type Resolver struct {
	catalog *core.TypeCatalog
}

// NewResolver creates a resolver over catalog.
// If catalog is nil, core.DefaultCatalog() is used.
func NewResolver(catalog *core.TypeCatalog) *Resolver {
	if catalog == nil {
		catalog = core.DefaultCatalog()
	}
	return &Resolver{catalog: catalog}
}

// Join returns the minimal type able to represent values of both a and b.
// Integer joined with float yields the float type, which loses exactness for
// integers beyond the float's mantissa.
func (r *Resolver) Join(a, b core.StorageType) core.StorageType {
	if a == b {
		return a
	}

	fa, fb := a.Family(), b.Family()
	switch {
	case fa == fb && fa != core.FamilyForeign:
		if a.Capacity() >= b.Capacity() {
			return a
		}
		return b
	case fa == core.FamilyInteger && fb == core.FamilyFloat:
		return b
	case fa == core.FamilyFloat && fb == core.FamilyInteger:
		return a
	}
	return r.Top()
}

// JoinAll folds Join over types. It returns the zero type for an empty list.
func (r *Resolver) JoinAll(types ...core.StorageType) core.StorageType {
	var acc core.StorageType
	for i, t := range types {
		if i == 0 {
			acc = t
			continue
		}
		acc = r.Join(acc, t)
	}
	return acc
}

// Top returns the absorbing element of the lattice.
func (r *Resolver) Top() core.StorageType {
	if top, ok := r.catalog.Top(core.FamilyText); ok {
		return top
	}
	return core.Text
}
