package catalog

import "context"

// Supplier produces a fresh catalog on demand. Implementations are
// responsible for validating what they return.
type Supplier interface {
	Load(ctx context.Context) (Catalog, error)
}

// SupplierFunc adapts a function to the Supplier interface.
type SupplierFunc func(ctx context.Context) (Catalog, error)

func (f SupplierFunc) Load(ctx context.Context) (Catalog, error) {
	return f(ctx)
}

// Static returns a Supplier that always yields records.
func Static(records []Record) Supplier {
	c := New(records)
	return SupplierFunc(func(context.Context) (Catalog, error) {
		return c, nil
	})
}

// Describer is implemented by suppliers that can name where they load from.
// The description is reported back to refresh callers.
type Describer interface {
	Describe() string
}
