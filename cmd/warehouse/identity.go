package warehouse

import "strings"

// Default namespace used when neither the caller nor the configuration names one
const (
	DefaultCatalog = "main"
	DefaultSchema  = "default"
)

// TableIdentity names a table, optionally qualified by catalog and schema.
type TableIdentity struct {
	Catalog string `json:"catalog,omitempty"`
	Schema  string `json:"schema,omitempty"`
	Name    string `json:"table_name"`
}

// Defaults holds the configured catalog and schema applied by Resolve.
type Defaults struct {
	Catalog string
	Schema  string
}

func (d Defaults) normalize() Defaults {
	if d.Catalog == "" {
		d.Catalog = DefaultCatalog
	}
	if d.Schema == "" {
		d.Schema = DefaultSchema
	}
	return d
}

// Resolve fills the catalog and schema of id from defaults when they are absent.
func Resolve(id TableIdentity, defaults Defaults) TableIdentity {
	defaults = defaults.normalize()
	resolved := TableIdentity{
		Catalog: strings.TrimSpace(id.Catalog),
		Schema:  strings.TrimSpace(id.Schema),
		Name:    strings.TrimSpace(id.Name),
	}
	if resolved.Catalog == "" {
		resolved.Catalog = defaults.Catalog
	}
	if resolved.Schema == "" {
		resolved.Schema = defaults.Schema
	}
	return resolved
}

// FullName renders catalog.schema.table without quoting.
func (t TableIdentity) FullName() string {
	parts := make([]string, 0, 3)
	if t.Catalog != "" {
		parts = append(parts, t.Catalog)
	}
	if t.Schema != "" {
		parts = append(parts, t.Schema)
	}
	parts = append(parts, t.Name)
	return strings.Join(parts, ".")
}

func (t TableIdentity) String() string {
	return t.FullName()
}

// Equal reports whether both identities name the same table once resolved
// against the same defaults.
func (t TableIdentity) Equal(other TableIdentity, defaults Defaults) bool {
	return Resolve(t, defaults) == Resolve(other, defaults)
}
