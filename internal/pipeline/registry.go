package pipeline

import (
	"strings"

	"github.com/suiviconso/suiviconso/internal/table"
)

// Role classifies a module kind's capability.
type Role int

const (
	RoleReader Role = iota
	RoleFilter
	RolePlotter
)

func (r Role) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleFilter:
		return "filter"
	case RolePlotter:
		return "plotter"
	}
	return "unknown"
}

// Module is the common surface of all pipeline stages. Concrete modules also
// implement exactly one of Reader, Filter or Plotter.
type Module interface {
	Kind() string
}

// Reader produces a table fragment from an external source. Readers never
// see prior pipeline state.
type Reader interface {
	Module
	Read() (*table.Table, error)
}

// Filter transforms the table. The returned table may or may not be the same
// instance; callers rely on content only.
type Filter interface {
	Module
	Apply(*table.Table) (*table.Table, error)
}

// Plotter consumes the table for rendering or reporting and never mutates it.
type Plotter interface {
	Module
	Render(*table.Table) error
}

// Factory constructs and validates a module from its section options.
// Construction fails fast on the first schema violation.
type Factory func(opts *Options) (Module, error)

type registration struct {
	kind    string
	role    Role
	factory Factory
}

// Registry maps declared section kinds to module constructors.
type Registry struct {
	kinds map[string]registration
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]registration)}
}

// Register adds a module kind. Re-registering a kind replaces it.
func (r *Registry) Register(kind string, role Role, factory Factory) {
	if _, exists := r.kinds[kind]; !exists {
		r.order = append(r.order, kind)
	}
	r.kinds[kind] = registration{kind: kind, role: role, factory: factory}
}

// Kinds returns the registered kind tags in registration order.
func (r *Registry) Kinds() []string {
	return append([]string(nil), r.order...)
}

// Resolve matches a section name to a registered kind. A section named
// exactly like a kind matches it; otherwise the kind tag may appear as a
// substring ("csv_reader house" or "csv_reader_2" both resolve to
// csv_reader), with the longest tag winning. Unknown names fail with
// UnknownKindError.
func (r *Registry) Resolve(section string) (string, Role, Factory, error) {
	lower := strings.ToLower(section)
	best := ""
	for _, kind := range r.order {
		if strings.Contains(lower, kind) && len(kind) > len(best) {
			best = kind
		}
	}
	if best == "" {
		return "", 0, nil, &UnknownKindError{Section: section, Known: r.Kinds()}
	}
	reg := r.kinds[best]
	return reg.kind, reg.role, reg.factory, nil
}
