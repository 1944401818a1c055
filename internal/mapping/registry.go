package mapping

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"dynquery/internal/queryerr"
)

// Registry is the process-wide, write-once table of mappings keyed by DTO type.
// Mappings are registered at startup; after Seal lookups take no locks.
type Registry struct {
	mu     sync.Mutex
	sealed atomic.Bool
	byType map[reflect.Type]*Mapping
	byName map[string]*Mapping
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Mapping),
		byName: make(map[string]*Mapping),
	}
}

// Register adds m. Registering a second mapping for the same DTO type (or
// the same name) is an Invariant error, as is registering after Seal.
func (r *Registry) Register(m *Mapping) error {
	if m == nil {
		return queryerr.Invariant("cannot register a nil mapping")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return queryerr.Invariant("registry is sealed; cannot register %s", m.name)
	}
	if _, dup := r.byType[m.typ]; dup {
		return queryerr.Invariant("mapping for %s registered twice", m.typ)
	}
	key := strings.ToLower(m.name)
	if _, dup := r.byName[key]; dup {
		return queryerr.Invariant("mapping name %q registered twice", m.name)
	}
	r.byType[m.typ] = m
	r.byName[key] = m
	return nil
}

// MustRegister is like Register but panics, making duplicate registration a startup failure.
func (r *Registry) MustRegister(mappings ...*Mapping) {
	for _, m := range mappings {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

// Lookup returns the mapping registered for the DTO type t (a struct type or a pointer to one).
func (r *Registry) Lookup(t reflect.Type) (*Mapping, bool) {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	m, ok := r.byType[t]
	return m, ok
}

// ByName returns the mapping whose DTO type name matches name, ignoring case.
func (r *Registry) ByName(name string) (*Mapping, bool) {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	m, ok := r.byName[strings.ToLower(name)]
	return m, ok
}

// ByTable returns the mapping rooted at table. It reports false when no
// mapping or more than one mapping uses the table.
func (r *Registry) ByTable(table string) (*Mapping, bool) {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	var found *Mapping
	for _, m := range r.byType {
		if !strings.EqualFold(m.table, table) {
			continue
		}
		if found != nil {
			return nil, false
		}
		found = m
	}
	return found, found != nil
}

// Names returns the registered DTO type names, sorted.
func (r *Registry) Names() []string {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	names := make([]string, 0, len(r.byName))
	for _, m := range r.byName {
		names = append(names, m.name)
	}
	sort.Strings(names)
	return names
}

// For returns the mapping registered for T.
func For[T any](r *Registry) (*Mapping, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	m, ok := r.Lookup(t)
	if !ok {
		return nil, queryerr.Invariant("no mapping registered for %s", t)
	}
	return m, nil
}

// String lists the registered mappings, for logs.
func (r *Registry) String() string {
	return fmt.Sprintf("mapping.Registry%v", r.Names())
}
