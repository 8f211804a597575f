// Package registry holds structural descriptions of types and answers
// hierarchy-aware queries against them.
//
// Descriptors are registered explicitly and are immutable once stored:
// Register copies the caller's value and every query returns fresh copies.
// A Registry is safe for concurrent use. Writers are serialized by a single
// write lock and queries share a read lock.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when a type or member is absent.
	ErrNotFound = errors.New("registry: not found")
	// ErrDuplicateRegistration is returned by insert-only registration when
	// the name is already taken.
	ErrDuplicateRegistration = errors.New("registry: duplicate registration")
	// ErrInvalidHierarchy is returned when a supertype chain has a cycle,
	// exceeds the depth bound, or (in strict mode) cannot be resolved.
	ErrInvalidHierarchy = errors.New("registry: invalid hierarchy")
	// ErrInvalidDescriptor is returned when a descriptor breaks a
	// uniqueness or naming invariant.
	ErrInvalidDescriptor = errors.New("registry: invalid descriptor")
)

// Registry stores TypeDescriptors keyed by fully-qualified name.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeDescriptor
	// strict makes unresolved, non-external supertypes an error.
	strict bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrictHierarchy requires every supertype reference to resolve inside
// the registry unless it is marked external.
func WithStrictHierarchy(strict bool) Option {
	return func(r *Registry) {
		r.strict = strict
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{types: make(map[string]*TypeDescriptor)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type registerConfig struct {
	insertOnly bool
}

// RegisterOption adjusts a single Register call.
type RegisterOption func(*registerConfig)

// InsertOnly makes Register fail with ErrDuplicateRegistration instead of
// replacing an existing descriptor.
func InsertOnly() RegisterOption {
	return func(c *registerConfig) {
		c.insertOnly = true
	}
}

// Register inserts or replaces d under d.Name. It either fully succeeds or
// leaves the registry unchanged.
func (r *Registry) Register(d TypeDescriptor, opts ...RegisterOption) error {
	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := d.validate(); err != nil {
		return err
	}
	stored := d.clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[d.Name]; exists && cfg.insertOnly {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, d.Name)
	}
	r.types[d.Name] = &stored
	return nil
}

// Lookup returns a copy of the descriptor registered under name.
func (r *Registry) Lookup(name string) (TypeDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.types[name]
	if !ok {
		return TypeDescriptor{}, notFoundType(name)
	}
	return d.clone(), nil
}

// Remove deletes the descriptor registered under name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.types[name]; !ok {
		return notFoundType(name)
	}
	delete(r.types, name)
	return nil
}

// Names returns all registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Reset drops every registered descriptor.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[string]*TypeDescriptor)
}

// DeclaredMembers returns the members declared directly on name, whatever
// their visibility, in declaration order: fields, methods, constructors,
// then nested types.
func (r *Registry) DeclaredMembers(name string) ([]Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.types[name]
	if !ok {
		return nil, notFoundType(name)
	}
	return r.declaredLocked(d), nil
}

// PublicMembers returns the public members of name and of every type on
// its supertype chain, self first. The nearest public declaration of a
// member wins.
func (r *Registry) PublicMembers(name string) ([]Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, err := r.chainLocked(name)
	if err != nil {
		return nil, err
	}

	var out []Member
	seen := make(map[string]bool)
	for _, d := range chain {
		for _, m := range r.declaredLocked(d) {
			if m.Visibility() != VisibilityPublic {
				continue
			}
			k := m.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// FindMethod looks up a method by name and exact parameter list, searching
// name first and then its ancestors.
func (r *Registry) FindMethod(name, method string, params []string) (MethodDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, err := r.chainLocked(name)
	if err != nil {
		return MethodDescriptor{}, err
	}
	for _, d := range chain {
		for _, m := range d.Methods {
			if m.Name == method && slices.Equal(m.Params, params) {
				m.Params = slices.Clone(m.Params)
				return m, nil
			}
		}
	}
	return MethodDescriptor{}, fmt.Errorf("%w: method %s%s in hierarchy of %s", ErrNotFound, method, paramsKey(params), name)
}

// FindField looks up a field by name, searching name first, then its
// ancestors, then the interfaces they implement.
func (r *Registry) FindField(name, field string) (FieldDescriptor, error) {
	f, _, err := r.FindFieldOwner(name, field)
	return f, err
}

// FindFieldOwner is FindField that also returns the name of the type
// declaring the field.
func (r *Registry) FindFieldOwner(name, field string) (FieldDescriptor, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, err := r.chainLocked(name)
	if err != nil {
		return FieldDescriptor{}, "", err
	}
	for _, d := range chain {
		for _, f := range d.Fields {
			if f.Name == field {
				return f, d.Name, nil
			}
		}
	}
	// Interface constants are reachable through any implementing type.
	for _, iface := range r.allInterfacesLocked(chain) {
		d, ok := r.types[iface]
		if !ok {
			continue
		}
		for _, f := range d.Fields {
			if f.Name == field {
				return f, d.Name, nil
			}
		}
	}
	return FieldDescriptor{}, "", fmt.Errorf("%w: field %s in hierarchy of %s", ErrNotFound, field, name)
}

// FindConstructor looks up a constructor declared on name by exact
// parameter list. Constructors are not inherited.
func (r *Registry) FindConstructor(name string, params []string) (ConstructorDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.types[name]
	if !ok {
		return ConstructorDescriptor{}, notFoundType(name)
	}
	for _, c := range d.Constructors {
		if slices.Equal(c.Params, params) {
			c.Params = slices.Clone(c.Params)
			return c, nil
		}
	}
	return ConstructorDescriptor{}, fmt.Errorf("%w: constructor %s%s", ErrNotFound, SimpleName(name), paramsKey(params))
}

// DeclaringTypeOf returns the type that declares nested. With a non-empty
// name only that type and its ancestors are searched; otherwise every
// registered type is considered, in name order.
func (r *Registry) DeclaringTypeOf(name, nested string) (TypeDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		chain, err := r.chainLocked(name)
		if err != nil {
			return TypeDescriptor{}, err
		}
		for _, d := range chain {
			if slices.Contains(d.Nested, nested) {
				return d.clone(), nil
			}
		}
		return TypeDescriptor{}, fmt.Errorf("%w: nested type %s in hierarchy of %s", ErrNotFound, nested, name)
	}

	for _, n := range r.namesLocked() {
		d := r.types[n]
		if slices.Contains(d.Nested, nested) {
			return d.clone(), nil
		}
	}
	return TypeDescriptor{}, fmt.Errorf("%w: no type declares %s", ErrNotFound, nested)
}

// Supertypes returns the registered ancestors of name, nearest first.
func (r *Registry) Supertypes(name string) ([]TypeDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, err := r.chainLocked(name)
	if err != nil {
		return nil, err
	}
	out := make([]TypeDescriptor, 0, len(chain)-1)
	for _, d := range chain[1:] {
		out = append(out, d.clone())
	}
	return out, nil
}

// AllInterfaces returns every interface implemented by name or its
// ancestors, including interfaces extended by registered interfaces.
// Order is nearest first, then declaration order; duplicates are dropped.
func (r *Registry) AllInterfaces(name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, err := r.chainLocked(name)
	if err != nil {
		return nil, err
	}
	return r.allInterfacesLocked(chain), nil
}

func (r *Registry) allInterfacesLocked(chain []*TypeDescriptor) []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(iface string)
	visit = func(iface string) {
		if seen[iface] {
			return
		}
		seen[iface] = true
		out = append(out, iface)
		if d, ok := r.types[iface]; ok {
			for _, parent := range d.Interfaces {
				visit(parent)
			}
		}
	}
	for _, d := range chain {
		for _, iface := range d.Interfaces {
			visit(iface)
		}
	}
	return out
}

// Validate walks the supertype chain of every registered type and reports
// all hierarchy errors found.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, n := range r.namesLocked() {
		if _, err := r.chainLocked(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// chainLocked returns name followed by its resolvable ancestors. The walk
// is bounded by the number of registered types.
func (r *Registry) chainLocked(name string) ([]*TypeDescriptor, error) {
	d, ok := r.types[name]
	if !ok {
		return nil, notFoundType(name)
	}

	chain := []*TypeDescriptor{d}
	visited := map[string]bool{d.Name: true}
	limit := len(r.types)

	for cur := d; cur.Super != "" && !cur.SuperExternal; {
		next, ok := r.types[cur.Super]
		if !ok {
			if r.strict {
				return nil, fmt.Errorf("%w: supertype %s of %s is not registered", ErrInvalidHierarchy, cur.Super, cur.Name)
			}
			break
		}
		if visited[next.Name] {
			return nil, fmt.Errorf("%w: cycle through %s in hierarchy of %s", ErrInvalidHierarchy, next.Name, name)
		}
		// Unreachable while visited holds; it bounds the walk if that
		// bookkeeping ever changes.
		if len(chain) >= limit {
			return nil, fmt.Errorf("%w: hierarchy of %s deeper than %d types", ErrInvalidHierarchy, name, limit)
		}
		visited[next.Name] = true
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}

func (r *Registry) declaredLocked(d *TypeDescriptor) []Member {
	members := make([]Member, 0, len(d.Fields)+len(d.Methods)+len(d.Constructors)+len(d.Nested))

	for _, f := range d.Fields {
		members = append(members, Member{Category: CategoryField, DeclaredBy: d.Name, Field: &f})
	}
	for _, m := range d.Methods {
		m.Params = slices.Clone(m.Params)
		members = append(members, Member{Category: CategoryMethod, DeclaredBy: d.Name, Method: &m})
	}
	for _, c := range d.Constructors {
		c.Params = slices.Clone(c.Params)
		members = append(members, Member{Category: CategoryConstructor, DeclaredBy: d.Name, Constructor: &c})
	}
	for _, n := range d.Nested {
		// Unregistered nested types are reported by name only.
		nt := TypeDescriptor{Name: n}
		if registered, ok := r.types[n]; ok {
			nt = registered.clone()
		}
		members = append(members, Member{Category: CategoryNested, DeclaredBy: d.Name, Type: &nt})
	}
	return members
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func notFoundType(name string) error {
	return fmt.Errorf("%w: type %s", ErrNotFound, name)
}
