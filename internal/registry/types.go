package registry

import (
	"fmt"
	"slices"
	"strings"
)

// Kind is the structural category of a registered type.
type Kind int

const (
	KindClass Kind = iota
	KindInterface
	KindEnum
)

var kindNames = [...]string{"class", "interface", "enum"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a lower-case kind name back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "class":
		return KindClass, nil
	case "interface":
		return KindInterface, nil
	case "enum":
		return KindEnum, nil
	}
	return KindClass, fmt.Errorf("unknown kind %q (valid: class, interface, enum)", s)
}

// Visibility is the declared accessibility of a type or member.
// The zero value is package ("default") visibility.
type Visibility int

const (
	VisibilityPackage Visibility = iota
	VisibilityPublic
	VisibilityProtected
	VisibilityPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPackage:
		return "package"
	case VisibilityPublic:
		return "public"
	case VisibilityProtected:
		return "protected"
	case VisibilityPrivate:
		return "private"
	}
	return fmt.Sprintf("visibility(%d)", int(v))
}

// ParseVisibility accepts "public", "protected", "private" and
// "package" (or its aliases "default" and the empty string).
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "package", "default":
		return VisibilityPackage, nil
	case "public":
		return VisibilityPublic, nil
	case "protected":
		return VisibilityProtected, nil
	case "private":
		return VisibilityPrivate, nil
	}
	return VisibilityPackage, fmt.Errorf("unknown visibility %q (valid: public, protected, package, private)", s)
}

// TypeDescriptor describes one type. Super is a lookup key into the
// registry, not an owned value.
type TypeDescriptor struct {
	Name       string
	Kind       Kind
	Visibility Visibility

	Super string
	// SuperExternal marks Super as living outside the registry.
	SuperExternal bool

	Interfaces   []string
	Fields       []FieldDescriptor
	Methods      []MethodDescriptor
	Constructors []ConstructorDescriptor
	Nested       []string
	Annotations  []string
}

// FieldDescriptor describes a field declared on a type.
type FieldDescriptor struct {
	Name       string
	Type       string
	Visibility Visibility
	Static     bool
	Final      bool
}

// MethodDescriptor describes a method declared on a type.
type MethodDescriptor struct {
	Name       string
	Params     []string
	Returns    string
	Visibility Visibility
	Static     bool
	Abstract   bool
}

// ConstructorDescriptor describes a constructor declared on a type.
type ConstructorDescriptor struct {
	Params     []string
	Visibility Visibility
}

// Signature renders the method as name(p1, p2) returns.
func (m MethodDescriptor) Signature() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteString("(")
	b.WriteString(strings.Join(m.Params, ", "))
	b.WriteString(")")
	if m.Returns != "" {
		b.WriteString(" ")
		b.WriteString(m.Returns)
	}
	return b.String()
}

// Signature renders the constructor as owner(p1, p2) using the simple
// name of the owning type.
func (c ConstructorDescriptor) Signature(owner string) string {
	return SimpleName(owner) + "(" + strings.Join(c.Params, ", ") + ")"
}

// SimpleName strips the package qualifier from a type name.
// Nested names keep their enclosing type ("Outer$Inner").
func SimpleName(name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Package returns the package part of a qualified type name, or "" for
// unqualified names.
func Package(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

func (d TypeDescriptor) clone() TypeDescriptor {
	c := d
	c.Interfaces = slices.Clone(d.Interfaces)
	c.Nested = slices.Clone(d.Nested)
	c.Annotations = slices.Clone(d.Annotations)
	c.Fields = slices.Clone(d.Fields)
	if d.Methods != nil {
		c.Methods = make([]MethodDescriptor, len(d.Methods))
		for i, m := range d.Methods {
			m.Params = slices.Clone(m.Params)
			c.Methods[i] = m
		}
	}
	if d.Constructors != nil {
		c.Constructors = make([]ConstructorDescriptor, len(d.Constructors))
		for i, ctor := range d.Constructors {
			ctor.Params = slices.Clone(ctor.Params)
			c.Constructors[i] = ctor
		}
	}
	return c
}

// validate checks the per-type uniqueness invariants.
func (d TypeDescriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: empty type name", ErrInvalidDescriptor)
	}
	if d.Super == d.Name {
		return fmt.Errorf("%w: %s is its own supertype", ErrInvalidHierarchy, d.Name)
	}

	seen := make(map[string]bool)
	check := func(category Category, key string) error {
		k := category.String() + "\x00" + key
		if seen[k] {
			return fmt.Errorf("%w: %s declares %s %q twice", ErrInvalidDescriptor, d.Name, category, key)
		}
		seen[k] = true
		return nil
	}

	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s has a field without a name", ErrInvalidDescriptor, d.Name)
		}
		if err := check(CategoryField, f.Name); err != nil {
			return err
		}
	}
	for _, m := range d.Methods {
		if m.Name == "" {
			return fmt.Errorf("%w: %s has a method without a name", ErrInvalidDescriptor, d.Name)
		}
		if err := check(CategoryMethod, methodKey(m.Name, m.Params)); err != nil {
			return err
		}
	}
	for _, c := range d.Constructors {
		if err := check(CategoryConstructor, paramsKey(c.Params)); err != nil {
			return err
		}
	}
	for _, n := range d.Nested {
		if n == "" || n == d.Name {
			return fmt.Errorf("%w: %s has an invalid nested type %q", ErrInvalidDescriptor, d.Name, n)
		}
		if err := check(CategoryNested, n); err != nil {
			return err
		}
	}
	for _, i := range d.Interfaces {
		if err := check(categoryInterface, i); err != nil {
			return err
		}
	}
	for _, a := range d.Annotations {
		if err := check(categoryAnnotation, a); err != nil {
			return err
		}
	}
	return nil
}

func paramsKey(params []string) string {
	return "(" + strings.Join(params, ",") + ")"
}

func methodKey(name string, params []string) string {
	return name + paramsKey(params)
}
