package registry

// Category identifies which part of a type a Member came from.
type Category int

const (
	CategoryField Category = iota
	CategoryMethod
	CategoryConstructor
	CategoryNested

	// used only for uniqueness checks during validation
	categoryInterface
	categoryAnnotation
)

func (c Category) String() string {
	switch c {
	case CategoryField:
		return "field"
	case CategoryMethod:
		return "method"
	case CategoryConstructor:
		return "constructor"
	case CategoryNested:
		return "nested"
	case categoryInterface:
		return "interface"
	case categoryAnnotation:
		return "annotation"
	}
	return "unknown"
}

// Member is one (category, descriptor) entry returned by member queries.
// Exactly one of Field, Method, Constructor or Type is set, matching Category.
type Member struct {
	Category Category
	// DeclaredBy is the name of the type that declares the member.
	DeclaredBy string

	Field       *FieldDescriptor
	Method      *MethodDescriptor
	Constructor *ConstructorDescriptor
	Type        *TypeDescriptor
}

// Name returns the member's display name. Constructors are named after
// their declaring type.
func (m Member) Name() string {
	switch m.Category {
	case CategoryField:
		return m.Field.Name
	case CategoryMethod:
		return m.Method.Name
	case CategoryConstructor:
		return SimpleName(m.DeclaredBy)
	case CategoryNested:
		return m.Type.Name
	}
	return ""
}

// Visibility returns the visibility of the underlying descriptor.
func (m Member) Visibility() Visibility {
	switch m.Category {
	case CategoryField:
		return m.Field.Visibility
	case CategoryMethod:
		return m.Method.Visibility
	case CategoryConstructor:
		return m.Constructor.Visibility
	case CategoryNested:
		return m.Type.Visibility
	}
	return VisibilityPackage
}

// String renders the member the way a declaration would read.
func (m Member) String() string {
	switch m.Category {
	case CategoryField:
		return m.Field.Type + " " + m.Field.Name
	case CategoryMethod:
		return m.Method.Signature()
	case CategoryConstructor:
		return m.Constructor.Signature(m.DeclaredBy)
	case CategoryNested:
		return m.Type.Kind.String() + " " + m.Type.Name
	}
	return ""
}

// key identifies a member within its category for deduplication across a
// supertype chain.
func (m Member) key() string {
	switch m.Category {
	case CategoryField:
		return "f:" + m.Field.Name
	case CategoryMethod:
		return "m:" + methodKey(m.Method.Name, m.Method.Params)
	case CategoryConstructor:
		return "c:" + paramsKey(m.Constructor.Params)
	case CategoryNested:
		return "n:" + m.Type.Name
	}
	return ""
}

// FilterCategory returns the members of the given category, order preserved.
func FilterCategory(members []Member, c Category) []Member {
	var out []Member
	for _, m := range members {
		if m.Category == c {
			out = append(out, m)
		}
	}
	return out
}
