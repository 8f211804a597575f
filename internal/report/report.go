// Package report renders registry query results for people and scripts.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/olehluchkiv/typereg/internal/registry"
)

// Query selects the type to describe and the optional lookups to run
// against it.
type Query struct {
	Type   string
	Method string
	// Params applies to Method.
	Params []string
	Field  string
	// Constructor runs a constructor lookup with these parameter types
	// when non-nil.
	Constructor []string
	Nested      string
}

// Report is the result of running a Query.
type Report struct {
	Type        registry.TypeDescriptor `json:"-"`
	Name        string                  `json:"name"`
	Kind        string                  `json:"kind"`
	Visibility  string                  `json:"visibility"`
	Package     string                  `json:"package,omitempty"`
	Annotations []string                `json:"annotations,omitempty"`
	Supertypes  []string                `json:"supertypes,omitempty"`
	Interfaces  []string                `json:"interfaces,omitempty"`
	Public      []MemberView            `json:"publicMembers"`
	Declared    []MemberView            `json:"declaredMembers"`
	Lookups     []Lookup                `json:"lookups,omitempty"`
}

// MemberView is the flattened, serializable form of a registry.Member.
type MemberView struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Declaration string `json:"declaration"`
	Visibility  string `json:"visibility"`
	DeclaredBy  string `json:"declaredBy"`
}

// Lookup records one resolved (or unresolved) member lookup. A missing
// member is an ordinary outcome and is reported in Error.
type Lookup struct {
	Kind   string `json:"kind"`
	Query  string `json:"query"`
	Result string `json:"result,omitempty"`
	Owner  string `json:"owner,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Found reports whether the lookup succeeded.
func (l Lookup) Found() bool { return l.Error == "" }

// Build runs q against reg. It fails when the type is missing or its
// hierarchy is invalid; individual lookups never fail the report.
func Build(reg *registry.Registry, q Query) (*Report, error) {
	d, err := reg.Lookup(q.Type)
	if err != nil {
		return nil, err
	}
	supers, err := reg.Supertypes(q.Type)
	if err != nil {
		return nil, err
	}
	ifaces, err := reg.AllInterfaces(q.Type)
	if err != nil {
		return nil, err
	}
	public, err := reg.PublicMembers(q.Type)
	if err != nil {
		return nil, err
	}
	declared, err := reg.DeclaredMembers(q.Type)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Type:        d,
		Name:        d.Name,
		Kind:        d.Kind.String(),
		Visibility:  d.Visibility.String(),
		Package:     registry.Package(d.Name),
		Annotations: d.Annotations,
		Interfaces:  ifaces,
		Public:      Views(public),
		Declared:    Views(declared),
	}

	last := d
	for _, s := range supers {
		r.Supertypes = append(r.Supertypes, s.Name)
		last = s
	}
	if last.Super != "" {
		label := " (unregistered)"
		if last.SuperExternal {
			label = " (external)"
		}
		r.Supertypes = append(r.Supertypes, last.Super+label)
	}

	if q.Method != "" {
		l := Lookup{Kind: "method", Query: q.Method + "(" + strings.Join(q.Params, ", ") + ")"}
		if m, err := reg.FindMethod(q.Type, q.Method, q.Params); err != nil {
			l.Error = lookupError(err)
		} else {
			l.Result = m.Visibility.String() + " " + m.Signature()
		}
		r.Lookups = append(r.Lookups, l)
	}
	if q.Field != "" {
		l := Lookup{Kind: "field", Query: q.Field}
		if f, owner, err := reg.FindFieldOwner(q.Type, q.Field); err != nil {
			l.Error = lookupError(err)
		} else {
			l.Result = f.Visibility.String() + " " + f.Type + " " + f.Name
			l.Owner = owner
		}
		r.Lookups = append(r.Lookups, l)
	}
	if q.Constructor != nil {
		l := Lookup{Kind: "constructor", Query: registry.SimpleName(q.Type) + "(" + strings.Join(q.Constructor, ", ") + ")"}
		if c, err := reg.FindConstructor(q.Type, q.Constructor); err != nil {
			l.Error = lookupError(err)
		} else {
			l.Result = c.Visibility.String() + " " + c.Signature(q.Type)
		}
		r.Lookups = append(r.Lookups, l)
	}
	if q.Nested != "" {
		l := Lookup{Kind: "declaring type", Query: q.Nested}
		if owner, err := reg.DeclaringTypeOf("", q.Nested); err != nil {
			l.Error = lookupError(err)
		} else {
			l.Result = owner.Name
			l.Owner = owner.Name
		}
		r.Lookups = append(r.Lookups, l)
	}
	return r, nil
}

func lookupError(err error) string {
	if errors.Is(err, registry.ErrNotFound) {
		return "not found"
	}
	return err.Error()
}

// Views flattens members for serialization.
func Views(members []registry.Member) []MemberView {
	out := make([]MemberView, len(members))
	for i, m := range members {
		out[i] = MemberView{
			Category:    m.Category.String(),
			Name:        m.Name(),
			Declaration: m.String(),
			Visibility:  m.Visibility().String(),
			DeclaredBy:  m.DeclaredBy,
		}
	}
	return out
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human-readable rendering of r.
func WriteText(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Type: %s\n", r.Name)
	fmt.Fprintf(tw, "  kind: %s\tvisibility: %s\tpackage: %s\n", r.Kind, r.Visibility, orDash(r.Package))
	if len(r.Annotations) > 0 {
		fmt.Fprintf(tw, "  annotations: %s\n", strings.Join(r.Annotations, ", "))
	}

	writeList(tw, "Supertype chain", r.Supertypes)
	writeList(tw, "Interfaces", r.Interfaces)

	fmt.Fprintf(tw, "\nPublic members (%d):\n", len(r.Public))
	for _, m := range r.Public {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Category, m.Declaration, registry.SimpleName(m.DeclaredBy))
	}

	fmt.Fprintf(tw, "\nDeclared members (%d):\n", len(r.Declared))
	for _, m := range r.Declared {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Visibility, m.Category, m.Declaration)
	}

	if len(r.Lookups) > 0 {
		fmt.Fprintf(tw, "\nLookups:\n")
		for _, l := range r.Lookups {
			result := l.Result
			if !l.Found() {
				result = "error: " + l.Error
			}
			if l.Found() && l.Owner != l.Result && l.Owner != r.Name {
				result += " (declared by " + registry.SimpleName(l.Owner) + ")"
			}
			fmt.Fprintf(tw, "  %s\t%s\t-> %s\n", l.Kind, l.Query, result)
		}
	}
	return tw.Flush()
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "\n%s: none\n", title)
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", it)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
