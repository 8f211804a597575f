// Package manifest reads and writes YAML documents that describe types for
// the registry.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/olehluchkiv/typereg/internal/registry"
)

const (
	// CurrentVersion is written by Export.
	CurrentVersion = "1.0.0"
	// SupportedVersions is the constraint a document's schemaVersion must meet.
	SupportedVersions = "^1.0"
)

// Document is the top-level manifest.
type Document struct {
	SchemaVersion string `yaml:"schemaVersion,omitempty" json:"schemaVersion,omitempty" jsonschema:"description=Manifest format version (semver)"`
	Types         []Type `yaml:"types" json:"types"`
}

// Type describes one registry entry.
type Type struct {
	Name          string        `yaml:"name" json:"name" jsonschema:"description=Fully-qualified type name"`
	Kind          string        `yaml:"kind,omitempty" json:"kind,omitempty" jsonschema:"enum=class,enum=interface,enum=enum"`
	Visibility    string        `yaml:"visibility,omitempty" json:"visibility,omitempty" jsonschema:"enum=public,enum=protected,enum=package,enum=default,enum=private"`
	Super         string        `yaml:"super,omitempty" json:"super,omitempty"`
	SuperExternal bool          `yaml:"superExternal,omitempty" json:"superExternal,omitempty" jsonschema:"description=Supertype lives outside the registry"`
	Interfaces    []string      `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	Fields        []Field       `yaml:"fields,omitempty" json:"fields,omitempty"`
	Methods       []Method      `yaml:"methods,omitempty" json:"methods,omitempty"`
	Constructors  []Constructor `yaml:"constructors,omitempty" json:"constructors,omitempty"`
	Nested        []string      `yaml:"nested,omitempty" json:"nested,omitempty"`
	Annotations   []string      `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// Field describes a field.
type Field struct {
	Name       string `yaml:"name" json:"name"`
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
	Visibility string `yaml:"visibility,omitempty" json:"visibility,omitempty" jsonschema:"enum=public,enum=protected,enum=package,enum=default,enum=private"`
	Static     bool   `yaml:"static,omitempty" json:"static,omitempty"`
	Final      bool   `yaml:"final,omitempty" json:"final,omitempty"`
}

// Method describes a method.
type Method struct {
	Name       string   `yaml:"name" json:"name"`
	Params     []string `yaml:"params,omitempty" json:"params,omitempty"`
	Returns    string   `yaml:"returns,omitempty" json:"returns,omitempty"`
	Visibility string   `yaml:"visibility,omitempty" json:"visibility,omitempty" jsonschema:"enum=public,enum=protected,enum=package,enum=default,enum=private"`
	Static     bool     `yaml:"static,omitempty" json:"static,omitempty"`
	Abstract   bool     `yaml:"abstract,omitempty" json:"abstract,omitempty"`
}

// Constructor describes a constructor.
type Constructor struct {
	Params     []string `yaml:"params,omitempty" json:"params,omitempty"`
	Visibility string   `yaml:"visibility,omitempty" json:"visibility,omitempty" jsonschema:"enum=public,enum=protected,enum=package,enum=default,enum=private"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a manifest and checks its schema version. Unknown keys are
// rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty manifest")
		}
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := checkVersion(doc.SchemaVersion); err != nil {
		return nil, err
	}
	return &doc, nil
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid schemaVersion %q: %w", v, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(ver) {
		return fmt.Errorf("unsupported schemaVersion %s (supported: %s)", v, SupportedVersions)
	}
	return nil
}

// Descriptors converts the document into registry descriptors, in
// document order.
func (d *Document) Descriptors() ([]registry.TypeDescriptor, error) {
	out := make([]registry.TypeDescriptor, 0, len(d.Types))
	for i, t := range d.Types {
		desc, err := t.descriptor()
		if err != nil {
			name := t.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		out = append(out, desc)
	}
	return out, nil
}

func (t Type) descriptor() (registry.TypeDescriptor, error) {
	kind, err := registry.ParseKind(t.Kind)
	if err != nil {
		return registry.TypeDescriptor{}, err
	}
	vis, err := registry.ParseVisibility(t.Visibility)
	if err != nil {
		return registry.TypeDescriptor{}, err
	}

	d := registry.TypeDescriptor{
		Name:          t.Name,
		Kind:          kind,
		Visibility:    vis,
		Super:         t.Super,
		SuperExternal: t.SuperExternal,
		Interfaces:    t.Interfaces,
		Nested:        t.Nested,
		Annotations:   t.Annotations,
	}
	for _, f := range t.Fields {
		v, err := registry.ParseVisibility(f.Visibility)
		if err != nil {
			return registry.TypeDescriptor{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		d.Fields = append(d.Fields, registry.FieldDescriptor{
			Name: f.Name, Type: f.Type, Visibility: v, Static: f.Static, Final: f.Final,
		})
	}
	for _, m := range t.Methods {
		v, err := registry.ParseVisibility(m.Visibility)
		if err != nil {
			return registry.TypeDescriptor{}, fmt.Errorf("method %s: %w", m.Name, err)
		}
		d.Methods = append(d.Methods, registry.MethodDescriptor{
			Name: m.Name, Params: m.Params, Returns: m.Returns, Visibility: v, Static: m.Static, Abstract: m.Abstract,
		})
	}
	for _, c := range t.Constructors {
		v, err := registry.ParseVisibility(c.Visibility)
		if err != nil {
			return registry.TypeDescriptor{}, fmt.Errorf("constructor: %w", err)
		}
		d.Constructors = append(d.Constructors, registry.ConstructorDescriptor{Params: c.Params, Visibility: v})
	}
	return d, nil
}

// Apply registers every type of doc in document order and returns how many
// were registered. Each registration is atomic; the first failure stops
// the apply and earlier registrations stay in place.
func Apply(reg *registry.Registry, doc *Document, insertOnly bool) (int, error) {
	descs, err := doc.Descriptors()
	if err != nil {
		return 0, err
	}
	var opts []registry.RegisterOption
	if insertOnly {
		opts = append(opts, registry.InsertOnly())
	}
	for i, d := range descs {
		if err := reg.Register(d, opts...); err != nil {
			return i, fmt.Errorf("registering %s: %w", d.Name, err)
		}
	}
	return len(descs), nil
}

// Export renders every registered type as a manifest, sorted by name.
func Export(reg *registry.Registry) (*Document, error) {
	doc := &Document{SchemaVersion: CurrentVersion}
	for _, name := range reg.Names() {
		d, err := reg.Lookup(name)
		if err != nil {
			// Removed concurrently; skip it.
			if errors.Is(err, registry.ErrNotFound) {
				continue
			}
			return nil, err
		}
		doc.Types = append(doc.Types, fromDescriptor(d))
	}
	return doc, nil
}

func fromDescriptor(d registry.TypeDescriptor) Type {
	t := Type{
		Name:          d.Name,
		Kind:          d.Kind.String(),
		Visibility:    d.Visibility.String(),
		Super:         d.Super,
		SuperExternal: d.SuperExternal,
		Interfaces:    d.Interfaces,
		Nested:        d.Nested,
		Annotations:   d.Annotations,
	}
	for _, f := range d.Fields {
		t.Fields = append(t.Fields, Field{
			Name: f.Name, Type: f.Type, Visibility: f.Visibility.String(), Static: f.Static, Final: f.Final,
		})
	}
	for _, m := range d.Methods {
		t.Methods = append(t.Methods, Method{
			Name: m.Name, Params: m.Params, Returns: m.Returns, Visibility: m.Visibility.String(), Static: m.Static, Abstract: m.Abstract,
		})
	}
	for _, c := range d.Constructors {
		t.Constructors = append(t.Constructors, Constructor{Params: c.Params, Visibility: c.Visibility.String()})
	}
	return t
}

// Marshal encodes the document as YAML.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Schema returns the JSON Schema describing a manifest document.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	s := r.Reflect(&Document{})
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest schema: %w", err)
	}
	return b, nil
}
