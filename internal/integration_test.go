package internal_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehluchkiv/typereg/internal/diagram"
	"github.com/olehluchkiv/typereg/internal/loader"
	"github.com/olehluchkiv/typereg/internal/manifest"
	"github.com/olehluchkiv/typereg/internal/registry"
	"github.com/olehluchkiv/typereg/internal/report"
)

const shapesPkg = "example.com/shapes"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadShapes(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := loader.Load(context.Background(), loader.Config{
		Source: filepath.Join("..", "testdata", "shapes"),
		Strict: true,
	}, discardLogger())
	require.NoError(t, err)
	return reg
}

// Source analysis feeds the same queries a manifest does.
func TestSourceToReport(t *testing.T) {
	reg := loadShapes(t)

	r, err := report.Build(reg, report.Query{
		Type:   shapesPkg + ".Circle",
		Method: "Name",
		Field:  "ID",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{shapesPkg + ".Base"}, r.Supertypes)
	assert.Equal(t, []string{shapesPkg + ".Named", shapesPkg + ".Shape"}, r.Interfaces)
	require.Len(t, r.Lookups, 2, spew.Sdump(r.Lookups))
	assert.Equal(t, "public Name() string", r.Lookups[0].Result)
	assert.Equal(t, "public string ID", r.Lookups[1].Result)

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, r))
	assert.Contains(t, buf.String(), "Area() float64")
}

func TestSourceToDiagram(t *testing.T) {
	reg := loadShapes(t)

	src, err := diagram.GenerateMermaid(reg, shapesPkg+".Circle", diagram.DefaultDiagramOptions())
	require.NoError(t, err)

	assert.Contains(t, src, "example_com_shapes_Circle --|> example_com_shapes_Base")
	assert.Contains(t, src, "example_com_shapes_Circle ..|> example_com_shapes_Shape")
	assert.Contains(t, src, `class example_com_shapes_Shape["Shape"] {`)
	assert.Contains(t, src, "+Circle(string, float64)")
}

// Exporting an analyzed registry and loading the manifest back yields the
// same descriptors.
func TestSourceExportRoundTrip(t *testing.T) {
	reg := loadShapes(t)

	doc, err := manifest.Export(reg)
	require.NoError(t, err)
	data, err := doc.Marshal()
	require.NoError(t, err)

	parsed, err := manifest.Parse(data)
	require.NoError(t, err)
	reloaded := registry.New(registry.WithStrictHierarchy(true))
	n, err := manifest.Apply(reloaded, parsed, true)
	require.NoError(t, err)
	assert.Equal(t, reg.Count(), n)
	require.NoError(t, reloaded.Validate())

	for _, name := range reg.Names() {
		want, err := reg.Lookup(name)
		require.NoError(t, err)
		got, err := reloaded.Lookup(name)
		require.NoError(t, err)

		wantMembers, err := reg.PublicMembers(name)
		require.NoError(t, err)
		gotMembers, err := reloaded.PublicMembers(name)
		require.NoError(t, err)

		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.Super, got.Super)
		assert.Equal(t, len(wantMembers), len(gotMembers), "public members of %s:\n%s", name, spew.Sdump(gotMembers))
	}
}
