package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehluchkiv/typereg/internal/registry"
)

var reflectionManifest = filepath.Join("testdata", "manifests", "reflection.yaml")

const concreteClass = "com.fritz.reflection.ConcreteClass"

// ---------------------------------------------------------------------------
// reorderArgs tests
// ---------------------------------------------------------------------------

func TestReorderArgs_NoArgs(t *testing.T) {
	flags, positional := reorderArgs(nil)
	assert.Nil(t, flags)
	assert.Nil(t, positional)
}

func TestReorderArgs_PositionalOnly(t *testing.T) {
	flags, positional := reorderArgs([]string{"pkg.Type"})
	assert.Nil(t, flags)
	assert.Equal(t, []string{"pkg.Type"}, positional)
}

func TestReorderArgs_PositionalBeforeFlags(t *testing.T) {
	// The whole point of reorderArgs: allow positional args before flags.
	flags, positional := reorderArgs([]string{"pkg.Type", "-method", "Run"})
	assert.Equal(t, []string{"-method", "Run"}, flags)
	assert.Equal(t, []string{"pkg.Type"}, positional)
}

func TestReorderArgs_PositionalBetweenFlags(t *testing.T) {
	flags, positional := reorderArgs([]string{"-strict", "pkg.Type", "-port", "9090"})
	assert.Equal(t, []string{"-strict", "-port", "9090"}, flags)
	assert.Equal(t, []string{"pkg.Type"}, positional)
}

func TestReorderArgs_ValueFlagWithEquals(t *testing.T) {
	flags, positional := reorderArgs([]string{"-output=diagram.mmd", "pkg.Type"})
	assert.Equal(t, []string{"-output=diagram.mmd"}, flags)
	assert.Equal(t, []string{"pkg.Type"}, positional)
}

func TestReorderArgs_DoubleHyphenValueFlag(t *testing.T) {
	flags, positional := reorderArgs([]string{"--manifest", "types.yaml", "pkg.Type"})
	assert.Equal(t, []string{"--manifest", "types.yaml"}, flags)
	assert.Equal(t, []string{"pkg.Type"}, positional)
}

func TestReorderArgs_BooleanFlagDoesNotConsumeNextArg(t *testing.T) {
	// -serve is a boolean flag (not in valueFlagSet), so it must
	// NOT consume the following positional argument.
	flags, positional := reorderArgs([]string{"-serve", "pkg.Type"})
	assert.Equal(t, []string{"-serve"}, flags)
	assert.Equal(t, []string{"pkg.Type"}, positional)
}

func TestReorderArgs_EmptyConstructorValue(t *testing.T) {
	flags, positional := reorderArgs([]string{"-constructor", "", "pkg.Type"})
	assert.Equal(t, []string{"-constructor", ""}, flags)
	assert.Equal(t, []string{"pkg.Type"}, positional)
}

func TestReorderArgs_ExportToStdout(t *testing.T) {
	flags, positional := reorderArgs([]string{"-export", "-", "-manifest", "a.yaml"})
	assert.Equal(t, []string{"-export", "-", "-manifest", "a.yaml"}, flags)
	assert.Nil(t, positional)
}

func TestReorderArgs_AllValueFlags(t *testing.T) {
	args := []string{
		"-manifest", "a.yaml",
		"-source", "./repo",
		"-filter", "github.com/foo/**",
		"-method", "Run",
		"-params", "int,string",
		"-field", "Name",
		"-constructor", "int",
		"-nested", "pkg.Outer$Inner",
		"-format", "json",
		"-output", "out.mmd",
		"-export", "out.yaml",
		"-port", "3000",
		"-log-file", "app.log",
		"-log-level", "debug",
	}
	flags, positional := reorderArgs(args)
	assert.Equal(t, args, flags)
	assert.Nil(t, positional)
}

func TestReorderArgs_ValueFlagAtEnd(t *testing.T) {
	// flag.Parse reports the missing value.
	flags, positional := reorderArgs([]string{"-port"})
	assert.Equal(t, []string{"-port"}, flags)
	assert.Nil(t, positional)
}

// ---------------------------------------------------------------------------
// parseFlags tests
// ---------------------------------------------------------------------------

func TestParseFlags(t *testing.T) {
	t.Setenv("TYPEREG_LOG_LEVEL", "")

	opts, err := parseFlags([]string{
		concreteClass,
		"-manifest", "a.yaml, b.yaml",
		"-method", "method2", "-params", "java.lang.String",
		"-constructor", "",
		"-no-browser",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, concreteClass, opts.typeName)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, opts.load.Manifests)
	assert.Equal(t, []string{"java.lang.String"}, opts.params)
	assert.NotNil(t, opts.constructor)
	assert.Empty(t, opts.constructor)
	assert.False(t, opts.browser)
	assert.Equal(t, "text", opts.format)
	assert.Equal(t, "warn", opts.logLevel)
}

func TestParseFlags_ConstructorUnset(t *testing.T) {
	opts, err := parseFlags([]string{"-manifest", "a.yaml"}, io.Discard)
	require.NoError(t, err)
	assert.Nil(t, opts.constructor)
	assert.Nil(t, opts.params)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		usage bool
	}{
		{name: "no input", args: []string{"pkg.Type"}, usage: true},
		{name: "two types", args: []string{"-manifest", "a.yaml", "a.A", "b.B"}, usage: true},
		{name: "bad format", args: []string{"-manifest", "a.yaml", "-format", "xml"}},
		{name: "unknown flag", args: []string{"-enrich"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			require.Error(t, err)
			assert.Equal(t, tt.usage, strings.HasPrefix(err.Error(), "usage"), err.Error())
		})
	}
}

func TestParseFlags_SchemaNeedsNoInput(t *testing.T) {
	opts, err := parseFlags([]string{"-schema"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.schema)
}

// ---------------------------------------------------------------------------
// run tests
// ---------------------------------------------------------------------------

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts, err := parseFlags(args, io.Discard)
	require.NoError(t, err)
	var out bytes.Buffer
	err = run(context.Background(), opts, &out, testLogger())
	return out.String(), err
}

func TestRun_TextReport(t *testing.T) {
	out, err := runArgs(t, concreteClass, "-manifest", reflectionManifest,
		"-field", "nonexistent", "-nested", concreteClass+"$ConcreteClassPublicEnum")
	require.NoError(t, err)

	assert.Contains(t, out, "Type: "+concreteClass)
	assert.Contains(t, out, "com.fritz.reflection.BaseClass")
	assert.Contains(t, out, "error: not found")
	assert.Contains(t, out, "declaring type")
}

func TestRun_JSONReport(t *testing.T) {
	out, err := runArgs(t, "-manifest", reflectionManifest, "-format", "json",
		concreteClass, "-constructor", "int")
	require.NoError(t, err)

	var decoded struct {
		Name    string
		Lookups []struct {
			Kind   string
			Result string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, concreteClass, decoded.Name)
	require.Len(t, decoded.Lookups, 1)
	assert.Equal(t, "constructor", decoded.Lookups[0].Kind)
	assert.Equal(t, "public ConcreteClass(int)", decoded.Lookups[0].Result)
}

func TestRun_MissingType(t *testing.T) {
	_, err := runArgs(t, "-manifest", reflectionManifest, "com.fritz.reflection.Nope")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestRun_DiagramOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.mmd")
	_, err := runArgs(t, "-manifest", reflectionManifest, "-output", path, concreteClass)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%%{init:"))
	assert.Contains(t, string(data), "classDiagram")
}

func TestRun_ExportOnly(t *testing.T) {
	out, err := runArgs(t, "-manifest", reflectionManifest, "-export", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "schemaVersion: 1.0.0"), out)
	assert.Contains(t, out, "name: java.util.HashMap")
}

func TestRun_Schema(t *testing.T) {
	out, err := runArgs(t, "-schema")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}
