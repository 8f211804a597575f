package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehluchkiv/typereg/internal/manifest"
	"github.com/olehluchkiv/typereg/internal/registry"
)

const concreteClass = "com.fritz.reflection.ConcreteClass"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	doc, err := manifest.Load(filepath.Join("..", "..", "testdata", "manifests", "reflection.yaml"))
	require.NoError(t, err)
	reg := registry.New()
	_, err = manifest.Apply(reg, doc, true)
	require.NoError(t, err)

	h, err := NewHandler(reg, discardLogger())
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, reg
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestAPI_ListTypes(t *testing.T) {
	srv, reg := newTestServer(t)

	resp, body := get(t, srv, "/api/types")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var names []string
	require.NoError(t, json.Unmarshal([]byte(body), &names))
	assert.Equal(t, reg.Names(), names)
}

func TestAPI_DescribeType(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv, "/api/types/"+concreteClass)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	assert.Equal(t, concreteClass, decoded["name"])
	assert.Equal(t, "com.fritz.reflection", decoded["package"])

	resp, body = get(t, srv, "/api/types/com.fritz.reflection.Missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "not found")
}

func TestAPI_Members(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{name: "default scope is public", query: "", status: http.StatusOK, count: 11},
		{name: "declared", query: "?scope=declared", status: http.StatusOK, count: 17},
		{name: "bad scope", query: "?scope=everything", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv, "/api/types/"+concreteClass+"/members"+tt.query)
			require.Equal(t, tt.status, resp.StatusCode, body)
			if tt.status != http.StatusOK {
				return
			}
			var members []map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &members))
			assert.Len(t, members, tt.count)
		})
	}
}

func TestAPI_FindMethod(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv, "/api/types/"+concreteClass+"/methods/method2?params=java.lang.String")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"signature":"method2(java.lang.String) int"`)

	// Inherited from BaseClass.
	resp, _ = get(t, srv, "/api/types/"+concreteClass+"/methods/method6?params=int")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, srv, "/api/types/"+concreteClass+"/methods/method2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_FindFieldAndConstructor(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv, "/api/types/"+concreteClass+"/fields/baseInt")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"name":"baseInt"`)
	assert.Contains(t, body, `"declaredBy":"com.fritz.reflection.BaseClass"`)

	resp, body = get(t, srv, "/api/types/"+concreteClass+"/fields/interfaceInt")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"declaredBy":"com.fritz.reflection.BaseInterface"`)
	assert.Contains(t, body, `"static":true`)

	resp, _ = get(t, srv, "/api/types/"+concreteClass+"/fields/nonexistent")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, srv, "/api/types/"+concreteClass+"/constructors?params=int")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"signature":"ConcreteClass(int)"`)

	resp, _ = get(t, srv, "/api/types/"+concreteClass+"/constructors")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_HierarchyConflict(t *testing.T) {
	srv, reg := newTestServer(t)
	require.NoError(t, reg.Register(registry.TypeDescriptor{Name: "loop.A", Super: "loop.B"}))
	require.NoError(t, reg.Register(registry.TypeDescriptor{Name: "loop.B", Super: "loop.A"}))

	resp, _ := get(t, srv, "/api/types/loop.A/members")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = get(t, srv, "/api/types/loop.A/diagram")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_Diagram(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv, "/api/types/"+concreteClass+"/diagram")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "classDiagram"))
	assert.Contains(t, body, "com_fritz_reflection_ConcreteClass --|> com_fritz_reflection_BaseClass")
}

func TestPage(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Select a type")
	assert.Contains(t, body, "java.util.HashMap")

	_, body = get(t, srv, "/?type="+concreteClass)
	assert.Contains(t, body, `<pre class="mermaid">classDiagram`)

	_, body = get(t, srv, "/?type=no.Such")
	assert.Contains(t, body, "not found")

	resp, _ = get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSplitParams(t *testing.T) {
	assert.Nil(t, SplitParams(""))
	assert.Nil(t, SplitParams("  "))
	assert.Equal(t, []string{"int"}, SplitParams("int"))
	assert.Equal(t, []string{"java.lang.String", "int"}, SplitParams("java.lang.String, int"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, registry.New(), port, false, discardLogger())
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
