// Package server exposes a registry over HTTP: a JSON API for queries and
// an HTML page rendering type hierarchies as Mermaid diagrams.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/olehluchkiv/typereg/internal/diagram"
	"github.com/olehluchkiv/typereg/internal/registry"
	"github.com/olehluchkiv/typereg/internal/report"
)

var errBadRequest = errors.New("bad request")

type handler struct {
	reg    *registry.Registry
	tmpl   *template.Template
	logger *slog.Logger
}

// NewHandler returns the HTTP handler serving reg.
func NewHandler(reg *registry.Registry, logger *slog.Logger) (http.Handler, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML template: %w", err)
	}
	h := &handler{reg: reg, tmpl: tmpl, logger: logger.With("component", "server")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.page)
	mux.HandleFunc("GET /api/types", h.listTypes)
	mux.HandleFunc("GET /api/types/{name}", h.describeType)
	mux.HandleFunc("GET /api/types/{name}/members", h.members)
	mux.HandleFunc("GET /api/types/{name}/methods/{method}", h.findMethod)
	mux.HandleFunc("GET /api/types/{name}/fields/{field}", h.findField)
	mux.HandleFunc("GET /api/types/{name}/constructors", h.findConstructor)
	mux.HandleFunc("GET /api/types/{name}/diagram", h.diagram)
	return h.logRequests(mux), nil
}

// Serve starts the HTTP server for reg.
// It blocks until the context is cancelled.
func Serve(ctx context.Context, reg *registry.Registry, port int, openBrowser bool, logger *slog.Logger) error {
	h, err := NewHandler(reg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	logger.Info("starting HTTP server", "addr", url, "types", reg.Count())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(errCh)
	}()

	if openBrowser {
		openInBrowser(url, logger)
	}

	// Block until the context is cancelled or the server fails.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	}
}

// openInBrowser opens the given URL in the default system browser.
func openInBrowser(url string, logger *slog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		logger.Warn("unsupported platform for opening browser", "os", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		logger.Warn("failed to open browser", "error", err)
	}
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Debug("request received", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (h *handler) page(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Names    []string
		Selected string
		Mermaid  string
		Error    string
	}{Names: h.reg.Names()}

	if name := r.URL.Query().Get("type"); name != "" {
		src, err := diagram.GenerateMermaid(h.reg, name, diagram.DefaultDiagramOptions())
		if err != nil {
			data.Error = err.Error()
		} else {
			data.Selected = name
			data.Mermaid = src
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *handler) listTypes(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.reg.Names())
}

func (h *handler) describeType(w http.ResponseWriter, r *http.Request) {
	rep, err := report.Build(h.reg, report.Query{Type: r.PathValue("name")})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

func (h *handler) members(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var (
		members []registry.Member
		err     error
	)
	switch scope := r.URL.Query().Get("scope"); scope {
	case "", "public":
		members, err = h.reg.PublicMembers(name)
	case "declared":
		members, err = h.reg.DeclaredMembers(name)
	default:
		err = fmt.Errorf("%w: unknown scope %q (valid: public, declared)", errBadRequest, scope)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report.Views(members))
}

func (h *handler) findMethod(w http.ResponseWriter, r *http.Request) {
	m, err := h.reg.FindMethod(r.PathValue("name"), r.PathValue("method"), SplitParams(r.URL.Query().Get("params")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"name":       m.Name,
		"params":     nonNil(m.Params),
		"returns":    m.Returns,
		"visibility": m.Visibility.String(),
		"static":     m.Static,
		"abstract":   m.Abstract,
		"signature":  m.Signature(),
	})
}

func (h *handler) findField(w http.ResponseWriter, r *http.Request) {
	f, owner, err := h.reg.FindFieldOwner(r.PathValue("name"), r.PathValue("field"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"name":       f.Name,
		"type":       f.Type,
		"visibility": f.Visibility.String(),
		"static":     f.Static,
		"final":      f.Final,
		"declaredBy": owner,
	})
}

func (h *handler) findConstructor(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	c, err := h.reg.FindConstructor(name, SplitParams(r.URL.Query().Get("params")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"params":     nonNil(c.Params),
		"visibility": c.Visibility.String(),
		"signature":  c.Signature(name),
	})
}

func (h *handler) diagram(w http.ResponseWriter, r *http.Request) {
	src, err := diagram.GenerateMermaid(h.reg, r.PathValue("name"), diagram.DefaultDiagramOptions())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(src))
}

// SplitParams parses a comma-separated parameter type list. An empty
// string means no parameters.
func SplitParams(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrInvalidHierarchy):
		return http.StatusConflict
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}
