// Package resolver turns an analysis input (a local path or a GitHub URL)
// into a Go module directory on disk.
package resolver

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// skipDirs are never searched for go.mod files.
var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
}

// Resolve returns the module root for input. Local paths resolve to the
// nearest enclosing module, or the shallowest module inside the directory.
// GitHub URLs are cloned into a persistent cache.
func Resolve(ctx context.Context, input string, logger *slog.Logger) (string, error) {
	if isGitHubURL(input) {
		return fetchRepo(ctx, input, logger)
	}

	absPath, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", absPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", absPath)
	}

	modRoot, err := findModuleRoot(absPath)
	if err != nil {
		modRoot, err = findModuleRootInTree(absPath)
		if err != nil {
			return "", err
		}
	}

	logger.Info("resolved local directory", "input", input, "module_root", modRoot)
	return modRoot, nil
}

func isGitHubURL(input string) bool {
	return strings.Contains(input, "github.com") &&
		(strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"))
}

// cacheDir returns ~/.cache/typereg/repos/<hash of url>.
func cacheDir(url string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	h := sha256.Sum256([]byte(url))
	return filepath.Join(home, ".cache", "typereg", "repos", fmt.Sprintf("%x", h[:8])), nil
}

// fetchRepo refreshes a cached shallow clone of url, cloning it first when
// the cache is empty or unusable.
func fetchRepo(ctx context.Context, url string, logger *slog.Logger) (string, error) {
	dir, err := cacheDir(url)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		logger.Info("updating cached repository", "url", url, "dir", dir)
		if err := git(ctx, dir, "fetch", "--depth=1", "origin"); err == nil {
			err = git(ctx, dir, "reset", "--hard", "origin/HEAD")
			if err == nil {
				return findModuleRootInTree(dir)
			}
		}
		logger.Warn("refreshing cached clone failed, cloning again", "dir", dir)
		_ = os.RemoveAll(dir)
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	logger.Info("cloning repository", "url", url, "dest", dir)
	if err := git(ctx, "", "clone", "--depth=1", url, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("git clone: %w", err)
	}

	modRoot, err := findModuleRootInTree(dir)
	if err != nil {
		return "", fmt.Errorf("cloned repository: %w", err)
	}
	logger.Info("found module root", "module_root", modRoot)
	return modRoot, nil
}

func git(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// findModuleRoot walks upward from dir to the nearest go.mod.
func findModuleRoot(dir string) (string, error) {
	for current := dir; ; {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no go.mod found in %s or any parent directory", dir)
		}
		current = parent
	}
}

// findModuleRootInTree returns the shallowest directory under root holding
// a go.mod. Ties at the same depth are broken alphabetically.
func findModuleRootInTree(root string) (string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "go.mod" {
			found = append(found, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no go.mod found in %s", root)
	}

	depth := func(p string) int { return strings.Count(p, string(filepath.Separator)) }
	sort.Slice(found, func(i, j int) bool {
		di, dj := depth(found[i]), depth(found[j])
		if di != dj {
			return di < dj
		}
		return found[i] < found[j]
	})
	return found[0], nil
}
