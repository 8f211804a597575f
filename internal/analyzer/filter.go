package analyzer

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/olehluchkiv/typereg/internal/registry"
)

// Filter applies filtering options to the analysis result. Supertypes that
// are filtered out are marked external so the remaining hierarchy stays
// resolvable.
func Filter(result *Result, opts AnalyzeOptions) *Result {
	filtered := &Result{Packages: result.Packages}
	kept := make(map[string]bool)

	for _, d := range result.Types {
		if !opts.IncludeUnexported && d.Visibility != registry.VisibilityPublic {
			continue
		}
		if opts.Filter != "" && !matchPackage(opts.Filter, registry.Package(d.Name)) {
			continue
		}
		kept[d.Name] = true
	}

	for _, d := range result.Types {
		if !kept[d.Name] {
			continue
		}
		if d.Super != "" && !d.SuperExternal && !kept[d.Super] {
			d.SuperExternal = true
		}
		if !opts.IncludeStdlib {
			var ifaces []string
			for _, iface := range d.Interfaces {
				if !isStdlib(registry.Package(iface)) {
					ifaces = append(ifaces, iface)
				}
			}
			d.Interfaces = ifaces
		}
		filtered.Types = append(filtered.Types, d)
	}
	return filtered
}

// matchPackage treats pattern as a doublestar glob when it contains glob
// syntax and as a package path prefix otherwise.
func matchPackage(pattern, pkgPath string) bool {
	if strings.ContainsAny(pattern, "*?[{") {
		ok, err := doublestar.Match(pattern, pkgPath)
		return err == nil && ok
	}
	return strings.HasPrefix(pkgPath, pattern)
}

func isStdlib(pkgPath string) bool {
	if pkgPath == "" {
		// Universe scope, e.g. error.
		return true
	}
	// Stdlib packages have no dot in the first path element
	firstSlash := strings.IndexByte(pkgPath, '/')
	firstPart := pkgPath
	if firstSlash >= 0 {
		firstPart = pkgPath[:firstSlash]
	}
	return !strings.Contains(firstPart, ".")
}
