package analyzer

import "github.com/olehluchkiv/typereg/internal/registry"

// Result holds the descriptors discovered in a Go module.
type Result struct {
	// Types is sorted by qualified name.
	Types []registry.TypeDescriptor
	// Packages lists the loaded package paths.
	Packages []string
}

// AnalyzeOptions controls analysis behavior.
type AnalyzeOptions struct {
	Filter            string // package path prefix or doublestar pattern
	IncludeStdlib     bool
	IncludeUnexported bool
}
