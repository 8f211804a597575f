// Package analyzer builds registry descriptors from Go source code.
//
// Go has no classes, so the mapping follows Go's own idioms: structs are
// classes, the first embedded struct is the supertype, unexported names have
// package visibility, NewT functions are constructors, and named types with
// typed constants are enums.
package analyzer

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/types/typeutil"

	"github.com/olehluchkiv/typereg/internal/registry"
)

// namedType is a type declaration found in a loaded package.
type namedType struct {
	obj   *types.TypeName
	named *types.Named
}

// Analyze loads Go packages from dir and describes every named type they
// declare.
func Analyze(ctx context.Context, dir string, opts AnalyzeOptions, logger *slog.Logger) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax |
			packages.NeedTypesInfo | packages.NeedImports,
		Dir:     dir,
		Context: ctx,
	}

	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	// Interfaces from these packages become candidates for stdlib matching.
	var extra []*packages.Package
	if opts.IncludeStdlib {
		stdlibPatterns := []string{"fmt", "io", "io/fs", "encoding", "encoding/json", "sort", "hash", "context"}
		stdPkgs, stdErr := packages.Load(cfg, stdlibPatterns...)
		if stdErr != nil {
			logger.Warn("failed to load stdlib packages", "error", stdErr)
		} else {
			extra = stdPkgs
		}
	}

	logger.Info("packages loaded", "packages_count", len(pkgs))

	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			logger.Warn("package load error", "package", pkg.PkgPath, "error", e.Msg)
		}
	}

	// Phase 1: collect declared named types and interface candidates.
	var decls []namedType
	local := make(map[string]bool)
	var ifaces []namedType
	seenIfaces := make(map[string]bool)

	addIfaces := func(scope *types.Scope) {
		for _, name := range scope.Names() {
			nt, ok := lookupNamed(scope, name)
			if !ok || !types.IsInterface(nt.named) {
				continue
			}
			key := qualifiedName(nt.obj)
			if seenIfaces[key] {
				continue
			}
			seenIfaces[key] = true
			ifaces = append(ifaces, nt)
		}
	}

	var pkgPaths []string
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		pkgPaths = append(pkgPaths, pkg.PkgPath)
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			nt, ok := lookupNamed(scope, name)
			if !ok {
				continue
			}
			decls = append(decls, nt)
			local[qualifiedName(nt.obj)] = true
		}
		addIfaces(scope)
		for _, imp := range pkg.Imports {
			if imp.Types != nil {
				addIfaces(imp.Types.Scope())
			}
		}
	}
	for _, pkg := range extra {
		if pkg.Types != nil {
			addIfaces(pkg.Types.Scope())
		}
	}
	sort.Slice(ifaces, func(i, j int) bool {
		return qualifiedName(ifaces[i].obj) < qualifiedName(ifaces[j].obj)
	})

	logger.Info("types collected", "types", len(decls), "interfaces", len(ifaces))

	// Phase 2: per-package facts that live outside the type itself.
	enums := make(map[string]bool)
	ctors := make(map[string][]registry.ConstructorDescriptor)
	annotations := make(map[string][]string)
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		collectScopeFacts(pkg.Types, enums, ctors)
		for _, f := range pkg.Syntax {
			collectAnnotations(pkg.PkgPath, f, annotations)
		}
	}

	// Phase 3: build descriptors and match implementations.
	var methodSetCache typeutil.MethodSetCache
	result := &Result{Packages: pkgPaths}
	for _, nt := range decls {
		d := describe(nt, local)
		key := d.Name
		if enums[key] && d.Kind == registry.KindClass {
			d.Kind = registry.KindEnum
		}
		d.Constructors = ctors[key]
		d.Annotations = annotations[key]

		if d.Kind != registry.KindInterface && nt.named.TypeParams().Len() == 0 {
			for _, iface := range ifaces {
				ifaceName := qualifiedName(iface.obj)
				if containsString(d.Interfaces, ifaceName) {
					continue
				}
				if implements(nt.named, iface.named.Underlying().(*types.Interface), &methodSetCache) {
					d.Interfaces = append(d.Interfaces, ifaceName)
					logger.Debug("match found", "type", key, "interface", ifaceName)
				}
			}
		}

		result.Types = append(result.Types, d)
		logger.Debug("described type", "name", key, "kind", d.Kind.String(),
			"fields", len(d.Fields), "methods", len(d.Methods))
	}

	sort.Slice(result.Types, func(i, j int) bool {
		return result.Types[i].Name < result.Types[j].Name
	})

	logger.Info("analysis complete", "types", len(result.Types))
	return result, nil
}

// Register stores every analyzed type in reg, in name order.
func Register(reg *registry.Registry, result *Result, insertOnly bool) (int, error) {
	var opts []registry.RegisterOption
	if insertOnly {
		opts = append(opts, registry.InsertOnly())
	}
	for i, d := range result.Types {
		if err := reg.Register(d, opts...); err != nil {
			return i, fmt.Errorf("registering %s: %w", d.Name, err)
		}
	}
	return len(result.Types), nil
}

func lookupNamed(scope *types.Scope, name string) (namedType, bool) {
	tn, ok := scope.Lookup(name).(*types.TypeName)
	if !ok || tn.IsAlias() {
		return namedType{}, false
	}
	named, ok := tn.Type().(*types.Named)
	if !ok {
		return namedType{}, false
	}
	return namedType{obj: tn, named: named}, true
}

func describe(nt namedType, local map[string]bool) registry.TypeDescriptor {
	d := registry.TypeDescriptor{
		Name:       qualifiedName(nt.obj),
		Visibility: visibility(nt.obj.Exported()),
	}

	switch u := nt.named.Underlying().(type) {
	case *types.Interface:
		d.Kind = registry.KindInterface
		for i := 0; i < u.NumEmbeddeds(); i++ {
			if en, ok := u.EmbeddedType(i).(*types.Named); ok {
				d.Interfaces = append(d.Interfaces, qualifiedName(en.Obj()))
			}
		}
		for i := 0; i < u.NumExplicitMethods(); i++ {
			m := describeMethod(u.ExplicitMethod(i))
			m.Abstract = true
			d.Methods = append(d.Methods, m)
		}
		return d

	case *types.Struct:
		for i := 0; i < u.NumFields(); i++ {
			f := u.Field(i)
			// Blank padding fields are not addressable members.
			if f.Name() == "_" {
				continue
			}
			if f.Embedded() {
				if en, ok := deref(f.Type()).(*types.Named); ok {
					name := qualifiedName(en.Obj())
					if types.IsInterface(en) {
						d.Interfaces = append(d.Interfaces, name)
						continue
					}
					if _, isStruct := en.Underlying().(*types.Struct); isStruct && d.Super == "" {
						d.Super = name
						d.SuperExternal = !local[name]
						continue
					}
				}
			}
			d.Fields = append(d.Fields, registry.FieldDescriptor{
				Name:       f.Name(),
				Type:       shortType(f.Type()),
				Visibility: visibility(f.Exported()),
			})
		}
	}

	for i := 0; i < nt.named.NumMethods(); i++ {
		d.Methods = append(d.Methods, describeMethod(nt.named.Method(i)))
	}
	return d
}

func describeMethod(fn *types.Func) registry.MethodDescriptor {
	sig := fn.Type().(*types.Signature)
	return registry.MethodDescriptor{
		Name:       fn.Name(),
		Params:     paramTypes(sig),
		Returns:    resultType(sig),
		Visibility: visibility(fn.Exported()),
	}
}

func paramTypes(sig *types.Signature) []string {
	params := sig.Params()
	var out []string
	for i := 0; i < params.Len(); i++ {
		t := params.At(i).Type()
		if sig.Variadic() && i == params.Len()-1 {
			if s, ok := t.(*types.Slice); ok {
				out = append(out, "..."+shortType(s.Elem()))
				continue
			}
		}
		out = append(out, shortType(t))
	}
	return out
}

func resultType(sig *types.Signature) string {
	results := sig.Results()
	switch results.Len() {
	case 0:
		return ""
	case 1:
		return shortType(results.At(0).Type())
	}
	parts := make([]string, results.Len())
	for i := 0; i < results.Len(); i++ {
		parts[i] = shortType(results.At(i).Type())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// collectScopeFacts finds typed constants (enums) and NewT constructors
// declared at package level. When several functions build the same type
// from the same parameter list, only one becomes a constructor: the one
// named exactly New<T>, else the first in name order.
func collectScopeFacts(pkg *types.Package, enums map[string]bool, ctors map[string][]registry.ConstructorDescriptor) {
	type candidate struct {
		fn   string
		ctor registry.ConstructorDescriptor
	}
	byType := make(map[string][]candidate)

	scope := pkg.Scope()
	for _, name := range scope.Names() {
		switch obj := scope.Lookup(name).(type) {
		case *types.Const:
			if named, ok := obj.Type().(*types.Named); ok && named.Obj().Pkg() == pkg {
				enums[qualifiedName(named.Obj())] = true
			}
		case *types.Func:
			if !strings.HasPrefix(obj.Name(), "New") {
				continue
			}
			sig := obj.Type().(*types.Signature)
			if sig.Results().Len() == 0 {
				continue
			}
			named, ok := deref(sig.Results().At(0).Type()).(*types.Named)
			if !ok || named.Obj().Pkg() != pkg || types.IsInterface(named) {
				continue
			}
			key := qualifiedName(named.Obj())
			byType[key] = append(byType[key], candidate{
				fn: obj.Name(),
				ctor: registry.ConstructorDescriptor{
					Params:     paramTypes(sig),
					Visibility: visibility(obj.Exported()),
				},
			})
		}
	}

	for key, cands := range byType {
		exact := "New" + key[strings.LastIndexByte(key, '.')+1:]
		chosen := make(map[string]int)
		var out []registry.ConstructorDescriptor
		for _, c := range cands {
			sig := strings.Join(c.ctor.Params, ",")
			if i, taken := chosen[sig]; taken {
				if c.fn == exact {
					out[i] = c.ctor
				}
				continue
			}
			chosen[sig] = len(out)
			out = append(out, c.ctor)
		}
		ctors[key] = out
	}
}

// collectAnnotations maps "Deprecated:" paragraphs and //go: directives in
// type doc comments to annotation names.
func collectAnnotations(pkgPath string, file *ast.File, out map[string][]string) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			if names := docAnnotations(doc); len(names) > 0 {
				out[pkgPath+"."+ts.Name.Name] = names
			}
		}
	}
}

func docAnnotations(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	var names []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if strings.HasPrefix(line, "Deprecated:") {
			names = append(names, "Deprecated")
			break
		}
	}
	for _, c := range doc.List {
		if !strings.HasPrefix(c.Text, "//go:") {
			continue
		}
		directive := strings.Fields(c.Text[2:])[0]
		if !containsString(names, directive) {
			names = append(names, directive)
		}
	}
	return names
}

// implements reports whether T or *T satisfies iface.
func implements(named *types.Named, iface *types.Interface, cache *typeutil.MethodSetCache) bool {
	if iface.NumMethods() == 0 {
		return false
	}
	if types.Implements(named, iface) || matchesMethodSet(cache.MethodSet(named), iface) {
		return true
	}
	ptr := types.NewPointer(named)
	return types.Implements(ptr, iface) || matchesMethodSet(cache.MethodSet(ptr), iface)
}

func matchesMethodSet(mset *types.MethodSet, iface *types.Interface) bool {
	for i := 0; i < iface.NumMethods(); i++ {
		m := iface.Method(i)
		sel := mset.Lookup(m.Pkg(), m.Name())
		if sel == nil {
			return false
		}
		if !types.Identical(sel.Obj().Type(), m.Type()) {
			return false
		}
	}
	return true
}

func qualifiedName(obj types.Object) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func visibility(exported bool) registry.Visibility {
	if exported {
		return registry.VisibilityPublic
	}
	return registry.VisibilityPackage
}

func deref(t types.Type) types.Type {
	if p, ok := t.(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

func shortType(t types.Type) string {
	return types.TypeString(t, func(pkg *types.Package) string {
		return pkg.Name()
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
