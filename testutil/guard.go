// Package testutil provides reusable testing helpers for enforcing
// package boundary invariants across the repository.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// AssertNoDirectImports scans all non-test .go files in dir (typically "." from within the package)
// and fails if any import path satisfies the forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfDirectViolations(t, reason, viols)
}

// AssertNoTransitiveImports loads the packages matching pattern, without
// their tests, and fails if any package they reach imports a path satisfying
// the forbidden predicate.
func AssertNoTransitiveImports(t testing.TB, pattern string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := transitiveImportViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden transitive imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

// AssertOnlyImportedBy fails when a package matching pattern, other than those
// under an allowed prefix, imports a package under target.
func AssertOnlyImportedBy(t testing.TB, pattern, target string, allowed ...string) {
	t.Helper()
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var viols []string
	for _, pkg := range pkgs {
		if underPrefix(pkg.PkgPath, target) || anyUnderPrefix(pkg.PkgPath, allowed) {
			continue
		}
		for importPath := range pkg.Imports {
			if underPrefix(importPath, target) {
				viols = append(viols, pkg.PkgPath+": "+importPath)
			}
		}
	}
	sort.Strings(viols)
	if len(viols) > 0 {
		t.Fatalf("only %v may import %s:\n%s", allowed, target, strings.Join(viols, "\n"))
	}
}

func transitiveImportViolations(pattern string, forbidden func(importPath string) bool) ([]string, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	found := make(map[string]struct{})
	var walk func(pkg *packages.Package)
	walk = func(pkg *packages.Package) {
		if _, ok := seen[pkg.PkgPath]; ok {
			return
		}
		seen[pkg.PkgPath] = struct{}{}
		for importPath, imp := range pkg.Imports {
			if forbidden(importPath) {
				found[importPath+" (imported by "+pkg.PkgPath+")"] = struct{}{}
			}
			walk(imp)
		}
	}
	for _, pkg := range pkgs {
		walk(pkg)
	}
	viols := make([]string, 0, len(found))
	for v := range found {
		viols = append(viols, v)
	}
	sort.Strings(viols)
	return viols, nil
}

func underPrefix(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}

func anyUnderPrefix(importPath string, prefixes []string) bool {
	for _, p := range prefixes {
		if underPrefix(importPath, p) {
			return true
		}
	}
	return false
}

// InternalImportForbidden matches any import path containing /internal/.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// PrefixForbidden returns a predicate matching import paths that start with any prefix.
func PrefixForbidden(prefixes ...string) func(string) bool {
	return func(path string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
