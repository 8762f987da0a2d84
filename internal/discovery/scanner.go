package discovery

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// ControllerSuffix selects the files that are scanned.
	ControllerSuffix = "_controller.go"

	fastpressImport = "github.com/toyz/fastpress/pkg/fastpress"
)

// Entry is one discovered controller constructor.
type Entry struct {
	Func     string
	Package  string
	Dir      string
	File     string
	Line     int
	Priority int

	// ImportPath is filled in by Generate from the enclosing module.
	ImportPath string
}

// Diagnostic is a problem at a source position.
type Diagnostic struct {
	File    string
	Line    int
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
}

// ExpandPatterns resolves directory arguments to absolute directories. A
// trailing "/..." includes every subdirectory except hidden ones, those
// starting with an underscore, vendor and testdata.
func ExpandPatterns(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var dirs []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}

	for _, p := range patterns {
		recursive := p == "..." || strings.HasSuffix(p, "/...")
		base := p
		if recursive {
			base = strings.TrimSuffix(strings.TrimSuffix(p, "..."), "/")
			if base == "" {
				base = "."
			}
		}

		abs, err := filepath.Abs(base)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", base, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", p)
		}

		if !recursive {
			add(abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != abs && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata"
}

// ScanDir parses the *_controller.go files of dir and returns the annotated
// constructors. Misplaced or malformed annotations are returned as
// diagnostics; only I/O and syntax errors fail the scan.
func ScanDir(dir string) ([]Entry, []Diagnostic, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+ControllerSuffix))
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(files)

	var (
		entries []Entry
		diags   []Diagnostic
	)
	fset := token.NewFileSet()
	for _, file := range files {
		f, err := parser.ParseFile(fset, file, nil, parser.ParseComments)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		e, d := scanFile(fset, f, file, dir)
		entries = append(entries, e...)
		diags = append(diags, d...)
	}
	return entries, diags, nil
}

func scanFile(fset *token.FileSet, f *ast.File, file, dir string) ([]Entry, []Diagnostic) {
	var (
		entries []Entry
		diags   []Diagnostic
	)
	report := func(pos token.Pos, format string, args ...any) {
		diags = append(diags, Diagnostic{File: file, Line: fset.Position(pos).Line, Message: fmt.Sprintf(format, args...)})
	}

	alias := fastpressAlias(f)
	attached := map[*ast.CommentGroup]bool{}

	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Doc == nil {
			continue
		}
		attached[fn.Doc] = true

		var (
			found bool
			opts  ControllerOptions
		)
		for _, c := range fn.Doc.List {
			if !IsAnnotation(c.Text) {
				continue
			}
			if found {
				report(c.Pos(), "%s has more than one annotation", fn.Name.Name)
				continue
			}
			found = true

			a, err := ParseAnnotation(c.Text)
			if err == nil {
				opts, err = a.ControllerOptions()
			}
			if err != nil {
				report(c.Pos(), "%v", err)
				found = false
			}
		}
		if !found {
			continue
		}

		switch {
		case fn.Recv != nil:
			report(fn.Pos(), "%s is a method; annotate a package level function", fn.Name.Name)
		case !fn.Name.IsExported():
			report(fn.Pos(), "%s must be exported to be registered", fn.Name.Name)
		case f.Name.Name == "main":
			report(fn.Pos(), "%s is in package main, which cannot be imported", fn.Name.Name)
		case !isControllerFactory(fn.Type, alias):
			report(fn.Pos(), "%s must have the signature func(*fastpress.AppContext) *fastpress.Controller", fn.Name.Name)
		default:
			entries = append(entries, Entry{
				Func:     fn.Name.Name,
				Package:  f.Name.Name,
				Dir:      dir,
				File:     file,
				Line:     fset.Position(fn.Pos()).Line,
				Priority: opts.Priority,
			})
		}
	}

	for _, cg := range f.Comments {
		if attached[cg] {
			continue
		}
		for _, c := range cg.List {
			if IsAnnotation(c.Text) {
				report(c.Pos(), "annotation must directly precede a function declaration")
			}
		}
	}
	return entries, diags
}

// fastpressAlias is the name the file uses for the core package, or "" when
// it is not imported by name.
func fastpressAlias(f *ast.File) string {
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != fastpressImport {
			continue
		}
		if imp.Name == nil {
			return "fastpress"
		}
		if imp.Name.Name == "_" || imp.Name.Name == "." {
			return ""
		}
		return imp.Name.Name
	}
	return ""
}

func isControllerFactory(t *ast.FuncType, alias string) bool {
	if alias == "" || t.TypeParams != nil {
		return false
	}
	if t.Params.NumFields() != 1 || t.Results.NumFields() != 1 {
		return false
	}
	return isPointerTo(t.Params.List[0].Type, alias, "AppContext") &&
		isPointerTo(t.Results.List[0].Type, alias, "Controller")
}

func isPointerTo(expr ast.Expr, pkg, name string) bool {
	star, ok := expr.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	id, ok := sel.X.(*ast.Ident)
	return ok && id.Name == pkg && sel.Sel.Name == name
}
