package discovery

import (
	"bytes"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"
)

// GeneratedFile is the name of the registration file written by Generate.
const GeneratedFile = "fastpress_controllers_gen.go"

const appImport = "github.com/toyz/fastpress/pkg/fastpress/app"

// Options configures Generate.
type Options struct {
	// Patterns are the directories to scan, "./..." style allowed.
	Patterns []string
	// Output is the directory receiving GeneratedFile. Defaults to ".".
	Output string
	// Package overrides the package name of the generated file.
	Package string
	// ModulePath overrides the module path read from go.mod.
	ModulePath string
}

// Result describes one generation run.
type Result struct {
	File        string
	Directories int
	Entries     []Entry
	Diagnostics []Diagnostic
}

// ErrInvalidAnnotations is returned when any diagnostic was reported.
var ErrInvalidAnnotations = errors.New("invalid controller annotations")

// Generate scans the patterns and writes the registration file. Entries are
// ordered by ascending priority, then by file path and line.
func Generate(opts Options) (*Result, error) {
	out := opts.Output
	if out == "" {
		out = "."
	}

	mod, err := resolveModule(out, opts.ModulePath)
	if err != nil {
		return nil, err
	}

	dirs, err := ExpandPatterns(opts.Patterns)
	if err != nil {
		return nil, err
	}

	res := &Result{Directories: len(dirs)}
	for _, dir := range dirs {
		entries, diags, err := ScanDir(dir)
		if err != nil {
			return nil, err
		}
		res.Diagnostics = append(res.Diagnostics, diags...)
		for _, e := range entries {
			if e.ImportPath, err = mod.ImportPath(dir); err != nil {
				return nil, err
			}
			res.Entries = append(res.Entries, e)
		}
	}
	if len(res.Diagnostics) > 0 {
		return res, fmt.Errorf("%w: %d problem(s)", ErrInvalidAnnotations, len(res.Diagnostics))
	}
	SortEntries(res.Entries)

	pkg := opts.Package
	if pkg == "" {
		pkg = packageName(out)
	}
	outImport, err := mod.ImportPath(out)
	if err != nil {
		return nil, err
	}

	res.File = filepath.Join(out, GeneratedFile)
	src, err := render(pkg, outImport, res.Entries)
	if err != nil {
		return nil, err
	}
	formatted, err := imports.Process(res.File, src, nil)
	if err != nil {
		return nil, fmt.Errorf("formatting generated code: %w", err)
	}
	if err := os.WriteFile(res.File, formatted, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", res.File, err)
	}
	return res, nil
}

func resolveModule(dir, override string) (Module, error) {
	mod, err := FindModule(dir)
	if override == "" {
		return mod, err
	}
	if err != nil {
		abs, absErr := filepath.Abs(dir)
		if absErr != nil {
			return Module{}, absErr
		}
		return Module{Path: override, Dir: abs}, nil
	}
	mod.Path = override
	return mod, nil
}

// SortEntries orders entries by priority, then file, then line.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}

// packageName reads the package clause of the existing sources in dir and
// falls back to a name derived from the directory.
func packageName(dir string) string {
	files, _ := filepath.Glob(filepath.Join(dir, "*.go"))
	sort.Strings(files)
	fset := token.NewFileSet()
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") || filepath.Base(file) == GeneratedFile {
			continue
		}
		f, err := parser.ParseFile(fset, file, nil, parser.PackageClauseOnly)
		if err == nil {
			return f.Name.Name
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "controllers"
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, filepath.Base(abs))
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "controllers"
	}
	return name
}

type importSpec struct {
	Alias string
	Path  string
}

type factoryRef struct {
	Expr string
	Pos  string
}

type fileData struct {
	Package   string
	Imports   []importSpec
	Factories []factoryRef
}

var fileTemplate = template.Must(template.New("controllers").Parse(`// Code generated by fastpress. DO NOT EDIT.

package {{ .Package }}

import (
	"github.com/toyz/fastpress/pkg/fastpress/app"
{{ range .Imports }}
	{{ .Alias }} "{{ .Path }}"
{{- end }}
)

// Controllers returns the discovered controller constructors in mount order.
func Controllers() []app.ControllerFactory {
	return []app.ControllerFactory{
{{- range .Factories }}
		{{ .Expr }}, // {{ .Pos }}
{{- end }}
	}
}
`))

func render(pkg, outImport string, entries []Entry) ([]byte, error) {
	data := fileData{Package: pkg}
	aliases := map[string]string{}
	used := map[string]bool{"app": true}

	for _, e := range entries {
		expr := e.Func
		if e.ImportPath != outImport {
			alias, ok := aliases[e.ImportPath]
			if !ok {
				alias = e.Package
				for n := 2; used[alias]; n++ {
					alias = e.Package + strconv.Itoa(n)
				}
				used[alias] = true
				aliases[e.ImportPath] = alias
				data.Imports = append(data.Imports, importSpec{Alias: alias, Path: e.ImportPath})
			}
			expr = alias + "." + e.Func
		}
		data.Factories = append(data.Factories, factoryRef{
			Expr: expr,
			Pos:  fmt.Sprintf("%s:%d", filepath.Base(e.File), e.Line),
		})
	}

	if outImport == appImport {
		return nil, errors.New("cannot generate into the app package")
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", GeneratedFile, err)
	}
	return buf.Bytes(), nil
}
