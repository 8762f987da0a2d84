// Package discovery finds controller constructors annotated with
// //fastpress:controller and generates the file that registers them.
package discovery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// AnnotationPrefix starts every discovery annotation.
const AnnotationPrefix = "//fastpress:"

// Annotation is a parsed //fastpress:<kind> [-Flag[=value]...] comment.
type Annotation struct {
	Kind  string  `parser:"Comment Prefix @Ident"`
	Flags []*Flag `parser:"@@*"`
}

// Flag is a -Name or -Name=value item.
type Flag struct {
	Name  string  `parser:"Dash @Ident"`
	Value *string `parser:"( Equals @( Dash? Number | Ident | String ) )?"`
}

// ControllerOptions are the flags accepted by //fastpress:controller.
type ControllerOptions struct {
	Priority int
}

var annotationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//`},
	{Name: "Prefix", Pattern: `fastpress:`},
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var annotationParser = participle.MustBuild[Annotation](
	participle.Lexer(annotationLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// IsAnnotation reports whether a comment line is a discovery annotation.
func IsAnnotation(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), AnnotationPrefix)
}

// ParseAnnotation parses a single comment line.
func ParseAnnotation(line string) (*Annotation, error) {
	a, err := annotationParser.ParseString("", strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("malformed annotation %q: %w", strings.TrimSpace(line), err)
	}
	return a, nil
}

// ControllerOptions validates a controller annotation and returns its flags.
func (a *Annotation) ControllerOptions() (ControllerOptions, error) {
	var opts ControllerOptions
	if a.Kind != "controller" {
		return opts, fmt.Errorf("unknown annotation kind %q", a.Kind)
	}

	seen := map[string]bool{}
	for _, f := range a.Flags {
		if seen[f.Name] {
			return opts, fmt.Errorf("duplicate flag -%s", f.Name)
		}
		seen[f.Name] = true

		switch f.Name {
		case "Priority":
			if f.Value == nil {
				return opts, fmt.Errorf("-Priority needs a value, e.g. -Priority=10")
			}
			n, err := strconv.Atoi(*f.Value)
			if err != nil {
				return opts, fmt.Errorf("-Priority must be an integer, got %q", *f.Value)
			}
			opts.Priority = n
		default:
			return opts, fmt.Errorf("unknown flag -%s for controller annotation", f.Name)
		}
	}
	return opts, nil
}
