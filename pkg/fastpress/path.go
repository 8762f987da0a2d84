package fastpress

import (
	"strings"
)

// PathPartType is the kind of one segment piece of a route path.
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
	WildcardPart
)

// PathPart is one parsed piece of a Path.
type PathPart struct {
	Type  PathPartType
	Value string // literal text for static parts, the name for parameters
}

// Path is a route path. Parameters may be written as ":id" or "{id}"; a
// trailing "*" or "{*}" is a wildcard.
type Path string

func (p Path) Raw() string {
	return string(p)
}

// Parts splits the path into static, parameter and wildcard parts.
func (p Path) Parts() []PathPart {
	path := string(p)
	var parts []PathPart
	var static strings.Builder

	flush := func() {
		if static.Len() > 0 {
			parts = append(parts, PathPart{Type: StaticPart, Value: static.String()})
			static.Reset()
		}
	}

	for i := 0; i < len(path); {
		switch {
		case path[i] == '{':
			end := strings.IndexByte(path[i:], '}')
			if end == -1 {
				static.WriteByte(path[i])
				i++
				continue
			}
			flush()
			name := path[i+1 : i+end]
			if name == "*" {
				parts = append(parts, PathPart{Type: WildcardPart, Value: "*"})
			} else {
				// {id:int} keeps only the name
				if colon := strings.IndexByte(name, ':'); colon != -1 {
					name = name[:colon]
				}
				parts = append(parts, PathPart{Type: ParameterPart, Value: name})
			}
			i += end + 1
		case path[i] == ':' && (i == 0 || path[i-1] == '/'):
			flush()
			end := strings.IndexByte(path[i:], '/')
			if end == -1 {
				end = len(path) - i
			}
			parts = append(parts, PathPart{Type: ParameterPart, Value: path[i+1 : i+end]})
			i += end
		case path[i] == '*':
			flush()
			parts = append(parts, PathPart{Type: WildcardPart, Value: "*"})
			i++
		default:
			static.WriteByte(path[i])
			i++
		}
	}
	flush()
	return parts
}

// Params returns the parameter names in order of appearance.
func (p Path) Params() []string {
	var names []string
	for _, part := range p.Parts() {
		if part.Type == ParameterPart {
			names = append(names, part.Value)
		}
	}
	return names
}

// Render rewrites the path in the ":name" syntax shared by echo, gin and
// fiber, using wildcard for catch-all parts.
func (p Path) Render(wildcard string) string {
	var b strings.Builder
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			b.WriteString(":" + part.Value)
		case WildcardPart:
			b.WriteString(wildcard)
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

// JoinPath joins a controller prefix and a route path the way routers expect:
// one leading slash, no duplicate slashes and no trailing slash except for the root.
func JoinPath(prefix, path string) string {
	joined := "/" + strings.Trim(prefix, "/")
	if p := strings.Trim(path, "/"); p != "" {
		if joined == "/" {
			joined = ""
		}
		joined += "/" + p
	}
	return joined
}
