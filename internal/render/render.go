// Package render provides stock renderers for turning a resolved
// format and a result value into output text.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/parley-ai/parley/internal/command"
)

// Template returns a renderer that treats the format as a Go
// text/template executed against the result value. Unknown fields are
// rendering errors, not silent blanks.
func Template() command.Renderer {
	return func(format string, value any) (string, error) {
		tmpl, err := template.New("render").
			Funcs(funcs()).
			Option("missingkey=error").
			Parse(format)
		if err != nil {
			return "", fmt.Errorf("render: parse format: %w", err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, value); err != nil {
			return "", fmt.Errorf("render: execute format: %w", err)
		}
		return buf.String(), nil
	}
}

var simpleRef = regexp.MustCompile(`\$\{(\w+)\}`)

// Expand returns a renderer for plain ${field} substitution against a
// map-shaped value. References with no matching field are left intact.
func Expand() command.Renderer {
	return func(format string, value any) (string, error) {
		lookup, err := fieldLookup(value)
		if err != nil {
			return "", err
		}
		return simpleRef.ReplaceAllStringFunc(format, func(match string) string {
			name := match[2 : len(match)-1]
			if v, ok := lookup(name); ok {
				return fmt.Sprint(v)
			}
			return match
		}), nil
	}
}

func fieldLookup(value any) (func(string) (any, bool), error) {
	switch v := value.(type) {
	case map[string]any:
		return func(name string) (any, bool) { x, ok := v[name]; return x, ok }, nil
	case map[string]string:
		return func(name string) (any, bool) { x, ok := v[name]; return x, ok }, nil
	case nil:
		return func(string) (any, bool) { return nil, false }, nil
	default:
		return nil, fmt.Errorf("render: cannot expand fields of %T", value)
	}
}

// funcs is the helper set available inside format templates.
func funcs() template.FuncMap {
	return template.FuncMap{
		"trim":    strings.TrimSpace,
		"upper":   strings.ToUpper,
		"lower":   strings.ToLower,
		"join":    strings.Join,
		"split":   strings.Split,
		"replace": strings.ReplaceAll,
		"default": func(defaultVal, val string) string {
			if val == "" {
				return defaultVal
			}
			return val
		},
	}
}
