// Package pattern compiles declarative command templates into anchored
// matching grammars with ordered named captures.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Field describes a named placeholder that may appear in a command template.
type Field struct {
	// Fragment is the regular expression matched by the field.
	Fragment string `json:"fragment"`
	// Optional marks the field as omissible in the input line.
	Optional bool `json:"optional,omitempty"`
	// OwnCapture marks a fragment that already embeds exactly one
	// capturing group, so the compiler must not wrap it in another.
	OwnCapture bool `json:"ownCapture,omitempty"`
}

// Tokens maps field names to the trimmed text captured for them.
// A field that matched inside an unused optional group is absent
// from the map, never present with an empty value.
type Tokens map[string]string

// Grammar is a compiled command template.
type Grammar struct {
	re    *regexp.Regexp
	names []string
}

// fieldRef matches a {{name}} or {{name?}} template token.
var fieldRef = regexp.MustCompile(`^\{\{(\w+)(\?)?\}\}$`)

// Compile turns a whitespace-delimited template into a Grammar. Tokens of
// the form {{name}} reference a declared field ({{name?}} forces it
// optional); every other token is a literal inserted verbatim. Referencing
// an undeclared field is a compile-time error.
func Compile(template string, fields map[string]Field) (*Grammar, error) {
	toks := strings.Fields(template)
	if len(toks) == 0 {
		return nil, errors.New("pattern: empty template")
	}

	var b strings.Builder
	b.WriteString(`^\s*`)

	var names []string
	mandatory := 0 // mandatory tokens emitted so far

	for i, tok := range toks {
		ref := fieldRef.FindStringSubmatch(tok)
		if ref == nil {
			if i > 0 {
				b.WriteString(separator(mandatory))
			}
			b.WriteString(tok)
			mandatory++
			continue
		}

		name := ref[1]
		field, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("pattern: unrecognized property %q in template %q", name, template)
		}
		if err := checkFragment(name, field); err != nil {
			return nil, err
		}

		frag := field.Fragment
		if !field.OwnCapture {
			frag = "(" + frag + ")"
		}

		optional := field.Optional || ref[2] == "?"
		switch {
		case optional && i > 0:
			// The separator from the previous mandatory token moves
			// inside the optional group, so omitting the field also
			// removes the dangling whitespace run.
			b.WriteString(`(?:` + separator(mandatory) + frag + `)?`)
		case optional:
			b.WriteString(`(?:` + frag + `)?`)
		default:
			if i > 0 {
				b.WriteString(separator(mandatory))
			}
			b.WriteString(frag)
			mandatory++
		}
		names = append(names, name)
	}

	b.WriteString(`\s*$`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("pattern: compile template %q: %w", template, err)
	}
	if re.NumSubexp() != len(names) {
		return nil, fmt.Errorf("pattern: template %q emits %d captures for %d fields",
			template, re.NumSubexp(), len(names))
	}

	return &Grammar{re: re, names: names}, nil
}

// MustCompile is like Compile but panics on error. Intended for
// statically declared command tables.
func MustCompile(template string, fields map[string]Field) *Grammar {
	g, err := Compile(template, fields)
	if err != nil {
		panic(err)
	}
	return g
}

// checkFragment validates a field's fragment against its OwnCapture flag.
// A fragment that embeds capturing groups without declaring them would
// silently skew the capture-to-name mapping, so it is rejected here
// instead of surfacing as a count mismatch at match time.
func checkFragment(name string, field Field) error {
	re, err := regexp.Compile(field.Fragment)
	if err != nil {
		return fmt.Errorf("pattern: field %q fragment: %w", name, err)
	}
	switch n := re.NumSubexp(); {
	case field.OwnCapture && n != 1:
		return fmt.Errorf("pattern: field %q declares its own capture but embeds %d groups", name, n)
	case !field.OwnCapture && n != 0:
		return fmt.Errorf("pattern: field %q embeds %d undeclared capture groups", name, n)
	}
	return nil
}

// separator returns the whitespace run required before the next token.
// A token preceded only by optional tokens cannot demand whitespace,
// since nothing may have been consumed yet.
func separator(mandatory int) string {
	if mandatory == 0 {
		return `\s*`
	}
	return `\s+`
}

// Names returns the field names backed by a capture, in textual
// left-to-right order.
func (g *Grammar) Names() []string {
	names := make([]string, len(g.names))
	copy(names, g.names)
	return names
}

// String returns the compiled pattern text.
func (g *Grammar) String() string {
	return g.re.String()
}

// Parse applies the grammar to one input line. A non-matching line
// yields (nil, nil): not matching is not a failure, it only means the
// line belongs to some other command. A match whose capture count
// disagrees with the compiled name list is reported as an error; it
// cannot occur for grammars built by Compile.
func (g *Grammar) Parse(input string) (Tokens, error) {
	m := g.re.FindStringSubmatchIndex(input)
	if m == nil {
		return nil, nil
	}
	if len(m)/2-1 != len(g.names) {
		return nil, errors.New("pattern: mismatched capture count")
	}

	tokens := make(Tokens, len(g.names))
	for i, name := range g.names {
		lo, hi := m[2*(i+1)], m[2*(i+1)+1]
		if lo < 0 {
			continue // optional group did not participate
		}
		tokens[name] = strings.TrimSpace(input[lo:hi])
	}
	return tokens, nil
}
