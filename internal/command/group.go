package command

import (
	"errors"
	"fmt"
	"strings"
)

// Group evaluates one input line against an ordered set of commands
// sharing a result type. Members are iterated in registration order
// for every group-level operation; that order fixes both the
// first-match semantics and the order in which buffered failure
// messages are joined.
type Group struct {
	prefix   string
	commands []*Command
	names    map[string]struct{}
}

// NewGroup builds a group from an initial batch of commands. The
// prefix, when non-empty, is only a cheap pre-filter, never a
// correctness device. Construction is all-or-nothing: any single add
// failure fails the whole batch.
func NewGroup(prefix string, cmds ...*Command) (*Group, error) {
	g := &Group{prefix: prefix, names: make(map[string]struct{})}
	for _, c := range cmds {
		if err := g.Add(c); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add registers a command. A duplicate name is rejected, never
// silently overwritten.
func (g *Group) Add(c *Command) error {
	if c == nil {
		return errors.New("command: cannot add nil command")
	}
	if _, dup := g.names[c.name]; dup {
		return fmt.Errorf("command: duplicate command name %q", c.name)
	}
	g.names[c.name] = struct{}{}
	g.commands = append(g.commands, c)
	return nil
}

// Prefix returns the group's pre-filter prefix.
func (g *Group) Prefix() string {
	return g.prefix
}

// Commands returns the members in registration order.
func (g *Group) Commands() []*Command {
	out := make([]*Command, len(g.commands))
	copy(out, g.commands)
	return out
}

// Get returns a member by name.
func (g *Group) Get(name string) (*Command, bool) {
	if _, ok := g.names[name]; !ok {
		return nil, false
	}
	for _, c := range g.commands {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

func (g *Group) prefixMatches(input string) bool {
	return g.prefix == "" || strings.HasPrefix(strings.TrimSpace(input), g.prefix)
}

// Validation is the preprocess outcome of one grammar-matching member.
type Validation struct {
	Command    string
	Invocation *Invocation
	Err        error
}

// Outcome is the execution outcome of one grammar-matching member.
type Outcome struct {
	Command string
	Result  *Result
	Err     error
}

// ValidateAll preprocesses every member and returns the outcomes of
// those whose grammar matched, successes and validation failures
// alike. Grammar non-matches are silently excluded.
func (g *Group) ValidateAll(input string, env any) []Validation {
	if !g.prefixMatches(input) {
		return nil
	}
	var out []Validation
	for _, c := range g.commands {
		inv, err := c.Preprocess(input, env)
		if inv == nil && err == nil {
			continue
		}
		out = append(out, Validation{Command: c.name, Invocation: inv, Err: err})
	}
	return out
}

// ProcessAll executes every member with the same filtering discipline
// as ValidateAll: every grammar-matching member is included whether
// its execution succeeded or failed, non-matches are excluded.
func (g *Group) ProcessAll(input string, env any) []Outcome {
	if !g.prefixMatches(input) {
		return nil
	}
	var out []Outcome
	for _, c := range g.commands {
		res, err := c.Execute(input, env)
		if res == nil && err == nil {
			continue
		}
		out = append(out, Outcome{Command: c.name, Result: res, Err: err})
	}
	return out
}

// ProcessFirst returns the result of the first member, in registration
// order, that both grammar-matches and executes successfully; once a
// success is found no further members are evaluated. Grammar-matching
// members that fail are buffered in case a later member succeeds; if
// the whole list is exhausted without a success the buffered messages
// are joined by newlines into one failure.
func (g *Group) ProcessFirst(input string, env any) (*Result, error) {
	if !g.prefixMatches(input) {
		return nil, Errorf(DetailParse, "no command matched %q", input)
	}

	var buffered []string
	for _, c := range g.commands {
		res, err := c.Execute(input, env)
		if err != nil {
			buffered = append(buffered, err.Error())
			continue
		}
		if res == nil {
			continue
		}
		return res, nil
	}

	if len(buffered) == 0 {
		return nil, Errorf(DetailParse, "no command matched %q", input)
	}
	return nil, Errorf(DetailExecute, "%s", strings.Join(buffered, "\n"))
}

// ProcessOne is the strict variant: exactly one member's grammar may
// match the line. Zero matches aggregate to a parse failure; more than
// one, irrespective of each candidate's further outcome, is an
// ambiguity failure naming every matching command without executing
// any of them. The single match is run to completion and its outcome
// returned directly.
func (g *Group) ProcessOne(input string, env any) (*Result, error) {
	if !g.prefixMatches(input) {
		return nil, Errorf(DetailParse, "no command matched %q", input)
	}

	var (
		matched []string
		inv     *Invocation
		invErr  error
	)
	for _, c := range g.commands {
		i, err := c.Preprocess(input, env)
		if i == nil && err == nil {
			continue
		}
		matched = append(matched, c.name)
		if len(matched) == 1 {
			inv, invErr = i, err
		}
	}

	switch len(matched) {
	case 0:
		return nil, Errorf(DetailParse, "no command matched %q", input)
	case 1:
		if invErr != nil {
			return nil, invErr
		}
		return inv.Execute()
	default:
		return nil, Errorf(DetailValidate, "ambiguous command: input matches %s", strings.Join(matched, ", "))
	}
}
