package command

import (
	"errors"
	"fmt"

	"github.com/parley-ai/parley/internal/pattern"
)

// Help is the static usage text attached to a command.
type Help struct {
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
	Footer      string   `json:"footer,omitempty"`
}

// Renderer turns a resolved format and a result value into output
// text. Renderers are owned entirely outside the pipeline.
type Renderer func(format string, value any) (string, error)

// Config declares a command. Exactly one of Converter and
// ConverterFactory may be set (neither means the raw token map is the
// parameter value), and exactly one of Format and FormatFunc must be
// set.
type Config struct {
	Name             string
	Help             Help
	Grammar          *pattern.Grammar
	Converter        Converter
	ConverterFactory ConverterFactory
	Check            CheckFunc
	Repeatable       bool
	Execute          ExecFunc
	Format           string
	FormatFunc       FormatFunc
	// Formatters maps an output surface name to its default renderer.
	Formatters map[string]Renderer
}

// Command exposes the uniform preprocess/execute/format contract over
// one declared grammar. Commands are immutable after construction.
type Command struct {
	name       string
	help       Help
	pre        *Preprocessor
	formatters map[string]Renderer
}

// New builds a Command from its declaration.
func New(cfg Config) (*Command, error) {
	switch {
	case cfg.Name == "":
		return nil, errors.New("command: name is required")
	case cfg.Grammar == nil:
		return nil, fmt.Errorf("command %q: grammar is required", cfg.Name)
	case cfg.Execute == nil:
		return nil, fmt.Errorf("command %q: execute function is required", cfg.Name)
	case cfg.Converter != nil && cfg.ConverterFactory != nil:
		return nil, fmt.Errorf("command %q: converter and converter factory are mutually exclusive", cfg.Name)
	case cfg.Format != "" && cfg.FormatFunc != nil:
		return nil, fmt.Errorf("command %q: format and format function are mutually exclusive", cfg.Name)
	case cfg.Format == "" && cfg.FormatFunc == nil:
		return nil, fmt.Errorf("command %q: a format or format function is required", cfg.Name)
	}

	formatters := make(map[string]Renderer, len(cfg.Formatters))
	for target, r := range cfg.Formatters {
		formatters[target] = r
	}

	return &Command{
		name: cfg.Name,
		help: cfg.Help,
		pre: &Preprocessor{
			grammar: cfg.Grammar,
			convert: cfg.Converter,
			factory: cfg.ConverterFactory,
			spec: &spec{
				name:       cfg.Name,
				repeatable: cfg.Repeatable,
				check:      cfg.Check,
				run:        cfg.Execute,
				format:     cfg.Format,
				formatFunc: cfg.FormatFunc,
			},
		},
		formatters: formatters,
	}, nil
}

// MustNew is like New but panics on error. Intended for statically
// declared command tables.
func MustNew(cfg Config) *Command {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the command name.
func (c *Command) Name() string {
	return c.name
}

// Help returns the command's static usage text.
func (c *Command) Help() Help {
	return c.help
}

// Preprocess parses and converts one input line. See
// Preprocessor.Preprocess for the no-match and failure contracts.
func (c *Command) Preprocess(input string, env any) (*Invocation, error) {
	return c.pre.Preprocess(input, env)
}

// Execute preprocesses the line and, on success, executes the
// resulting invocation. A preprocess failure is forwarded with its
// stage tag unchanged; a non-matching line is forwarded as (nil, nil).
func (c *Command) Execute(input string, env any) (*Result, error) {
	inv, err := c.pre.Preprocess(input, env)
	if err != nil || inv == nil {
		return nil, err
	}
	return inv.Execute()
}

// Format renders a result through the given renderer. Rendering
// callers only need the message of a failing renderer, so no stage tag
// is attached or forwarded here.
func (c *Command) Format(res *Result, render Renderer) (string, error) {
	if res == nil {
		return "", fmt.Errorf("command %q: nil result", c.name)
	}
	if render == nil {
		return "", fmt.Errorf("command %q: nil renderer", c.name)
	}
	text, err := render(res.Format, res.Value)
	if err != nil {
		var tagged *Error
		if errors.As(err, &tagged) {
			return "", errors.New(tagged.Error())
		}
		return "", err
	}
	return text, nil
}

// DefaultFormatter resolves the default renderer for an output
// surface. A missing formatter is a configuration failure, independent
// of the parse/execute/format taxonomy.
func (c *Command) DefaultFormatter(target string) (Renderer, error) {
	r, ok := c.formatters[target]
	if !ok {
		return nil, fmt.Errorf("command %q: no default formatter for target %q", c.name, target)
	}
	return r, nil
}
