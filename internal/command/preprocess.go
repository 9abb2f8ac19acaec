package command

import (
	"github.com/parley-ai/parley/internal/pattern"
)

// Converter turns captured grammar tokens into validated typed
// parameters. Conversion owns all type coercion, cross-field
// consistency and lookup resolution; any I/O it performs is opaque to
// the pipeline.
type Converter func(tokens pattern.Tokens) (any, error)

// ConverterFactory builds a Converter from the request environment,
// for conversions that need live collaborators such as a lookup
// service.
type ConverterFactory func(env any) (Converter, error)

// ExecFunc runs the business action bound to a command.
type ExecFunc func(params, env any) (any, error)

// FormatFunc resolves the output format after a successful execution.
// It may inspect the result value, for example to pick a template with
// or without an optional field actually present.
type FormatFunc func(params, env, value any) (string, error)

// CheckFunc verifies validated parameters against the environment
// before an Invocation is built, e.g. that a declared tier matches the
// resolved boss's tier.
type CheckFunc func(params, env any) error

// Preprocessor runs the parse-then-convert stage for one command. A
// preprocessor carries either a fixed converter or a context-dependent
// factory; both variants dispatch through Preprocess.
type Preprocessor struct {
	grammar *pattern.Grammar
	convert Converter
	factory ConverterFactory
	spec    *spec
}

// spec is the immutable execution shape shared by every Invocation a
// preprocessor produces.
type spec struct {
	name       string
	repeatable bool
	check      CheckFunc
	run        ExecFunc
	format     string
	formatFunc FormatFunc
}

// Preprocess parses the input line and converts the captures into a
// ready-to-run Invocation.
//
// A line the grammar does not match yields (nil, nil): it is not a
// failure, only "this input belongs to some other command". Failures
// are tagged by stage: a parser fault or a faulting converter factory
// is internal, a conversion or consistency failure is validate.
func (p *Preprocessor) Preprocess(input string, env any) (*Invocation, error) {
	tokens, err := p.grammar.Parse(input)
	if err != nil {
		return nil, Tag(DetailInternal, err)
	}
	if tokens == nil {
		return nil, nil
	}

	convert := p.convert
	if p.factory != nil {
		convert, err = p.factory(env)
		if err != nil {
			return nil, Tag(DetailInternal, err)
		}
		if convert == nil {
			return nil, Errorf(DetailInternal, "command %q: converter factory returned no converter", p.spec.name)
		}
	}

	params := any(tokens)
	if convert != nil {
		params, err = convert(tokens)
		if err != nil {
			return nil, Tag(DetailValidate, err)
		}
	}

	if p.spec.check != nil {
		if err := p.spec.check(params, env); err != nil {
			return nil, Tag(DetailValidate, err)
		}
	}

	return &Invocation{spec: p.spec, params: params, env: env}, nil
}

// Grammar returns the compiled grammar the preprocessor matches
// against.
func (p *Preprocessor) Grammar() *pattern.Grammar {
	return p.grammar
}
