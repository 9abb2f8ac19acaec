package command

// Result is the outcome of a successful execution. The value is not
// yet rendered: rendering happens later through a caller-supplied
// Renderer, so the same result can be re-rendered for different output
// surfaces without re-running business logic.
type Result struct {
	// Command names the command that produced the result.
	Command string
	// Value is the raw value returned by the execution function.
	Value any
	// Format is the resolved rendering format for the value.
	Format string
}

// Invocation is a preprocessed command: validated parameters and the
// request environment bound to the command's execution and formatting
// logic. An Invocation is created fresh per successful preprocess of
// one input line and is never shared across concurrent callers; its
// execution counter is the only mutable state in the pipeline.
type Invocation struct {
	spec   *spec
	params any
	env    any
	count  int
}

// Name returns the owning command's name.
func (inv *Invocation) Name() string {
	return inv.spec.name
}

// Params returns the validated parameters bound at preprocess time.
func (inv *Invocation) Params() any {
	return inv.params
}

// Repeatable reports whether the invocation may execute more than
// once.
func (inv *Invocation) Repeatable() bool {
	return inv.spec.repeatable
}

// Count returns how many times Execute has been entered.
func (inv *Invocation) Count() int {
	return inv.count
}

// Execute runs the bound business action once and resolves the output
// format for its value.
//
// A second Execute on a non-repeatable invocation is a hard execute
// failure, never silently ignored. A failing format resolver is tagged
// format rather than execute: the business effect, if any, has already
// committed and only rendering is at issue.
func (inv *Invocation) Execute() (*Result, error) {
	if inv.count > 0 && !inv.spec.repeatable {
		return nil, Errorf(DetailExecute, "command %q cannot be repeated", inv.spec.name)
	}
	inv.count++

	value, err := inv.spec.run(inv.params, inv.env)
	if err != nil {
		return nil, Tag(DetailExecute, err)
	}

	format := inv.spec.format
	if inv.spec.formatFunc != nil {
		format, err = inv.spec.formatFunc(inv.params, inv.env, value)
		if err != nil {
			return nil, Tag(DetailFormat, err)
		}
	}

	return &Result{Command: inv.spec.name, Value: value, Format: format}, nil
}
