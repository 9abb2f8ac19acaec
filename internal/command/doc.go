// Package command implements the text-command pipeline for Parley.
//
// One free-form input line flows through four stages: a compiled
// grammar match (package pattern), a typed conversion, a single-use
// execution, and a deferred rendering step. The pipeline's job is not
// only to run commands but to classify precisely where a failure
// occurred, so callers can apply the right policy per stage.
//
// # Failure taxonomy
//
// Every failure carries a Detail tag:
//
//   - internal: a framework defect, never an expected outcome
//   - parse: a grammar mismatch; not an error to the end user
//   - validate: the input matched but its content is wrong
//   - execute: the business action failed on a validated command
//   - format: the action committed but rendering its result failed
//
// A line that simply does not match a grammar is not a failure at all:
// Preprocess and Execute return (nil, nil), which lets a Group tell
// "wrong command" apart from "broken command" when aggregating.
//
// # Lifecycle
//
// Commands and Groups are built once at definition time and never
// mutated afterwards, so they are safe for concurrent use without
// locking. Each successful Preprocess yields a fresh Invocation owning
// the only mutable state in the pipeline, its execution counter; an
// Invocation is private to the call that created it and executes at
// most once unless the command is declared repeatable.
//
// # Groups
//
// A Group evaluates one line against many commands in registration
// order, with four strategies: ValidateAll (preprocess everything),
// ProcessAll (execute everything that matches), ProcessFirst (first
// successful member wins, earlier failures buffered), and ProcessOne
// (exactly one grammar match allowed, ambiguity is a failure naming
// every candidate).
//
// # Example
//
//	grammar := pattern.MustCompile("!remove {{gym}}", fields)
//	cmd := command.MustNew(command.Config{
//		Name:    "remove",
//		Grammar: grammar,
//		Execute: removeRaid,
//		Format:  "Raid at {{.Gym}} removed",
//	})
//	res, err := cmd.Execute("!remove painted lot", env)
//
// Rendering is a separate step: a successful Result carries the raw
// value plus a resolved format, and Command.Format applies a
// caller-supplied Renderer, so the same result can be rendered for
// different output surfaces without re-running business logic.
package command
