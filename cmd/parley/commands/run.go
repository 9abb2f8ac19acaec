package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/command"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/raid"
)

var firstMatch bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process command lines from stdin",
	Long: `Run reads one command line per stdin line, dispatches it through the
raid command group and prints the rendered result to stdout. Failures
are reported by pipeline stage: a grammar miss is only a hint, a
validation failure asks the user to correct the line, and execution or
rendering failures are logged as such.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if firstMatch {
			cfg.Dispatch = "first"
		}

		env, group, err := buildEnv(cfg)
		if err != nil {
			return err
		}

		bus := event.NewBus()
		defer bus.Close()

		// The printer owns stdout; the loop only publishes.
		bus.Subscribe(event.CommandExecuted, func(e event.Event) {
			fmt.Fprintln(cmd.OutOrStdout(), e.Data.(event.Outcome).Text)
		})
		bus.Subscribe(event.CommandFailed, func(e event.Event) {
			out := e.Data.(event.Outcome)
			fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", out.Message)
		})

		if cfg.Watch {
			watcher, err := raid.NewWatcher(env.Gyms, bus)
			if err != nil {
				return err
			}
			watcher.Start()
			defer watcher.Stop()
		}

		return runLoop(cmd.InOrStdin(), cfg, env, group, bus)
	},
}

func init() {
	runCmd.Flags().BoolVar(&firstMatch, "first", false, "Use first-match dispatch instead of exactly-one-match")
}

// buildEnv loads the gym directory and wires the command group.
func buildEnv(cfg *config.Config) (*raid.Env, *command.Group, error) {
	dir, err := raid.Load(cfg.GymFile)
	if err != nil {
		return nil, nil, err
	}
	group, err := raid.NewGroup(cfg.Prefix)
	if err != nil {
		return nil, nil, err
	}

	logging.Info().
		Int("gyms", dir.Len()).
		Int("commands", len(group.Commands())).
		Str("dispatch", cfg.Dispatch).
		Msg("command group ready")

	return &raid.Env{Gyms: dir, Raids: raid.NewStore()}, group, nil
}

func runLoop(in io.Reader, cfg *config.Config, env *raid.Env, group *command.Group, bus *event.Bus) error {
	log := logging.For("dispatcher")

	dispatch := group.ProcessOne
	if cfg.Dispatch == "first" {
		dispatch = group.ProcessFirst
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id := ulid.Make().String()
		bus.Publish(event.Event{Type: event.LineReceived, Data: event.Line{ID: id, Input: line}})

		res, err := dispatch(line, env)
		if err != nil {
			handleFailure(log, bus, id, err)
			continue
		}

		member, ok := group.Get(res.Command)
		if !ok {
			log.Error().Str("command", res.Command).Msg("result from unregistered command")
			continue
		}
		renderer, err := member.DefaultFormatter(cfg.Target)
		if err != nil {
			return err // misconfigured target, not a per-line failure
		}
		text, err := member.Format(res, renderer)
		if err != nil {
			bus.Publish(event.Event{Type: event.CommandFailed, Data: event.Outcome{
				ID: id, Command: res.Command, Detail: command.DetailFormat.String(), Message: err.Error(),
			}})
			continue
		}

		log.Debug().Str("id", id).Str("command", res.Command).Msg("executed")
		bus.Publish(event.Event{Type: event.CommandExecuted, Data: event.Outcome{
			ID: id, Command: res.Command, Text: text,
		}})
	}
	return scanner.Err()
}

// handleFailure applies the per-stage policy: parse means "not for
// us", validate and execute reach the user, internal is a bug to log
// loudly, format is retryable without re-running the business action.
func handleFailure(log zerolog.Logger, bus *event.Bus, id string, err error) {
	detail := command.DetailOf(err)
	outcome := event.Outcome{ID: id, Detail: detail.String(), Message: err.Error()}

	switch detail {
	case command.DetailParse:
		// Not an error to the end user, just "try a different command".
		log.Debug().Str("id", id).Msg("no grammar matched")
		outcome.Message = "no such command, try !raids all"
	case command.DetailInternal:
		log.Error().Str("id", id).Err(err).Msg("pipeline defect")
	default:
		log.Warn().Str("id", id).Str("detail", detail.String()).Err(err).Msg("command failed")
	}

	bus.Publish(event.Event{Type: event.CommandFailed, Data: outcome})
}
