package raid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/command"
	"github.com/parley-ai/parley/internal/pattern"
	"github.com/parley-ai/parley/internal/render"
)

// Env is the request environment every command evaluation receives.
type Env struct {
	Gyms  *Directory
	Raids *Store
}

// Fields is the field table shared by all raid grammars.
var Fields = map[string]pattern.Field{
	"tier":      {Fragment: `[1-7]`},
	"tierRange": {Fragment: `[1-7](?:\s*-\s*[1-7])?`},
	"gym":       {Fragment: `\S+(?:\s+\S+)*?`},
	"timer":     {Fragment: `\d{1,3}`},
	"places":    {Fragment: `.+?`, Optional: true},
}

// Commands returns the raid command set in dispatch order.
func Commands() []*command.Command {
	return []*command.Command{
		addCommand(),
		removeCommand(),
		allRaidsCommand(),
		byTierCommand(),
	}
}

// NewGroup wires the command set into a group behind the given prefix.
func NewGroup(prefix string) (*command.Group, error) {
	return command.NewGroup(prefix, Commands()...)
}

func envOf(v any) (*Env, error) {
	e, ok := v.(*Env)
	if !ok || e == nil || e.Gyms == nil || e.Raids == nil {
		return nil, fmt.Errorf("raid: invalid environment %T", v)
	}
	return e, nil
}

// formatters is the default renderer per output surface.
func formatters() map[string]command.Renderer {
	return map[string]command.Renderer{
		"text": render.Template(),
		"json": func(format string, value any) (string, error) {
			data, err := json.Marshal(value)
			if err != nil {
				return "", fmt.Errorf("raid: encode result: %w", err)
			}
			return string(data), nil
		},
	}
}

// AddParams is the validated input of the add command.
type AddParams struct {
	Gym     Gym
	Tier    int
	HasTier bool
	Minutes int
}

// AddResult is the add command's result value.
type AddResult struct {
	Gym     string `json:"gym"`
	Tier    int    `json:"tier,omitempty"`
	Minutes int    `json:"minutes"`
}

func addCommand() *command.Command {
	return command.MustNew(command.Config{
		Name: "add",
		Help: command.Help{
			Description: "Report a raid at a gym, with an optional tier and the minutes remaining",
			Examples:    []string{"!add 4 painted lot in 30", "!add painted lot in 45"},
			Footer:      "The gym may be a partial name or an alias.",
		},
		Grammar:          pattern.MustCompile("!add {{tier?}} {{gym}} in {{timer}}", Fields),
		ConverterFactory: addConverter,
		Execute: func(params, env any) (any, error) {
			p := params.(AddParams)
			e, err := envOf(env)
			if err != nil {
				return nil, err
			}
			raid, err := e.Raids.Add(p.Gym, p.Tier, p.Minutes)
			if err != nil {
				return nil, err
			}
			return AddResult{Gym: raid.Gym.Name, Tier: raid.Tier, Minutes: p.Minutes}, nil
		},
		FormatFunc: func(params, env, value any) (string, error) {
			if params.(AddParams).HasTier {
				return "Tier {{.Tier}} raid reported at {{.Gym}}, ends in {{.Minutes}} min", nil
			}
			return "Raid reported at {{.Gym}}, ends in {{.Minutes}} min", nil
		},
		Formatters: formatters(),
	})
}

func addConverter(env any) (command.Converter, error) {
	e, err := envOf(env)
	if err != nil {
		return nil, err
	}
	return func(tokens pattern.Tokens) (any, error) {
		var p AddParams
		if raw, ok := tokens["tier"]; ok {
			p.Tier, _ = strconv.Atoi(raw) // fragment admits single digits only
			p.HasTier = true
		}
		minutes, err := strconv.Atoi(tokens["timer"])
		if err != nil {
			return nil, fmt.Errorf("timer %q is not a number", tokens["timer"])
		}
		if minutes == 0 || minutes > 120 {
			return nil, fmt.Errorf("timer must be between 1 and 120 minutes, got %d", minutes)
		}
		p.Minutes = minutes

		gym, err := e.Gyms.Lookup(tokens["gym"])
		if err != nil {
			return nil, err
		}
		p.Gym = gym
		return p, nil
	}, nil
}

// RemoveParams is the validated input of the remove command.
type RemoveParams struct {
	Gym Gym
}

// RemoveResult is the remove command's result value.
type RemoveResult struct {
	Gym  string `json:"gym"`
	Tier int    `json:"tier,omitempty"`
}

func removeCommand() *command.Command {
	return command.MustNew(command.Config{
		Name: "remove",
		Help: command.Help{
			Description: "Remove the active raid at a gym",
			Examples:    []string{"!remove painted lot"},
		},
		Grammar: pattern.MustCompile("!remove {{gym}}", Fields),
		ConverterFactory: func(env any) (command.Converter, error) {
			e, err := envOf(env)
			if err != nil {
				return nil, err
			}
			return func(tokens pattern.Tokens) (any, error) {
				gym, err := e.Gyms.Lookup(tokens["gym"])
				if err != nil {
					return nil, err
				}
				return RemoveParams{Gym: gym}, nil
			}, nil
		},
		Execute: func(params, env any) (any, error) {
			e, err := envOf(env)
			if err != nil {
				return nil, err
			}
			raid, err := e.Raids.Remove(params.(RemoveParams).Gym)
			if err != nil {
				return nil, err
			}
			return RemoveResult{Gym: raid.Gym.Name, Tier: raid.Tier}, nil
		},
		Format:     "Raid at {{.Gym}} removed",
		Formatters: formatters(),
	})
}

// ListParams is the validated input of the raid listing commands.
type ListParams struct {
	MinTier int
	MaxTier int
	Places  []string
}

// RaidView is one listed raid.
type RaidView struct {
	Gym     string `json:"gym"`
	Tier    int    `json:"tier,omitempty"`
	Minutes int    `json:"minutes"`
}

// ListResult is the listing commands' result value.
type ListResult struct {
	Raids []RaidView `json:"raids"`
}

const listFormat = "Active raids:\n" +
	"{{range .Raids}}  {{if .Tier}}T{{.Tier}} {{end}}{{.Gym}}, ends in {{.Minutes}} min\n{{end}}"

func listFormatFunc(params, env, value any) (string, error) {
	if len(value.(ListResult).Raids) == 0 {
		return "No active raids", nil
	}
	return listFormat, nil
}

func executeList(params, env any) (any, error) {
	p := params.(ListParams)
	e, err := envOf(env)
	if err != nil {
		return nil, err
	}

	active := e.Raids.Active(Filter{MinTier: p.MinTier, MaxTier: p.MaxTier, Places: p.Places})
	result := ListResult{Raids: make([]RaidView, 0, len(active))}
	for _, r := range active {
		result.Raids = append(result.Raids, RaidView{
			Gym:     r.Gym.Name,
			Tier:    r.Tier,
			Minutes: int(time.Until(r.Ends).Round(time.Minute).Minutes()),
		})
	}
	return result, nil
}

// parsePlaces splits an optional place filter into glob patterns.
func parsePlaces(raw string) []string {
	var places []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" {
			places = append(places, part)
		}
	}
	return places
}

func allRaidsCommand() *command.Command {
	return command.MustNew(command.Config{
		Name: "allRaids",
		Help: command.Help{
			Description: "List all active raids, optionally filtered by place",
			Examples:    []string{"!raids all", "!raids all downtown"},
		},
		Grammar: pattern.MustCompile("!raids all {{places?}}", Fields),
		Converter: func(tokens pattern.Tokens) (any, error) {
			return ListParams{Places: parsePlaces(tokens["places"])}, nil
		},
		Repeatable: true,
		Execute:    executeList,
		FormatFunc: listFormatFunc,
		Formatters: formatters(),
	})
}

func byTierCommand() *command.Command {
	return command.MustNew(command.Config{
		Name: "byTier",
		Help: command.Help{
			Description: "List active raids in a tier or tier range, optionally filtered by place",
			Examples:    []string{"!raids 4", "!raids 3-5 downtown"},
		},
		Grammar: pattern.MustCompile("!raids {{tierRange}} {{places?}}", Fields),
		Converter: func(tokens pattern.Tokens) (any, error) {
			lo, hi, err := parseTierRange(tokens["tierRange"])
			if err != nil {
				return nil, err
			}
			return ListParams{MinTier: lo, MaxTier: hi, Places: parsePlaces(tokens["places"])}, nil
		},
		Repeatable: true,
		Execute:    executeList,
		FormatFunc: listFormatFunc,
		Formatters: formatters(),
	})
}

func parseTierRange(raw string) (lo, hi int, err error) {
	parts := strings.SplitN(raw, "-", 2)
	lo, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("tier %q is not a number", raw)
	}
	hi = lo
	if len(parts) == 2 {
		hi, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("tier %q is not a number", raw)
		}
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("tier range %s is reversed", raw)
	}
	return lo, hi, nil
}
