package command

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/pattern"
)

var testFields = map[string]pattern.Field{
	"tier":  {Fragment: `[1-7]`},
	"gym":   {Fragment: `\S+(?:\s+\S+)*?`},
	"timer": {Fragment: `\d{1,3}`},
}

type addParams struct {
	Gym     string
	Tier    int
	HasTier bool
	Minutes int
}

func addConverter(tokens pattern.Tokens) (any, error) {
	p := addParams{Gym: tokens["gym"]}
	if raw, ok := tokens["tier"]; ok {
		tier, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("bad tier %q: %w", raw, err)
		}
		p.Tier = tier
		p.HasTier = true
	}
	minutes, err := strconv.Atoi(tokens["timer"])
	if err != nil {
		return nil, fmt.Errorf("bad timer %q: %w", tokens["timer"], err)
	}
	if minutes <= 0 || minutes > 120 {
		return nil, fmt.Errorf("timer %d out of range", minutes)
	}
	p.Minutes = minutes
	return p, nil
}

func addCommand(t *testing.T, mutate func(*Config)) *Command {
	t.Helper()
	cfg := Config{
		Name: "add",
		Help: Help{
			Description: "Report a raid at a gym",
			Examples:    []string{"!add 4 painted lot in 30"},
		},
		Grammar:   pattern.MustCompile("!add {{tier?}} {{gym}} in {{timer}}", testFields),
		Converter: addConverter,
		Execute: func(params, env any) (any, error) {
			return params.(addParams).Gym, nil
		},
		Format: "Raid reported at {{.}}",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	cmd, err := New(cfg)
	require.NoError(t, err)
	return cmd
}

func TestNewValidation(t *testing.T) {
	grammar := pattern.MustCompile("!x {{gym}}", testFields)
	run := func(params, env any) (any, error) { return nil, nil }

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing name", Config{Grammar: grammar, Execute: run, Format: "x"}},
		{"missing grammar", Config{Name: "x", Execute: run, Format: "x"}},
		{"missing execute", Config{Name: "x", Grammar: grammar, Format: "x"}},
		{"both converters", Config{
			Name: "x", Grammar: grammar, Execute: run, Format: "x",
			Converter:        func(pattern.Tokens) (any, error) { return nil, nil },
			ConverterFactory: func(any) (Converter, error) { return nil, nil },
		}},
		{"both formats", Config{
			Name: "x", Grammar: grammar, Execute: run, Format: "x",
			FormatFunc: func(params, env, value any) (string, error) { return "", nil },
		}},
		{"no format", Config{Name: "x", Grammar: grammar, Execute: run}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestPreprocessNoMatch(t *testing.T) {
	cmd := addCommand(t, nil)

	inv, err := cmd.Preprocess("!remove painted lot", nil)
	assert.NoError(t, err)
	assert.Nil(t, inv)
}

func TestPreprocessConvertsTokens(t *testing.T) {
	cmd := addCommand(t, nil)

	inv, err := cmd.Preprocess("!add 4 painted lot in 30", nil)
	require.NoError(t, err)
	require.NotNil(t, inv)

	params := inv.Params().(addParams)
	assert.Equal(t, addParams{Gym: "painted lot", Tier: 4, HasTier: true, Minutes: 30}, params)
	assert.Equal(t, 0, inv.Count())
}

func TestPreprocessConversionFailureIsValidate(t *testing.T) {
	cmd := addCommand(t, nil)

	_, err := cmd.Preprocess("!add painted lot in 999", nil)
	require.Error(t, err)
	assert.Equal(t, DetailValidate, DetailOf(err))
	assert.Contains(t, err.Error(), "out of range")
}

func TestPreprocessFactoryFaultIsInternal(t *testing.T) {
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Converter = nil
		cfg.ConverterFactory = func(env any) (Converter, error) {
			return nil, errors.New("lookup service unavailable")
		}
	})

	_, err := cmd.Preprocess("!add painted lot in 30", nil)
	require.Error(t, err)
	assert.Equal(t, DetailInternal, DetailOf(err))
}

func TestPreprocessNilFactoryResultIsInternal(t *testing.T) {
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Converter = nil
		cfg.ConverterFactory = func(env any) (Converter, error) { return nil, nil }
	})

	_, err := cmd.Preprocess("!add painted lot in 30", nil)
	require.Error(t, err)
	assert.Equal(t, DetailInternal, DetailOf(err))
}

func TestPreprocessFactoryReceivesEnv(t *testing.T) {
	type env struct{ suffix string }
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Converter = nil
		cfg.ConverterFactory = func(e any) (Converter, error) {
			suffix := e.(*env).suffix
			return func(tokens pattern.Tokens) (any, error) {
				return tokens["gym"] + suffix, nil
			}, nil
		}
		cfg.Execute = func(params, _ any) (any, error) { return params, nil }
	})

	res, err := cmd.Execute("!add painted lot in 30", &env{suffix: "!"})
	require.NoError(t, err)
	assert.Equal(t, "painted lot!", res.Value)
}

func TestPreprocessCheckFailureIsValidate(t *testing.T) {
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Check = func(params, env any) error {
			return errors.New("declared tier does not match resolved boss")
		}
	})

	_, err := cmd.Preprocess("!add 4 painted lot in 30", nil)
	require.Error(t, err)
	assert.Equal(t, DetailValidate, DetailOf(err))
}

func TestPreprocessWithoutConverterYieldsTokens(t *testing.T) {
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Converter = nil
		cfg.Execute = func(params, _ any) (any, error) { return params, nil }
	})

	res, err := cmd.Execute("!add painted lot in 30", nil)
	require.NoError(t, err)
	assert.Equal(t, pattern.Tokens{"gym": "painted lot", "timer": "30"}, res.Value)
}

func TestExecuteProducesResult(t *testing.T) {
	cmd := addCommand(t, nil)

	res, err := cmd.Execute("!add 4 painted lot in 30", nil)
	require.NoError(t, err)
	assert.Equal(t, "add", res.Command)
	assert.Equal(t, "painted lot", res.Value)
	assert.Equal(t, "Raid reported at {{.}}", res.Format)
}

func TestExecuteNonRepeatable(t *testing.T) {
	cmd := addCommand(t, nil)

	inv, err := cmd.Preprocess("!add 4 painted lot in 30", nil)
	require.NoError(t, err)

	_, err = inv.Execute()
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Count())

	_, err = inv.Execute()
	require.Error(t, err)
	assert.Equal(t, DetailExecute, DetailOf(err))
	assert.Regexp(t, `(?i)cannot be repeated`, err.Error())
	assert.Equal(t, 1, inv.Count())
}

func TestExecuteRepeatable(t *testing.T) {
	calls := 0
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Repeatable = true
		cfg.Execute = func(params, _ any) (any, error) {
			calls++
			return params.(addParams).Gym, nil
		}
	})

	inv, err := cmd.Preprocess("!add 4 painted lot in 30", nil)
	require.NoError(t, err)

	first, err := inv.Execute()
	require.NoError(t, err)
	second, err := inv.Execute()
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, 2, inv.Count())
	assert.Equal(t, 2, calls)
}

func TestExecuteBusinessFailure(t *testing.T) {
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Execute = func(params, env any) (any, error) {
			return nil, errors.New("gym already has an active raid")
		}
	})

	_, err := cmd.Execute("!add 4 painted lot in 30", nil)
	require.Error(t, err)
	assert.Equal(t, DetailExecute, DetailOf(err))
	assert.Contains(t, err.Error(), "active raid")
}

func TestExecuteFailureConsumesSingleUse(t *testing.T) {
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Execute = func(params, env any) (any, error) {
			return nil, errors.New("boom")
		}
	})

	inv, err := cmd.Preprocess("!add 4 painted lot in 30", nil)
	require.NoError(t, err)

	_, err = inv.Execute()
	require.Error(t, err)

	_, err = inv.Execute()
	require.Error(t, err)
	assert.Regexp(t, `(?i)cannot be repeated`, err.Error())
}

func TestFormatFuncResolvesPerResult(t *testing.T) {
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Format = ""
		cfg.FormatFunc = func(params, env, value any) (string, error) {
			if params.(addParams).HasTier {
				return "T{{.Tier}} raid at {{.Gym}}", nil
			}
			return "Raid at {{.Gym}}", nil
		}
		cfg.Execute = func(params, env any) (any, error) { return params, nil }
	})

	res, err := cmd.Execute("!add 4 painted lot in 30", nil)
	require.NoError(t, err)
	assert.Equal(t, "T{{.Tier}} raid at {{.Gym}}", res.Format)

	res, err = cmd.Execute("!add painted lot in 30", nil)
	require.NoError(t, err)
	assert.Equal(t, "Raid at {{.Gym}}", res.Format)
}

func TestFormatResolutionFailureIsFormatDetail(t *testing.T) {
	executed := false
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Format = ""
		cfg.FormatFunc = func(params, env, value any) (string, error) {
			return "", errors.New("no template for result")
		}
		cfg.Execute = func(params, env any) (any, error) {
			executed = true
			return nil, nil
		}
	})

	_, err := cmd.Execute("!add 4 painted lot in 30", nil)
	require.Error(t, err)
	assert.Equal(t, DetailFormat, DetailOf(err))
	assert.True(t, executed, "business effect committed before format resolution")
}

func TestCommandFormatDropsDetail(t *testing.T) {
	cmd := addCommand(t, nil)
	res := &Result{Command: "add", Value: "painted lot", Format: "at {{.}}"}

	text, err := cmd.Format(res, func(format string, value any) (string, error) {
		return "rendered: " + format, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "rendered: at {{.}}", text)

	_, err = cmd.Format(res, func(format string, value any) (string, error) {
		return "", Errorf(DetailFormat, "surface rejected template")
	})
	require.Error(t, err)
	var tagged *Error
	assert.False(t, errors.As(err, &tagged), "stage detail must be dropped")
	assert.Contains(t, err.Error(), "surface rejected template")
}

func TestDefaultFormatter(t *testing.T) {
	cmd := addCommand(t, func(cfg *Config) {
		cfg.Formatters = map[string]Renderer{
			"text": func(format string, value any) (string, error) { return format, nil },
		}
	})

	r, err := cmd.DefaultFormatter("text")
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = cmd.DefaultFormatter("markdown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default formatter")
}

func TestHelpExamplesPreprocess(t *testing.T) {
	cmd := addCommand(t, nil)
	for _, example := range cmd.Help().Examples {
		inv, err := cmd.Preprocess(example, nil)
		require.NoError(t, err, example)
		require.NotNil(t, inv, "help example must match the command's own grammar: %s", example)
	}
}

func TestDetailTagging(t *testing.T) {
	plain := errors.New("plain")
	assert.Equal(t, DetailInternal, DetailOf(plain))

	tagged := Tag(DetailValidate, plain)
	assert.Equal(t, DetailValidate, DetailOf(tagged))

	// Already-tagged errors are forwarded unchanged.
	again := Tag(DetailExecute, tagged)
	assert.Equal(t, DetailValidate, DetailOf(again))

	assert.Equal(t, "validate", DetailValidate.String())
	assert.Equal(t, "internal", DetailInternal.String())
}

func TestErrorMessageComposition(t *testing.T) {
	cause := errors.New("cause")
	assert.Equal(t, "msg: cause", (&Error{Message: "msg", Cause: cause}).Error())
	assert.Equal(t, "msg", (&Error{Message: "msg"}).Error())
	assert.Equal(t, "cause", (&Error{Cause: cause}).Error())
	assert.True(t, errors.Is(&Error{Cause: cause}, cause))
}
