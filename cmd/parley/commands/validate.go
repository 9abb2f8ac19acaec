package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <line>",
	Short: "Dry-run one command line without executing anything",
	Long: `Validate preprocesses the given line against every registered command
and reports, per grammar-matching member, whether its parameters would
validate. No business action runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		env, group, err := buildEnv(cfg)
		if err != nil {
			return err
		}

		line := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		validations := group.ValidateAll(line, env)
		if len(validations) == 0 {
			fmt.Fprintf(out, "no command matches %q\n", line)
			return nil
		}
		for _, v := range validations {
			if v.Err != nil {
				fmt.Fprintf(out, "%s: invalid: %s\n", v.Command, v.Err)
				continue
			}
			fmt.Fprintf(out, "%s: ok (params %+v)\n", v.Command, v.Invocation.Params())
		}
		return nil
	},
}
