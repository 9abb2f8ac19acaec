package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/raid"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the registered command set",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, c := range raid.Commands() {
			help := c.Help()
			fmt.Fprintf(out, "%s\n    %s\n", c.Name(), help.Description)
			for _, example := range help.Examples {
				fmt.Fprintf(out, "    example: %s\n", example)
			}
			if help.Footer != "" {
				fmt.Fprintf(out, "    %s\n", help.Footer)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}
