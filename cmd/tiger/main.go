// Command tiger evaluates the planner on the tiger problem.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pomcpgo/internal/cli"
)

func main() {
	var flags cli.Flags
	cmd := &cobra.Command{
		Use:   "tiger",
		Short: "Evaluate POMCP on the tiger problem",
		Long: `Plays episodes of the tiger problem: listen for the tiger, then open the
other door. Each decision is planned with POMCP from the current particle belief.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := flags.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			conf, err := flags.Config(cmd, "tiger")
			if err != nil {
				return err
			}
			m, prior := cli.Tiger()
			return flags.Evaluate(cmd, m, prior, conf, logger)
		},
	}
	flags.Register(cmd)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
