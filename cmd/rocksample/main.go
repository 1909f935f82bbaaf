// Command rocksample evaluates the planner on RockSample(n,k).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pomcpgo/internal/cli"
)

func main() {
	var (
		flags    cli.Flags
		size     int
		rocks    int
		discount float64
	)
	cmd := &cobra.Command{
		Use:   "rocksample",
		Short: "Evaluate POMCP on RockSample",
		Long: `Plays episodes of RockSample(size, rocks): a rover samples good rocks,
checks rocks from afar with a noisy sensor, and leaves through the east edge.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := flags.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			conf, err := flags.Config(cmd, "rocksample")
			if err != nil {
				return err
			}
			m, prior, err := cli.RockSample(size, rocks, conf.Seed, discount)
			if err != nil {
				return err
			}
			return flags.Evaluate(cmd, m, prior, conf, logger)
		},
	}
	flags.Register(cmd)
	cmd.Flags().IntVar(&size, "size", 7, "grid side")
	cmd.Flags().IntVar(&rocks, "rocks", 8, "number of rocks")
	cmd.Flags().Float64Var(&discount, "discount", 0.95, "discount factor")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
