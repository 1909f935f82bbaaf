// Command dumptree plans one decision and writes the search tree as Graphviz DOT.
package main

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/internal/cli"
	"github.com/pomcpgo/mcts"
	"github.com/pomcpgo/model"
)

func main() {
	var (
		flags cli.Flags
		name  string
		depth int
		size  int
		rocks int
	)
	cmd := &cobra.Command{
		Use:          "dumptree",
		Short:        "Write the search tree of one decision as DOT",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := flags.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if name, err = cli.ParseModel(name); err != nil {
				return err
			}
			conf, err := flags.Config(cmd, name)
			if err != nil {
				return err
			}

			var (
				m     model.Generative
				prior belief.Sampler
			)
			switch name {
			case "tiger":
				m, prior = cli.Tiger()
			case "rocksample":
				if m, prior, err = cli.RockSample(size, rocks, conf.Seed, 0.95); err != nil {
					return err
				}
			}

			p, err := mcts.New(m, conf.Planner, mcts.WithLogger(logger))
			if err != nil {
				return err
			}
			a, err := p.SampleAction(cmd.Context(), prior, conf.Steps)
			if err != nil {
				return err
			}
			logger.Info("planned", slog.Int("action", int(a)), slog.Int("nodes", p.Nodes()), slog.Int("iterations", p.Iterations()))

			w := cmd.OutOrStdout()
			if flags.Out != "" {
				f, err := os.Create(flags.Out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return errors.Wrap(p.WriteDot(w, depth), "writing tree")
		},
	}
	flags.Register(cmd)
	cmd.Flags().StringVarP(&name, "model", "m", "tiger", "tiger or rocksample")
	cmd.Flags().IntVar(&depth, "depth", 2, "observation levels to draw below the root")
	cmd.Flags().IntVar(&size, "size", 7, "RockSample grid side")
	cmd.Flags().IntVar(&rocks, "rocks", 8, "RockSample rocks")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
