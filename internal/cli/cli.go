// Package cli holds the flags and plumbing shared by the commands under cmd/.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pomcpgo"
	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/model"
)

// Flags are the options every evaluation command accepts. Planner and bench
// overrides only apply when set on the command line.
type Flags struct {
	ConfigPath string
	LogLevel   string
	LogJSON    bool
	Out        string

	Episodes    int
	Steps       int
	Parallel    int
	Iterations  int
	Workers     int
	Exploration float64
	Seed        uint64
}

// Register adds the flags to cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "YAML config file; defaults are used when empty")
	fs.StringVar(&f.LogLevel, "log-level", "info", "debug, info, warn or error")
	fs.BoolVar(&f.LogJSON, "log-json", false, "log as JSON")
	fs.StringVarP(&f.Out, "out", "o", "", "write the summary as YAML to this file")

	fs.IntVar(&f.Episodes, "episodes", 0, "episodes to play")
	fs.IntVar(&f.Steps, "steps", 0, "decisions per episode")
	fs.IntVar(&f.Parallel, "parallel", 0, "episodes played at once")
	fs.IntVar(&f.Iterations, "iterations", 0, "simulations per decision")
	fs.IntVar(&f.Workers, "workers", 0, "simulation goroutines per decision")
	fs.Float64Var(&f.Exploration, "exploration", 0, "UCB exploration constant")
	fs.Uint64Var(&f.Seed, "seed", 0, "random seed")
}

// Logger builds the logger the flags ask for.
func (f *Flags) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return nil, errors.Wrapf(err, "bad log level %q", f.LogLevel)
	}
	opts := &slog.HandlerOptions{Level: level}
	if f.LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Config loads the config file, if any, and applies the overrides set on cmd.
func (f *Flags) Config(cmd *cobra.Command, name string) (pomcp.Config, error) {
	conf := pomcp.DefaultConfig()
	conf.Name = name
	if f.ConfigPath != "" {
		var err error
		if conf, err = pomcp.LoadConfigWithDefaults(f.ConfigPath, conf); err != nil {
			return conf, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("episodes") {
		conf.Episodes = f.Episodes
	}
	if changed("steps") {
		conf.Steps = f.Steps
	}
	if changed("parallel") {
		conf.Parallel = f.Parallel
	}
	if changed("iterations") {
		conf.Planner.Iterations = f.Iterations
	}
	if changed("workers") {
		conf.Planner.Workers = f.Workers
	}
	if changed("exploration") {
		conf.Planner.Exploration = f.Exploration
	}
	if changed("seed") {
		conf.Seed = f.Seed
		conf.Planner.Seed = f.Seed
	}
	return conf, conf.Validate()
}

// Evaluate runs a bench on m and prints the summary to cmd's output. Episode
// failures are reported but do not fail the command unless every episode
// failed.
func (f *Flags) Evaluate(cmd *cobra.Command, m model.Generative, prior belief.Sampler, conf pomcp.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	b, err := pomcp.New(m, prior, conf, pomcp.WithLogger(logger))
	if err != nil {
		return err
	}
	s, err := b.Evaluate(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || s.Failures == s.Episodes {
			return err
		}
		logger.Warn("some episodes failed", slog.Int("failures", s.Failures), slog.String("error", err.Error()))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d episodes, %d failed\n", s.Name, s.Episodes, s.Failures)
	fmt.Fprintf(out, "mean discounted return %.3f (std dev %.3f)\n", s.Mean, s.StdDev)
	if f.Out != "" {
		if err := s.Save(f.Out); err != nil {
			return err
		}
		fmt.Fprintf(out, "summary written to %s\n", f.Out)
	}
	return nil
}

// ParseModel names one of the built in models.
func ParseModel(name string) (string, error) {
	switch n := strings.ToLower(name); n {
	case "tiger", "rocksample":
		return n, nil
	}
	return "", errors.Errorf("unknown model %q, want tiger or rocksample", name)
}
