package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomcpgo"
	"github.com/pomcpgo/model"
)

func command(f *Flags) *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	f.Register(cmd)
	return cmd
}

func TestConfigOverridesOnlyChangedFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: file\nepisodes: 7\nsteps: 4\n"), 0644))

	var f Flags
	cmd := command(&f)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--iterations", "12", "--seed", "9"}))

	conf, err := f.Config(cmd, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "file", conf.Name)
	assert.Equal(t, 7, conf.Episodes)
	assert.Equal(t, 4, conf.Steps)
	assert.Equal(t, 12, conf.Planner.Iterations)
	assert.Equal(t, uint64(9), conf.Seed)
	assert.Equal(t, uint64(9), conf.Planner.Seed)
	assert.Equal(t, 1, conf.Parallel)
}

func TestConfigRejectsBadOverride(t *testing.T) {
	var f Flags
	cmd := command(&f)
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "0"}))
	_, err := f.Config(cmd, "tiger")
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	f := Flags{LogLevel: "warn", LogJSON: true}
	l, err := f.Logger(&buf)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	f.LogLevel = "loud"
	_, err = f.Logger(&buf)
	assert.Error(t, err)
}

func TestRockLayout(t *testing.T) {
	l, err := RockLayout(7, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, layout78, l)

	l, err = RockLayout(5, 5, 3)
	require.NoError(t, err)
	seen := map[model.Position]bool{}
	for _, p := range l {
		assert.False(t, seen[p], "rock placed twice at %v", p)
		seen[p] = true
		assert.True(t, p.X >= 0 && p.X < 5 && p.Y >= 0 && p.Y < 5)
	}

	_, err = RockLayout(2, 5, 0)
	assert.Error(t, err)
}

func TestRockSampleRejectsBadDiscount(t *testing.T) {
	for _, d := range []float64{0, -0.5, 2} {
		_, _, err := RockSample(5, 3, 1, d)
		assert.Error(t, err, "discount %v", d)
	}
	m, prior, err := RockSample(5, 3, 1, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 0.95, m.Discount())
	assert.NotNil(t, prior)
}

func TestEvaluateTiger(t *testing.T) {
	var f Flags
	summary := filepath.Join(t.TempDir(), "summary.yaml")
	cmd := command(&f)
	require.NoError(t, cmd.ParseFlags([]string{"--episodes", "2", "--steps", "2", "--iterations", "50", "--out", summary}))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(t.Context())

	conf, err := f.Config(cmd, "tiger")
	require.NoError(t, err)
	logger, err := f.Logger(&bytes.Buffer{})
	require.NoError(t, err)
	m, prior := Tiger()
	require.NoError(t, f.Evaluate(cmd, m, prior, conf, logger))
	assert.Contains(t, out.String(), "tiger: 2 episodes, 0 failed")
	assert.Contains(t, out.String(), "summary written to "+summary)

	s, err := pomcp.LoadSummary(summary)
	require.NoError(t, err)
	assert.Equal(t, "tiger", s.Name)
	assert.Equal(t, 2, s.Episodes)
	assert.Len(t, s.Returns, 2)
}

func TestConfigKeepsCommandNameWhenFileHasNone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("episodes: 3\n"), 0644))

	var f Flags
	cmd := command(&f)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path}))
	conf, err := f.Config(cmd, "rocksample")
	require.NoError(t, err)
	assert.Equal(t, "rocksample", conf.Name)
	assert.Equal(t, 3, conf.Episodes)
}
