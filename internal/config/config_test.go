package config

import (
	"os"
	"path/filepath"
	"testing"

	"ttindex/internal/util"

	"github.com/stretchr/testify/require"
)

func TestLoadBacktestConfig(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backtest.yaml")
		contents := `
nProjects: 5
maxWeight: 0.3
endDate: "2022-06-30"
rebalancingFrequency: "14"
projectsToInclude:
  - Aave
  - Compound
solver:
  iterations: 20
`
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

		cfg, err := LoadBacktestConfig(path)
		require.NoError(t, err)
		require.Equal(t, 5, cfg.NumProjects)
		require.Equal(t, 0.3, cfg.MaxWeight)
		require.Equal(t, 0.05, cfg.MaxChange)
		require.Equal(t, "14", cfg.RebalancingFrequency)
		require.Equal(t, []string{"Aave", "Compound"}, cfg.ProjectsToInclude)
		require.Equal(t, 20, cfg.Solver.Iterations)
		require.Equal(t, int64(123), cfg.Solver.Seed)

		start, end, err := cfg.Dates()
		require.NoError(t, err)
		require.Equal(t, util.NewDate(2021, 1, 1), start)
		require.Equal(t, util.NewDate(2022, 6, 30), *end)
	})

	t.Run("no file gives defaults", func(t *testing.T) {
		cfg, err := LoadBacktestConfig("")
		require.NoError(t, err)
		require.Equal(t, DefaultBacktestConfig(), *cfg)
		require.Contains(t, cfg.ProjectsToInclude, "Uniswap")
		require.NotContains(t, cfg.ProjectsToInclude, "Cream")

		_, end, err := cfg.Dates()
		require.NoError(t, err)
		require.Nil(t, end)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBacktestConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TT_API_KEY", "key")
	env, err := LoadEnv()
	require.NoError(t, err)
	require.Equal(t, 8080, env.Port)
	require.Equal(t, "key", env.TTApiKey)

	t.Setenv("PORT", "abc")
	_, err = LoadEnv()
	require.Error(t, err)
}
