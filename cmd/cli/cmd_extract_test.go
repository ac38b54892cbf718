package main

import (
	"os"
	"path/filepath"
	"testing"

	"ttindex/internal/config"
	l1_service "ttindex/internal/service/l1"

	"github.com/stretchr/testify/require"
)

func Test_signalExpression(t *testing.T) {
	t.Run("config expression is the default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backtest.yaml")
		require.NoError(t, os.WriteFile(path, []byte("signalExpression: \"1 / (ps * ps)\"\n"), 0644))
		cfg, err := config.LoadBacktestConfig(path)
		require.NoError(t, err)

		require.Equal(t, "1 / (ps * ps)", signalExpression("", cfg))
	})

	t.Run("flag wins over the config", func(t *testing.T) {
		cfg, err := config.LoadBacktestConfig("")
		require.NoError(t, err)

		require.Equal(t, "2 / ps", signalExpression("2 / ps", cfg))
		require.Equal(t, l1_service.DefaultSignalExpression, signalExpression("", cfg))
	})
}
