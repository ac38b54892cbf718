package main

import (
	"ttindex/cmd"
	"ttindex/internal/config"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the backtest api",
	RunE:  runServe,
}

var (
	servePort       int
	serveConfigPath string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: PORT or 3009)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Backtest config whose solver options the api uses")
}

func runServe(_ *cobra.Command, _ []string) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	cfg, err := config.LoadBacktestConfig(serveConfigPath)
	if err != nil {
		return err
	}
	handler, err := cmd.NewApiHandler(env, cfg.Solver)
	if err != nil {
		return err
	}
	defer cmd.CloseDependencies(handler)

	port := env.Port
	if servePort > 0 {
		port = servePort
	}
	return handler.StartApi(port)
}
