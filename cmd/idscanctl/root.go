package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/medflow/idscan/pkg/config"
	"github.com/medflow/idscan/pkg/logger"
)

// configName is shared with the service so both read ./config/idscan-service.yaml
const configName = "idscan-service"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "idscanctl",
	Short: "Operator tooling for the ID scan service",
	Long: `idscanctl manages the ID scan service outside of HTTP:

  - migrate applies the embedded database migrations
  - extract runs the upload pipeline on a local image and prints the fields`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(extractCmd)
}

func loadConfig() (*config.Config, error) {
	return config.LoadWithValidation(configName)
}

func newLogger() *logger.Logger {
	if !verbose {
		return logger.Nop()
	}
	return logger.NewWithOptions(logger.Options{
		Service:     "idscanctl",
		Environment: config.EnvDevelopment,
		Output:      os.Stderr,
	})
}
