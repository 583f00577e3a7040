package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	if envPort == "" {
		envPort = "8080"
	}
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "nutriplay-engine",
		Short:        "Game session engine for the student nutrition platform",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("port", envPort, "port to listen on")
	flags.StringVar(&configPath, "config", envConfig, "path to YAML config")
	flags.String("backend-url", "", "base URL of the platform REST API")
	flags.String("redis-addr", "", "redis address (host:port); empty keeps state in memory")
	flags.String("postgres", "", "postgres URL for the game catalog")
	flags.String("catalog", "", "YAML file with game content")

	cmd.AddCommand(NewStartCmd(&configPath))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewSeedCmd(&configPath))
	return cmd
}
