package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "thinx",
	Short: "ThinxAI web chat",
	Long:  `Thinx serves a browser chat in front of the claude CLI, keeps the conversation history and sends mail on the assistant's behalf.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(cmd); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
	SilenceUsage: true,
}

// loadEnvFile reads KEY=value pairs without overriding the environment. The
// default file may be absent; an explicitly named one may not.
func loadEnvFile(cmd *cobra.Command) error {
	path := envFile
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if flag := cmd.Flags().Lookup("env-file"); flag != nil && flag.Changed {
			return fmt.Errorf("env file %s not found", path)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.thinx/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("log-level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
}
