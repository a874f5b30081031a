package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/thinx/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed templates/config.yaml
var embeddedDefaultConfig []byte

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the Thinx configuration file.`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Dump fully resolved configuration",
	Long:  `Display current configuration with all defaults applied and environment variables resolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(viewOf(redactConfigSecrets(loadedCfg))); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration",
	Long:  `Create a default configuration file at $HOME/.thinx/config.yaml if it doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		configDir := filepath.Join(home, ".thinx")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
		}

		out := cmd.OutOrStdout()
		configPath := filepath.Join(configDir, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Config already exists at %s\n", configPath)
			fmt.Fprintln(out, "Use 'thinx config view' to see current configuration.")
			fmt.Fprintln(out, "To reinitialize, remove the existing config file first.")
			return nil
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to check config file: %w", err)
		}

		defaultConfig := strings.TrimSpace(string(embeddedDefaultConfig)) + "\n"
		if err := os.WriteFile(configPath, []byte(defaultConfig), 0600); err != nil {
			return fmt.Errorf("failed to write config to %s: %w", configPath, err)
		}

		fmt.Fprintf(out, "✓ Initialized config at %s\n", configPath)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Put GMAIL_ADDRESS and GMAIL_APP_PASSWORD in .env to enable mail")
		fmt.Fprintln(out, "2. Check paths.memory and paths.web point at your checkout")
		fmt.Fprintln(out, "3. Run 'thinx config view' to verify your configuration")
		return nil
	},
}

func loadConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.Load(cmd)
}

func redactConfigSecrets(in *config.Config) *config.Config {
	if in == nil {
		return nil
	}
	out := *in
	out.Mail.AppPassword = maskSecret(in.Mail.AppPassword)
	return &out
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

// viewOf converts cfg into nested maps keyed like the config file, since the
// struct only carries koanf tags.
func viewOf(cfg *config.Config) map[string]any {
	if cfg == nil {
		return nil
	}
	return map[string]any{
		"server": map[string]any{
			"host":             cfg.Server.Host,
			"port":             cfg.Server.Port,
			"log_level":        cfg.Server.LogLevel,
			"read_timeout":     cfg.Server.ReadTimeout,
			"write_timeout":    cfg.Server.WriteTimeout,
			"idle_timeout":     cfg.Server.IdleTimeout,
			"shutdown_timeout": cfg.Server.ShutdownTimeout,
		},
		"paths": map[string]any{
			"memory":           cfg.Paths.Memory,
			"history":          cfg.Paths.History,
			"downloads":        cfg.Paths.Downloads,
			"web":              cfg.Paths.Web,
			"draw_bot_profile": cfg.Paths.DrawBotProfile,
			"allowed_roots":    cfg.Paths.AllowedRoots,
		},
		"chat": map[string]any{
			"user_id":       cfg.Chat.UserID,
			"history_limit": cfg.Chat.HistoryLimit,
			"service_name":  cfg.Chat.ServiceName,
		},
		"assistant": map[string]any{
			"command":          cfg.Assistant.Command,
			"skip_permissions": cfg.Assistant.SkipPermissions,
			"workdir":          cfg.Assistant.WorkDir,
			"read_chunk_size":  cfg.Assistant.ReadChunkSize,
		},
		"relay": map[string]any{
			"keepalive_interval":  cfg.Relay.KeepaliveInterval,
			"keepalive_threshold": cfg.Relay.KeepaliveThreshold,
			"max_event_size":      cfg.Relay.MaxEventSize,
			"max_chunk_size":      cfg.Relay.MaxChunkSize,
			"summary_prefix":      cfg.Relay.SummaryPrefix,
			"error_prefix":        cfg.Relay.ErrorPrefix,
		},
		"prompts": map[string]any{
			"chat": map[string]any{
				"history_load":   cfg.Prompts.Chat.HistoryLoad,
				"history_window": cfg.Prompts.Chat.HistoryWindow,
			},
			"draw_bot": map[string]any{
				"history_load":    cfg.Prompts.DrawBot.HistoryLoad,
				"history_window":  cfg.Prompts.DrawBot.HistoryWindow,
				"identity_suffix": cfg.Prompts.DrawBot.IdentitySuffix,
			},
		},
		"upload": map[string]any{
			"max_bytes": cfg.Upload.MaxBytes,
		},
		"store": map[string]any{
			"lock_timeout":   cfg.Store.LockTimeout,
			"lock_retry":     cfg.Store.LockRetry,
			"lock_max_retry": cfg.Store.LockMaxRetry,
			"inbox_size":     cfg.Store.InboxSize,
		},
		"mail": map[string]any{
			"host":           cfg.Mail.Host,
			"port":           cfg.Mail.Port,
			"address":        cfg.Mail.Address,
			"app_password":   cfg.Mail.AppPassword,
			"organizer_name": cfg.Mail.OrganizerName,
			"uid_domain":     cfg.Mail.UIDDomain,
			"timeout":        cfg.Mail.Timeout,
			"health": map[string]any{
				"schedule":      cfg.Mail.Health.Schedule,
				"to":            cfg.Mail.Health.To,
				"probe_timeout": cfg.Mail.Health.ProbeTimeout,
				"probes":        cfg.Mail.Health.Probes,
			},
		},
		"daemon": map[string]any{
			"shutdown_timeout":      cfg.Daemon.ShutdownTimeout,
			"health_check_interval": cfg.Daemon.HealthCheckInterval,
		},
	}
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
