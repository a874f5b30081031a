package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/thinx/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Paths     PathsConfig     `koanf:"paths"`
	Chat      ChatConfig      `koanf:"chat"`
	Assistant AssistantConfig `koanf:"assistant"`
	Relay     RelayConfig     `koanf:"relay"`
	Prompts   PromptsConfig   `koanf:"prompts"`
	Upload    UploadConfig    `koanf:"upload"`
	Store     StoreConfig     `koanf:"store"`
	Mail      MailConfig      `koanf:"mail"`
	Daemon    DaemonConfig    `koanf:"daemon"`
}

type ServerConfig struct {
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

// PathsConfig holds every filesystem location the server touches.
// AllowedRoots bounds what /api/image may serve.
type PathsConfig struct {
	Memory         string   `koanf:"memory"`
	History        string   `koanf:"history"`
	Downloads      string   `koanf:"downloads"`
	Web            string   `koanf:"web"`
	DrawBotProfile string   `koanf:"draw_bot_profile"`
	AllowedRoots   []string `koanf:"allowed_roots"`
}

type ChatConfig struct {
	UserID       string `koanf:"user_id"`
	HistoryLimit int    `koanf:"history_limit"`
	ServiceName  string `koanf:"service_name"`
}

type AssistantConfig struct {
	Command         string `koanf:"command"`
	SkipPermissions bool   `koanf:"skip_permissions"`
	WorkDir         string `koanf:"workdir"`
	ReadChunkSize   int    `koanf:"read_chunk_size"`
}

type RelayConfig struct {
	KeepaliveInterval  string `koanf:"keepalive_interval"`
	KeepaliveThreshold string `koanf:"keepalive_threshold"`
	MaxEventSize       int    `koanf:"max_event_size"`
	MaxChunkSize       int    `koanf:"max_chunk_size"`
	SummaryPrefix      int    `koanf:"summary_prefix"`
	ErrorPrefix        int    `koanf:"error_prefix"`
}

type PromptsConfig struct {
	Chat    ChatPromptConfig    `koanf:"chat"`
	DrawBot DrawBotPromptConfig `koanf:"draw_bot"`
}

type ChatPromptConfig struct {
	Instructions  string `koanf:"instructions"`
	HistoryLoad   int    `koanf:"history_load"`
	HistoryWindow int    `koanf:"history_window"`
}

type DrawBotPromptConfig struct {
	Instructions   string `koanf:"instructions"`
	Behavior       string `koanf:"behavior"`
	HistoryLoad    int    `koanf:"history_load"`
	HistoryWindow  int    `koanf:"history_window"`
	IdentitySuffix string `koanf:"identity_suffix"`
}

type UploadConfig struct {
	MaxBytes int64 `koanf:"max_bytes"`
}

type StoreConfig struct {
	LockTimeout  string `koanf:"lock_timeout"`
	LockRetry    string `koanf:"lock_retry"`
	LockMaxRetry int    `koanf:"lock_max_retry"`
	InboxSize    int    `koanf:"inbox_size"`
}

type MailConfig struct {
	Host          string       `koanf:"host"`
	Port          int          `koanf:"port"`
	Address       string       `koanf:"address"`
	AppPassword   string       `koanf:"app_password"`
	OrganizerName string       `koanf:"organizer_name"`
	UIDDomain     string       `koanf:"uid_domain"`
	Timeout       string       `koanf:"timeout"`
	Health        HealthConfig `koanf:"health"`
}

// HealthConfig drives the periodic system report. An empty Schedule disables it.
type HealthConfig struct {
	Schedule     string            `koanf:"schedule"`
	To           string            `koanf:"to"`
	ProbeTimeout string            `koanf:"probe_timeout"`
	Probes       map[string]string `koanf:"probes"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval"`
}

// flagKeys maps short CLI flag names onto their config keys.
var flagKeys = map[string]string{
	"host":      "server.host",
	"port":      "server.port",
	"log-level": "server.log_level",
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.host":                      DefaultServerHost,
		"server.port":                      DefaultServerPort,
		"server.log_level":                 DefaultServerLogLevel,
		"server.read_timeout":              DefaultServerReadTimeout,
		"server.write_timeout":             DefaultServerWriteTimeout,
		"server.idle_timeout":              DefaultServerIdleTimeout,
		"server.shutdown_timeout":          DefaultServerShutdownTimeout,
		"paths.memory":                     DefaultPathsMemory,
		"paths.history":                    DefaultPathsHistory,
		"paths.downloads":                  DefaultPathsDownloads,
		"paths.web":                        DefaultPathsWeb,
		"paths.draw_bot_profile":           DefaultPathsDrawBotProfile,
		"paths.allowed_roots":              []string{},
		"chat.user_id":                     DefaultChatUserID,
		"chat.history_limit":               DefaultChatHistoryLimit,
		"chat.service_name":                DefaultChatServiceName,
		"assistant.command":                DefaultAssistantCommand,
		"assistant.skip_permissions":       DefaultAssistantSkipPermissions,
		"assistant.workdir":                "",
		"assistant.read_chunk_size":        DefaultAssistantReadChunkSize,
		"relay.keepalive_interval":         DefaultRelayKeepaliveInterval,
		"relay.keepalive_threshold":        DefaultRelayKeepaliveThreshold,
		"relay.max_event_size":             DefaultRelayMaxEventSize,
		"relay.max_chunk_size":             DefaultRelayMaxChunkSize,
		"relay.summary_prefix":             DefaultRelaySummaryPrefix,
		"relay.error_prefix":               DefaultRelayErrorPrefix,
		"prompts.chat.instructions":        DefaultChatInstructions,
		"prompts.chat.history_load":        DefaultChatHistoryLoad,
		"prompts.chat.history_window":      DefaultChatHistoryWindow,
		"prompts.draw_bot.instructions":    DefaultDrawBotInstructions,
		"prompts.draw_bot.behavior":        DefaultDrawBotBehavior,
		"prompts.draw_bot.history_load":    DefaultDrawBotHistoryLoad,
		"prompts.draw_bot.history_window":  DefaultDrawBotHistoryWindow,
		"prompts.draw_bot.identity_suffix": DefaultDrawBotIdentitySuffix,
		"upload.max_bytes":                 DefaultUploadMaxBytes,
		"store.lock_timeout":               DefaultStoreLockTimeout,
		"store.lock_retry":                 DefaultStoreLockRetry,
		"store.lock_max_retry":             DefaultStoreLockMaxRetry,
		"store.inbox_size":                 DefaultStoreInboxSize,
		"mail.host":                        DefaultMailHost,
		"mail.port":                        DefaultMailPort,
		"mail.organizer_name":              DefaultMailOrganizerName,
		"mail.uid_domain":                  DefaultMailUIDDomain,
		"mail.timeout":                     DefaultMailTimeout,
		"mail.health.schedule":             "",
		"mail.health.probe_timeout":        DefaultMailProbeTimeout,
		"mail.health.probes":               DefaultHealthProbes,
		"daemon.shutdown_timeout":          DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":     DefaultDaemonHealthCheckInterval,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".thinx", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("THINX_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "THINX_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		flags := cmd.Flags()
		k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key := f.Name
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	applyLegacyEnv(&cfg)

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyLegacyEnv honors the variable names used by earlier deployments.
func applyLegacyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("THINX_MEMORY")); v != "" {
		cfg.Paths.Memory = v
	}
	if v := strings.TrimSpace(os.Getenv("THINX_HISTORY")); v != "" {
		cfg.Paths.History = v
	}
	if v := strings.TrimSpace(os.Getenv("THINX_DOWNLOADS")); v != "" {
		cfg.Paths.Downloads = v
	}
	if v := strings.TrimSpace(os.Getenv("GMAIL_ADDRESS")); v != "" && cfg.Mail.Address == "" {
		cfg.Mail.Address = v
	}
	if v := os.Getenv("GMAIL_APP_PASSWORD"); v != "" && cfg.Mail.AppPassword == "" {
		cfg.Mail.AppPassword = v
	}
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	fields := []*string{
		&cfg.Paths.Memory,
		&cfg.Paths.History,
		&cfg.Paths.Downloads,
		&cfg.Paths.Web,
		&cfg.Paths.DrawBotProfile,
		&cfg.Assistant.WorkDir,
	}
	for _, field := range fields {
		resolved, err := expandConfiguredPath(*field)
		if err != nil {
			return err
		}
		*field = resolved
	}

	if len(cfg.Paths.AllowedRoots) == 0 {
		root, err := expandConfiguredPath(DefaultPathsRepoRoot)
		if err != nil {
			return err
		}
		cfg.Paths.AllowedRoots = []string{cfg.Paths.Downloads, root}
	} else {
		for i, root := range cfg.Paths.AllowedRoots {
			resolved, err := expandConfiguredPath(root)
			if err != nil {
				return err
			}
			cfg.Paths.AllowedRoots[i] = resolved
		}
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := pathutil.Expand(trimmed)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", expanded, err)
	}
	return abs, nil
}
