package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/harunnryd/thinx/internal/assistant"
	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/daemon"
	"github.com/harunnryd/thinx/internal/daemon/components"
	"github.com/harunnryd/thinx/internal/mail"
	"github.com/harunnryd/thinx/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web chat server",
	Long:  `Starts the HTTP server, the history store and, when a schedule is configured, the periodic health report mail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		d, err := buildDaemon(cfg)
		if err != nil {
			return err
		}

		slog.Info("ThinxAI Web Chat starting",
			"addr", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port),
			"memory", cfg.Paths.Memory,
			"history", cfg.Paths.History,
			"downloads", cfg.Paths.Downloads,
		)

		if err := d.Start(cmd.Context()); err != nil {
			return fmt.Errorf("daemon stopped: %w", err)
		}
		slog.Info("ThinxAI Web Chat stopped")
		return nil
	},
}

func buildDaemon(cfg *config.Config) (*daemon.Daemon, error) {
	d, err := daemon.NewDaemon(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon manager: %w", err)
	}

	runner, err := assistant.NewRunner(cfg.Assistant)
	if err != nil {
		return nil, fmt.Errorf("configure assistant: %w", err)
	}

	historyComp := components.NewHistoryStoreComponent(cfg.Paths.History, &cfg.Store)
	reportsComp := components.NewReportsComponent(cfg.Mail.Health, mail.NewSender(cfg.Mail), mail.NewProber(cfg.Mail.Health))
	httpComp := components.NewHTTPServerComponent(&cfg.Server, func() (http.Handler, error) {
		srv, err := server.New(cfg, historyComp.History(), runner)
		if err != nil {
			return nil, err
		}
		return srv.Routes(), nil
	}, components.HistoryStoreName)

	d.AddComponent(historyComp)
	d.AddComponent(reportsComp)
	d.AddComponent(httpComp)
	return d, nil
}

func init() {
	serveCmd.Flags().String("host", config.DefaultServerHost, "interface to listen on")
	serveCmd.Flags().Int("port", config.DefaultServerPort, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}
