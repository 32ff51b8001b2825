package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scribe/internal/server"
	"github.com/jackzampolin/scribe/internal/telemetry"
	"github.com/jackzampolin/scribe/version"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Scribe server",
	Long: `Start the Scribe HTTP server.

The server provides:
  - POST /api/process-transcript  - Extract contacts from {"transcript": "..."}
  - GET  /health                  - Basic server health check
  - GET  /status                  - Extractor, store, and config status
  - GET  /metrics                 - Prometheus metrics
  - GET  /api/llmcalls            - Recorded extraction calls
  - GET  /api/prompts             - Embedded prompts and their hashes

The config file is watched; changes to the anthropic, retry, or extraction
sections rebuild the client without a restart.

Examples:
  scribe serve                    # Start on the configured port (default 8080)
  scribe serve --port 3000        # Start on custom port
  scribe serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		cfg := mgr.Get()

		logger := newLogger(cfg.LogLevel())
		mgr.SetLogger(logger)
		if used := mgr.ConfigFileUsed(); used != "" {
			logger.Info("loaded config", "file", used)
			mgr.WatchConfig()
		}

		shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version.GitRelease, logger)
		if err != nil {
			return err
		}
		defer shutdown(context.WithoutCancel(ctx))

		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to (overrides server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}
