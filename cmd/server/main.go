// Command server runs the CoPaw relay: the /process and /ag-ui streaming
// endpoints in front of an OpenAI-compatible chat completions backend.
//
// Configuration is layered: defaults, a YAML file (--config, COPAW_CONFIG,
// ./config.yaml, /etc/copaw/config.yaml), .env, then environment variables
// such as LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, COPAW_HOST and COPAW_PORT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rhuss/copaw/pkg/config"
	"github.com/rhuss/copaw/pkg/debug"
	"github.com/rhuss/copaw/pkg/engine"
	"github.com/rhuss/copaw/pkg/observability"
	"github.com/rhuss/copaw/pkg/provider/openaicompat"
	"github.com/rhuss/copaw/pkg/storage"
	"github.com/rhuss/copaw/pkg/storage/memory"
	transporthttp "github.com/rhuss/copaw/pkg/transport/http"
)

var version = "0.2.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:           "copaw-server",
		Short:         "CoPaw streaming relay for OpenAI-compatible backends",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			closer := debug.Init(debug.Options{
				Categories: cfg.Logging.Debug,
				Level:      cfg.Logging.Level,
				Format:     cfg.Logging.Format,
				File:       cfg.Logging.File,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAgeDays: cfg.Logging.MaxAgeDays,
			})
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, prometheus.DefaultRegisterer)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) error {
	srv, cleanup, err := newServer(cfg, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	logBanner(cfg)
	return srv.Run(ctx)
}

// newServer wires provider, session store, engine and HTTP adapter from
// the loaded configuration.
func newServer(cfg *config.Config, reg prometheus.Registerer) (*transporthttp.Server, func(), error) {
	store := memory.New(storage.MaxTurns(cfg.Session.MaxHistory))
	if reg != nil {
		err := observability.RegisterSessionGauge(reg, store.Count)
		var already prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &already) {
			return nil, nil, fmt.Errorf("registering session gauge: %w", err)
		}
	}

	client := openaicompat.NewClient(openaicompat.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		APIKey:         cfg.Upstream.APIKey,
		Model:          cfg.Upstream.Model,
		ConnectTimeout: cfg.Upstream.ConnectTimeout,
	})

	eng, err := engine.New(client, store, engine.Config{
		SystemPrompt: cfg.Upstream.SystemPrompt,
		Model:        cfg.Upstream.Model,
	})
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("creating engine: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(eng,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithModel(cfg.Upstream.Model),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithKeepAlive(cfg.Server.KeepAlive),
		transporthttp.WithLogger(slog.Default()),
	)

	return srv, func() { client.Close() }, nil
}

func logBanner(cfg *config.Config) {
	addr := cfg.Server.Addr()
	slog.Info("CoPaw relay starting",
		"version", version,
		"addr", addr,
		"upstream", cfg.Upstream.BaseURL,
		"model", cfg.Upstream.Model,
		"max_history", cfg.Session.MaxHistory,
	)
	slog.Info("endpoints",
		"process", "POST http://"+addr+"/process",
		"ag_ui", "POST http://"+addr+"/ag-ui",
		"skills", "GET http://"+addr+"/skills",
		"health", "GET http://"+addr+"/health",
	)
	if cfg.Observability.Metrics.Enabled {
		slog.Info("metrics enabled", "path", cfg.Observability.Metrics.Path)
	}
	if cfg.Upstream.APIKey == "" {
		slog.Warn("no upstream API key configured; relay requests will fail until LLM_API_KEY is set")
	}
}
