package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/nainya/promptvault/internal/config"
	"github.com/nainya/promptvault/internal/logger"
	"github.com/nainya/promptvault/internal/metrics"
	"github.com/nainya/promptvault/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PromptService gRPC server",
	Long: `Start the PromptService gRPC server and the observability HTTP server.

The observability server provides:
  - /metrics       - Prometheus metrics
  - /health        - Liveness check
  - /ready         - Readiness check
  - /debug/pprof/  - Profiling

The config file is watched; default_author and retention_limit changes
apply to the next capture.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := *cm.Get()
		if cmd.Flags().Changed("port") {
			cfg.GRPCPort = servePort
		}

		logger.InitGlobalLogger(logger.Config{
			Level:  cfg.Log.Level,
			Pretty: cfg.Log.Pretty,
		})
		log := logger.GetGlobalLogger()
		if path := cm.ConfigFile(); path != "" {
			log.Info("Loaded config").Str("file", path).Send()
		}

		cm.OnChange(func(c *config.Config) {
			log.Info("Config reloaded").
				Str("default_author", c.Revisions.DefaultAuthor).
				Int("retention_limit", c.Revisions.RetentionLimit).
				Send()
		})
		cm.WatchConfig()

		return serve(cmd.Context(), cm, &cfg, log)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 50051, "gRPC port (overrides grpc_port)")

	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cm *config.Manager, cfg *config.Config, log *logger.Logger) error {
	log.LogServerStart(cfg.GRPCPort, cfg.MetricsPort)

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	done := make(chan struct{})
	defer close(done)
	go m.RunUptime(15*time.Second, done)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	svc := server.NewServer(server.Options{
		Metrics: m,
		Logger:  log,
		Authors: cm,
		RetentionLimit: func() int {
			return cm.Get().Revisions.RetentionLimit
		},
	})

	grpcServer := newGRPCServer(svc, m, log)

	obs := server.NewObservabilityServer(cfg.MetricsPort, prometheus.DefaultGatherer, log)
	errCh := make(chan error, 2)
	go func() { errCh <- obs.Start() }()
	go func() { errCh <- grpcServer.Serve(lis) }()

	obs.SetReady(true)
	log.LogServerReady(cfg.GRPCPort)

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	log.LogServerShutdown()
	obs.SetReady(false)
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := obs.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

// newGRPCServer registers only PromptService. No reflection: messages are
// Struct-encoded and no .proto descriptor exists for grpcurl to describe.
func newGRPCServer(svc server.PromptServiceServer, m *metrics.Metrics, log *logger.Logger) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.GrpcMetricsInterceptor(m, log)),
	)
	server.RegisterPromptServiceServer(grpcServer, svc)
	return grpcServer
}
