package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"airshark/internal/api"
	"airshark/worker"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion workers and the feed API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		gin.SetMode(cfg.Server.GinMode)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		status := func() api.Status {
			return api.Status{
				RetainedPosts:  p.store.Len(),
				RetainedTokens: p.store.Tokens(),
				Rotation:       p.rotation.State(),
			}
		}
		server := api.New(p.orchestrator, p.feed, status, p.metrics)

		ws := []worker.Worker{
			&worker.IngestWorker{Orchestrator: p.orchestrator},
			&worker.SweepWorker{Store: p.store, Interval: p.durations.SweepInterval, Metrics: p.metrics},
			&worker.APIWorker{Server: server, Addr: cfg.Server.Addr},
		}
		if p.durations.DigestEvery > 0 {
			slog.Info("starting digest worker", "interval", p.durations.DigestEvery, "output_dir", cfg.Digest.OutputDir)
			ws = append(ws, &worker.DigestWorker{Builder: p.digestBuilder(cfg), Interval: p.durations.DigestEvery})
		}
		slog.Info("starting ingestion", "queries", p.rotation.Queries(), "interval", p.durations.FetchInterval)
		mgr := worker.NewManager(ws...)

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			slog.Info("received signal, shutting down", "signal", s.String())
			cancel()
		}()

		return mgr.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
