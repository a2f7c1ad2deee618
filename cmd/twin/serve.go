package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/twin-engine/internal/engine"
	"github.com/danielpatrickdp/twin-engine/internal/journal"
	"github.com/danielpatrickdp/twin-engine/internal/metrics"
	"github.com/danielpatrickdp/twin-engine/internal/rpc"
)

const shutdownGrace = 5 * time.Second

// #region command
func newServeCmd(a *app) *cobra.Command {
	var grpcAddr, metricsAddr string
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one simulation session over gRPC with Prometheus metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("grpc-addr") {
				a.cfg.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("metrics-addr") {
				a.cfg.MetricsAddr = metricsAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, !noJournal)
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides TWIN_GRPC_ADDR)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address, empty disables (overrides TWIN_METRICS_ADDR)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not record runs")
	return cmd
}

// #endregion command

// #region serve
func serve(ctx context.Context, a *app, withJournal bool) error {
	log := a.logger.With("component", "serve")

	ctrl, err := engine.New(engine.Options{Delay: a.cfg.RunDelay, Logger: a.logger})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer ctrl.Subscribe(m.Subscriber())()

	if withJournal {
		store, err := journal.Open(a.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		defer ctrl.Subscribe(store.Subscriber())()
	}

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer()
	srv := rpc.NewServer(ctrl, m, a.logger)
	srv.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("grpc listening", "addr", lis.Addr().String())
		return grpcServer.Serve(lis)
	})

	var httpServer *http.Server
	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		httpServer = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info("metrics listening", "addr", a.cfg.MetricsAddr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		srv.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		if httpServer != nil {
			return httpServer.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// #endregion serve
