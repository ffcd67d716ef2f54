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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/aisp-verify/internal/rpc"
)

func newServeCmd(a *app) *cobra.Command {
	var grpcAddr, metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve validation over gRPC and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if grpcAddr == "" {
				grpcAddr = a.cfg.Server.GRPCAddr
			}
			if metricsAddr == "" {
				metricsAddr = a.cfg.Server.MetricsAddr
			}
			v, closer, err := a.newValidator()
			if err != nil {
				return err
			}
			defer closer()

			lis, err := net.Listen("tcp", grpcAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", grpcAddr, err)
			}
			srv := rpc.NewServer(v, a.logger)
			gs := rpc.NewGRPCServer(srv)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				a.logger.Info("grpc listening", "addr", lis.Addr().String())
				return gs.Serve(lis)
			})

			var metricsSrv *http.Server
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				g.Go(func() error {
					a.logger.Info("metrics listening", "addr", metricsAddr)
					if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
			}

			g.Go(func() error {
				<-ctx.Done()
				a.logger.Info("shutting down")
				srv.Shutdown()
				gs.GracefulStop()
				if metricsSrv != nil {
					sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
					defer cancel()
					return metricsSrv.Shutdown(sctx)
				}
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus listen address (default from config)")
	return cmd
}
