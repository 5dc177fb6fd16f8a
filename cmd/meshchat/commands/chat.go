package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat over a simulated mesh of local peers",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if passphrase == "" {
				return errNoPassphrase
			}
			ctx := cmd.Context()
			a, reg := newApp()
			created, err := a.Start(ctx)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, a.Close()) }()
			if created {
				fmt.Printf("Identity created. Fingerprint: %s\n", a.Fingerprint())
			}

			if cfg.Metrics.Addr != "" {
				stop, err := serveMetrics(cfg.Metrics.Addr, reg)
				if err != nil {
					return err
				}
				defer stop()
			}

			fmt.Printf("You are %s on %s. Type :help for local commands.\n", a.State.Nickname.Load(), a.SelfID())
			return newREPL(a, os.Stdin, os.Stdout).run(ctx)
		},
	}
}

// serveMetrics exposes reg on addr under /metrics. The returned func shuts
// the server down.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
