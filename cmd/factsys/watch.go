package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/groundstation/factsys"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		flags       containerFlags
		debounce    time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print parameter changes as the files change",
		Long: `Loads the parameters and prints every value change caused by edits of the
params file until interrupted. With --metrics-addr write and reload counters are
served in the Prometheus text format on /metrics.`,
		Example: `  factsys watch --meta meta.yaml --params params.yaml
  factsys watch --meta meta.yaml --params params.yaml --metrics-addr :9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg := prometheus.NewRegistry()
			collector, err := metrics.NewCollector(reg)
			if err != nil {
				return err
			}
			c, err := a.open(ctx, &flags, factsys.WithObserver(collector))
			if err != nil {
				return err
			}
			defer c.Close()

			if metricsAddr != "" {
				stopServer, err := a.serveMetrics(metricsAddr, collector)
				if err != nil {
					return err
				}
				defer stopServer()
			}

			out := &syncWriter{w: cmd.OutOrStdout()}
			for _, f := range c.Facts() {
				f.Subscribe(func(v factsys.Value) {
					a.logger.Info("parameter changed", zap.Stringer("fact", f), zap.Stringer("value", v))
					fmt.Fprintf(out, "%s = %s\n", f, f.MetaData().Format(v))
				})
			}

			cfg := factsys.DefaultWatchConfig()
			cfg.DebounceDelay = debounce
			cfg.OnError = func(name layer.Name, err error) {
				fmt.Fprintf(out, "error: layer %s: %v\n", name, err)
			}
			stop, err := c.Watch(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "watching %d parameters\n", len(c.Facts()))

			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return stop(stopCtx)
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "delay before applying file changes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// serveMetrics serves the collector on addr until the returned function is called.
func (a *app) serveMetrics(addr string, collector *metrics.Collector) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}, nil
}

// syncWriter serializes writes from the watch goroutine and the command.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
