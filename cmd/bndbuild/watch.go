package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/osgikit/bndbuild/internal/builder"
	"github.com/osgikit/bndbuild/internal/config"
	"github.com/osgikit/bndbuild/internal/logging"
	"github.com/osgikit/bndbuild/internal/pool"
	"github.com/osgikit/bndbuild/internal/progress"
	"github.com/osgikit/bndbuild/internal/service"
)

type watchParams struct {
	configFiles []string
	addr        string
	interval    time.Duration
	workers     int
}

func watchCommand(logLevel *logging.Level) *cobra.Command {
	var params watchParams

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild configured bundles periodically",
		Long: `Rebuild configured bundles on an interval. SIGHUP triggers an immediate
rebuild of every bundle; SIGINT and SIGTERM stop the loop.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, params, *logLevel)
		},
	}

	cmd.Flags().StringSliceVarP(&params.configFiles, "config", "c", []string{"bndbuild.yaml"}, "configuration file or directory (repeatable)")
	cmd.Flags().StringVar(&params.addr, "addr", "", "listen address for the metrics endpoint (overrides config)")
	cmd.Flags().DurationVar(&params.interval, "interval", 0, "rebuild interval (overrides config)")
	cmd.Flags().IntVar(&params.workers, "workers", 0, "number of concurrent bundle builds (overrides config)")
	return cmd
}

func runWatch(cmd *cobra.Command, params watchParams, logLevel logging.Level) error {
	root, err := loadConfig(params.configFiles)
	if err != nil {
		return err
	}

	interval, addr, poolSize := watchSettings(root.Watch, params)

	logger := logging.NewLogger(logging.Config{Level: logLevel, Output: cmd.ErrOrStderr()})
	bar := progress.New(nil, 0, "", false) // no progress bar for a long-running loop
	reporter := builder.NewReporter(cmd.ErrOrStderr(), cmd.ErrOrStderr())

	workers, err := service.Workers(root, logger, bar, reporter, false, interval)
	if err != nil {
		return err
	}

	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Errorf("metrics endpoint: %v", err)
			}
		}()
		logger.Infof("serving metrics on %s", addr)
	}

	p := pool.New(poolSize)
	for _, w := range workers {
		p.Add(w.Name(), w.Execute)
	}
	logger.Infof("watching %d bundles, rebuild interval %v", len(workers), interval)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan struct{}, 1)
	notifyHangup(hup)
	for {
		select {
		case <-hup:
			for _, w := range workers {
				if err := p.Trigger(w.Name()); err != nil {
					logger.Warnf("trigger %q: %v", w.Name(), err)
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func notifyHangup(ch chan struct{}) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	go func() {
		for range sig {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
}

func watchSettings(cfg *config.Watch, params watchParams) (time.Duration, string, int) {
	interval := params.interval
	addr := params.addr
	workers := params.workers

	if cfg != nil {
		if interval == 0 {
			interval = time.Duration(cfg.Interval)
		}
		if addr == "" {
			addr = cfg.Addr
		}
		if workers == 0 {
			workers = cfg.Workers
		}
	}
	if interval == 0 {
		interval = 30 * time.Second
	}
	if workers == 0 {
		workers = 1
	}
	return interval, addr, workers
}
