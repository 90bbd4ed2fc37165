package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/gpukit/gpuprof/pkg/profiler"
	"github.com/gpukit/gpuprof/pkg/profiler/promexport"
	"github.com/gpukit/gpuprof/pkg/tracing"
	"github.com/gpukit/gpuprof/pkg/xlog"
)

var (
	rootCmd = &cobra.Command{
		Use:           "gpuprof",
		Short:         "Drive simulated profiler timelines and expose their statistics",
		Long:          "Demo daemon for the gpuprof engine: simulated frame and async workloads, prometheus metrics, snapshot printing and span export",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return run()
		},
	}

	configPath string
	logLevel   string
	duration   time.Duration
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to yaml config (built-in defaults when omitted)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level (`debug`, `info`, `warn`, `error`)")
	rootCmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long, 0 runs until interrupted")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	conf, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("bad log level %q: %w", logLevel, err)
	}
	zapConf := zap.NewDevelopmentConfig()
	zapConf.Level = zap.NewAtomicLevelAt(level)
	zapLogger, err := zapConf.Build()
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := xlog.New(zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	exporter := tracing.NewNopExporter()
	if conf.Tracing.Stderr {
		exporter, err = tracing.NewStderrExporter()
		if err != nil {
			return fmt.Errorf("failed to set up span exporter: %w", err)
		}
	}
	shutdownTracing, tracerProvider, err := tracing.Initialize(ctx, logger, exporter, "gpuprof")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()
	tracer := tracerProvider.Tracer("gpuprof/demo")

	manager := profiler.NewManager(logger)

	registry := prometheus.NewRegistry()
	if err := registry.Register(promexport.NewCollector(manager)); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if conf.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: conf.Metrics.Addr, Handler: mux}

		g.Go(func() error {
			logger.Info(ctx, "serving metrics", zap.String("addr", conf.Metrics.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return server.Shutdown(context.Background())
		})
	}

	var frames atomic.Int64
	var timelines []*profiler.ProfilerTimeline
	for i, tconf := range conf.Timelines {
		tl := manager.CreateTimeline(profiler.TimelineCreateInfo{
			Name:           tconf.Name,
			FrameDelay:     tconf.FrameDelay,
			AveragingCount: tconf.AveragingCount,
		})
		timelines = append(timelines, tl)

		provider := newSimProvider(tl.FrameDelay(), int64(i)+1)
		frameRate := tconf.FrameRate
		g.Go(func() error {
			runFrameLoop(ctx, tl, provider, frameRate, &frames)
			return nil
		})
		for worker := 0; worker < tconf.AsyncWorkers; worker++ {
			name := fmt.Sprintf("upload-%d", worker)
			g.Go(func() error {
				runAsyncWorker(ctx, tl, provider, name)
				return nil
			})
		}
	}

	if conf.PrintInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(conf.PrintInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				logger.Info(ctx, "frames simulated",
					zap.String("count", humanize.Comma(frames.Load())),
				)
				if err := manager.AppendPrint(os.Stdout); err != nil {
					return err
				}
				frameSnaps, _ := manager.GetSnapshots()
				now := time.Now()
				for _, snap := range frameSnaps {
					tracing.EmitSnapshotSpans(ctx, tracer, snap, now)
				}
			}
		})
	}

	err = g.Wait()
	if err != nil {
		logger.Error(ctx, "demo failed", zap.Error(err))
	}

	for _, tl := range timelines {
		manager.DestroyTimeline(tl)
	}
	manager.Close()
	return err
}
