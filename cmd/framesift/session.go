package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/user/framesift/pkg/adapters/logger"
	"github.com/user/framesift/pkg/adapters/osfilesystem"
	"github.com/user/framesift/pkg/config"
	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/extract"
	"github.com/user/framesift/pkg/metrics"
	"github.com/user/framesift/pkg/ports"
)

// session carries what every command needs: merged configuration, logger,
// metrics and the output file system.
type session struct {
	cfg     config.Config
	log     ports.Logger
	metrics *metrics.Collector
	fs      ports.FileSystem
	cleanup []func()
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	applyFlags(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, fs: osfilesystem.New()}
	if s.log, err = buildLogger(cfg, c.Bool("quiet")); err != nil {
		return nil, err
	}

	undo, err := maxprocs.Set(maxprocs.Logger(s.log.Debug))
	if err != nil {
		s.log.Warn("Failed to set GOMAXPROCS: %v", err)
	} else {
		s.cleanup = append(s.cleanup, undo)
	}

	if addr := c.String("metrics-addr"); addr != "" {
		s.serveMetrics(addr)
	}
	return s, nil
}

// applyFlags copies explicitly set command line flags over cfg.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("gap-threshold") {
		cfg.GapThreshold = c.Int64("gap-threshold")
	}
	if c.IsSet("channel-capacity") {
		cfg.ChannelCapacity = c.Int("channel-capacity")
	}
	if c.Bool("no-cache") {
		cfg.Cache = false
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("pixel-format") {
		cfg.PixelFormat = c.String("pixel-format")
	}
	if c.IsSet("width") {
		cfg.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Height = c.Int("height")
	}
	if c.Bool("no-keep-aspect") {
		cfg.KeepAspect = false
	}
	if c.IsSet("image-format") {
		cfg.ImageFormat = c.String("image-format")
	}
	if c.IsSet("quality") {
		cfg.JPEGQuality = c.Int("quality")
	}
	if c.IsSet("progress-batch") {
		cfg.ProgressBatch = c.Int("progress-batch")
	}
}

func buildLogger(cfg config.Config, quiet bool) (ports.Logger, error) {
	level := ports.ParseLogLevel(cfg.LogLevel)
	if quiet || level == ports.LevelQuiet {
		return logger.NewNoop(), nil
	}
	if cfg.LogFormat == "json" {
		z, err := logger.NewZap(level)
		if err != nil {
			return nil, err
		}
		return z, nil
	}
	return logger.NewConsole(level), nil
}

func (s *session) serveMetrics(addr string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("Metrics server stopped: %v", err)
		}
	}()
	s.log.Info("Serving metrics on %s", addr)
	s.cleanup = append(s.cleanup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func (s *session) signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			s.log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// open opens path with the session configuration. With progress set, every
// ProgressBatch frames are reported at info level.
func (s *session) open(path string, progress bool) (*extract.MediaFile, error) {
	opts, err := s.cfg.ToExtractOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = s.log
	opts.Metrics = s.metrics
	if progress {
		opts.Progress = func(p engine.ProgressInfo) {
			s.log.Info("Progress: %d/%d frames (%.0f%%), ETA %s", p.Current, p.Total, p.Percent(), p.ETA.Round(time.Second))
		}
	}
	return extract.OpenPath(path, opts)
}

func (s *session) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	if z, ok := s.log.(*logger.ZapLogger); ok {
		_ = z.Sync()
	}
}
