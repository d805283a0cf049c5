package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dashmon/internal/clockwork"
	"dashmon/internal/config"
	"dashmon/internal/eventbus"
	"dashmon/internal/faults"
	"dashmon/internal/notices"
	"dashmon/internal/telemetry"
	"dashmon/internal/transport"
	"dashmon/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logSvc.Close()
	mgr.SetLogger(log)

	clk := clockwork.Real()
	bus := eventbus.New()

	noticeStore := notices.NewStore(clk, bus)
	noticeStore.SetDefaultDuration(cfg.NoticeDuration())
	eventStore := telemetry.NewStore(cfg.Buffer.Capacity, clk, bus)
	handler := faults.NewHandler(faults.Config{
		BreakerThreshold: cfg.Breaker.Threshold,
		BreakerCooldown:  cfg.BreakerCooldown(),
		NoticeRatePerSec: cfg.Notices.RatePerSec,
	}, log.With(logx.String("svc", "faults")), noticeStore, clk)

	if cfg.Stream.URL != "" {
		streamer := transport.NewStreamer(transport.StreamConfig{
			URL:           cfg.Stream.URL,
			ReconnectBase: cfg.ReconnectBase(),
			ReconnectMax:  cfg.ReconnectMax(),
		}, eventStore, handler, bus, log.With(logx.String("svc", "stream")))
		go func() { _ = streamer.Run(ctx) }()
	}

	if cfg.Push.Enabled && cfg.Push.Listen != "" {
		gate := transport.NewPushGate(
			transport.NewOriginPolicy(cfg.Security.AllowedOrigins, cfg.Security.DevMode),
			eventStore, handler, bus, log.With(logx.String("svc", "push")))

		mux := http.NewServeMux()
		path := cfg.Push.Path
		if path == "" {
			path = "/push"
		}
		mux.Handle(path, gate)
		srv := &http.Server{Addr: cfg.Push.Listen, Handler: mux}
		go func() {
			log.Info("push listener started", logx.String("addr", cfg.Push.Listen))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				handler.Process(err, "transport", "listen")
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	// Live reload applies logging only; stores keep their startup settings.
	go func() { _ = mgr.Watch(ctx) }()
	go func() {
		sub := mgr.Subscribe(1)
		defer mgr.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case next := <-sub:
				if next == nil {
					return
				}
				logSvc.Apply(logx.Config{
					Level:   next.Logging.Level,
					Console: next.Logging.Console,
					File:    logx.FileConfig{Enabled: next.Logging.File.Enabled, Path: next.Logging.File.Path},
				})
				bus.Publish(eventbus.Signal{Topic: eventbus.TopicConfigApplied})
				log.Info("config reloaded", logx.String("path", cfgPath))
			}
		}
	}()

	log.Info("dashmon started",
		logx.String("config", cfgPath),
		logx.Int("buffer_capacity", cfg.Buffer.Capacity),
		logx.Bool("push", cfg.Push.Enabled))

	<-ctx.Done()
}
