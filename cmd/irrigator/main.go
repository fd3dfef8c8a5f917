// v3
// cmd/irrigator/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"irrinet/controller/internal/bus"
	"irrinet/controller/internal/config"
	"irrinet/controller/internal/daylog"
	"irrinet/controller/internal/engine"
	"irrinet/controller/internal/httpapi"
	"irrinet/controller/internal/logging"
	"irrinet/controller/internal/metrics"
	"irrinet/controller/internal/mlp"
	"irrinet/controller/internal/netlink"
	"irrinet/controller/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg := slog.New(slog.NewTextHandler(os.Stdout, nil))
		lg.Error("config", "error", err)
		os.Exit(1)
	}

	lg, lf := logging.Init(cfg.LogDir)
	defer func(lf *os.File) {
		if err := lf.Close(); err != nil {
			lg.Error("log file close", "error", err)
		}
	}(lf)

	// mirror log records to the dashboard once a broker session exists
	tee := logging.NewTeeHandler(lg.Handler(), cfg.TopicLog)
	lg = slog.New(tee)
	lg.Info("irrigator starting",
		"broker", cfg.BrokerURL,
		"config_source", cfg.ConfigSource,
		"http_bind", cfg.HTTPBind)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.ProbeAddr != "" {
		link := netlink.NewProbeLink(cfg.ProbeAddr, 3*time.Second, lg)
		if err := link.WaitUp(ctx, cfg.ReconnectBackoff); err != nil {
			lg.Error("network", "error", err)
			os.Exit(1)
		}
		lg.Info("network reachable", "probe", cfg.ProbeAddr)
	}

	dial := func() (bus.Conn, error) {
		s, err := bus.Dial(bus.Options{
			BrokerURL: cfg.BrokerURL,
			Username:  cfg.MQTTUser,
			Password:  cfg.MQTTPassword,
			ClientID:  cfg.MQTTClientID,
			UseTLS:    cfg.MQTTUseTLS,
			Topics: bus.Topics{
				Soil:       cfg.TopicSoil,
				ConfigBase: cfg.TopicConfigBase,
			},
		}, lg)
		if err != nil {
			tee.SetPublisher(nil)
			return nil, err
		}
		tee.SetPublisher(s)
		return s, nil
	}

	dlog, err := daylog.New(cfg.DailyLogPath)
	if err != nil {
		lg.Error("daily log", "error", err)
		os.Exit(1)
	}

	fetcher := weather.NewOWMClient(cfg.WeatherURL, cfg.WeatherAPIKey,
		cfg.Latitude, cfg.Longitude, cfg.WeatherTimeout, lg)

	var src engine.ConfigSource
	switch cfg.ConfigSource {
	case "static":
		src = engine.StaticSource{Planting: *cfg.Planting}
	default:
		src = engine.BusSource{Poll: cfg.SamplePoll, Log: lg}
	}

	met := metrics.New()
	eng := engine.New(engine.FromApp(cfg), engine.Deps{
		Dial:    dial,
		Fetcher: fetcher,
		Model:   mlp.ET0Model(),
		DayLog:  dlog,
		Source:  src,
		Metrics: met,
		Log:     lg,
	})

	api := &httpapi.Server{Engine: eng, DayLog: dlog, Metrics: met, Log: lg}
	srv := &http.Server{Addr: cfg.HTTPBind, Handler: api.Handler(os.Stdout)}
	go func() {
		lg.Info("http listening", "addr", cfg.HTTPBind)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error("http", "error", err)
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("shutting down", "signal", sig.String())
		cancel()
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			lg.Error("control loop halted", "error", err)
			sh, c := context.WithTimeout(context.Background(), 5*time.Second)
			_ = srv.Shutdown(sh)
			c()
			os.Exit(1)
		}
	}

	sh, c := context.WithTimeout(context.Background(), 5*time.Second)
	defer c()
	_ = srv.Shutdown(sh)
	lg.Info("irrigator stopped")
}
