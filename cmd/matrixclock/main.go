package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/example/matrixclock/internal/clock"
	"github.com/example/matrixclock/internal/config"
	"github.com/example/matrixclock/internal/display"
	"github.com/example/matrixclock/internal/settings"
	"github.com/example/matrixclock/internal/timesync"
	"github.com/example/matrixclock/internal/ws"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
		driver     = flag.String("driver", "", "driver: spi | sim (overrides config)")
		spiPort    = flag.String("spi", "", "SPI port name (overrides config)")
		modules    = flag.Int("modules", 0, "cascaded 8x8 modules (overrides config)")
		ntpServer  = flag.String("ntp-server", "", "NTP server (overrides config)")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.DefaultConfig()
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *spiPort != "" {
		cfg.SPI.Port = *spiPort
	}
	if *modules > 0 {
		cfg.Modules = *modules
	}
	if *ntpServer != "" {
		cfg.NTP.Server = *ntpServer
	}
	if *simOnly {
		cfg.Driver = "sim"
	}

	store := settings.NewStore(cfg.SettingsPath)
	set, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.SettingsPath).Msg("settings load failed; using defaults")
	}

	drv := openDriver(cfg, set.Brightness)

	src := timesync.New(
		cfg.NTP.Server,
		time.Duration(cfg.NTP.TimeoutMS)*time.Millisecond,
		time.Duration(cfg.NTP.ResyncMinutes)*time.Minute,
	)

	clk, err := clock.New(drv, src, store, set, clock.Options{
		Modules: cfg.Modules,
		DST:     cfg.DST,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("clock init failed")
	}

	state := ws.NewState(clk)
	clk.SetSink(state.Publish)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", state.HandleFramesWS)
	mux.HandleFunc("/control", state.HandleControlWS)
	mux.HandleFunc("/health", state.HandleHealth)

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := clk.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("clock loop exited")
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.Listen).Str("driver", cfg.Driver).Int("modules", cfg.Modules).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	cancel()
	_ = srv.Close()
	if err := drv.Close(); err != nil {
		log.Warn().Err(err).Msg("display close")
	}
}

// openDriver picks the hardware chain, falling back to the console
// simulator when no SPI port can be opened.
func openDriver(cfg *config.Config, brightness uint8) display.Driver {
	if cfg.Driver != "spi" {
		if cfg.Driver != "sim" {
			log.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using SIM")
		}
		return display.NewSim(cfg.Modules)
	}
	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("host init failed; falling back to SIM")
		return display.NewSim(cfg.Modules)
	}
	port, err := spireg.Open(cfg.SPI.Port)
	if err != nil {
		log.Warn().Err(err).Str("port", cfg.SPI.Port).Msg("SPI open failed; falling back to SIM")
		return display.NewSim(cfg.Modules)
	}
	drv, err := display.NewMAX7219(port, cfg.Modules, brightness)
	if err != nil {
		log.Warn().Err(err).Msg("MAX7219 init failed; falling back to SIM")
		_ = port.Close()
		return display.NewSim(cfg.Modules)
	}
	return drv
}
