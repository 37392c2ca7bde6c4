// Command matrixd accepts pixel commands over HTTP and drives the LED matrix.
// With -animate it also runs the comet trail on the same display.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledmatrix/internal/app"
	"github.com/coreman2200/ledmatrix/internal/config"
	diag "github.com/coreman2200/ledmatrix/internal/diagnostics"
	"github.com/coreman2200/ledmatrix/internal/server"
	"github.com/coreman2200/ledmatrix/internal/ws"
)

func main() {
	// ---- Flags (config.yaml overrides where set) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		addr       = flag.String("addr", "", "HTTP listen address (default from config, :80)")
		driver     = flag.String("driver", "", "driver: spi | console | sim")
		animate    = flag.Bool("animate", false, "also run the comet animation")
		strict     = flag.Bool("strict", false, "reject malformed pixel payloads instead of zero-filling")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := loadConfig(*configPath)
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *simOnly {
		cfg.Driver = "sim"
	}
	cfg.Animation.Enabled = cfg.Animation.Enabled || *animate
	cfg.Command.Strict = cfg.Command.Strict || *strict

	core, err := app.InitCore(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("display init failed")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := ws.NewHub(cfg.Layout(), core.Driver, log.Logger.With().Str("component", "ws").Logger())
	core.Disp.SetSink(hub)
	go hub.Run(ctx)

	applier := core.Applier()
	srv := server.New(applier, core.Disp, hub, server.Options{
		Strict:  cfg.Command.Strict,
		Timeout: cfg.CommandTimeout(),
		Layout:  cfg.Layout(),
	}, log.Logger.With().Str("component", "http").Logger())

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	srv.Routes(mux)
	mux.HandleFunc("/ws", hub.HandleFramesWS)
	mux.HandleFunc("/diag", hub.HandleDiagWS)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.WithCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Producers ----
	animDone := make(chan struct{})
	if cfg.Animation.Enabled {
		eng := core.Comet()
		eng.OnFrameError = func(head int, err error) {
			hub.Push(diag.Transfer(diag.FrameFailed, err, map[string]any{"head": head}))
		}
		go func() {
			defer close(animDone)
			_ = eng.Run(ctx)
		}()
	} else {
		close(animDone)
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("driver", core.Driver).Bool("animate", cfg.Animation.Enabled).Msg("HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server crashed")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = httpSrv.Shutdown(shutCtx)
	<-animDone
	if err := core.Close(time.Second); err != nil {
		log.Warn().Err(err).Msg("driver close")
	}
}

func loadConfig(path string) *config.Config {
	c, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Str("path", path).Msg("bad config")
		}
		log.Warn().Str("path", path).Msg("no config file; using defaults")
		return config.Default()
	}
	return c
}
