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

	"github.com/coreman2200/gameoflight/internal/app"
	"github.com/coreman2200/gameoflight/internal/config"
	"github.com/coreman2200/gameoflight/internal/monitor"
	"github.com/coreman2200/gameoflight/internal/ws"
)

func main() {
	// ---- Flags (config.yaml is loaded first; flags set explicitly win) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", "", "driver: pio | spi | nrz | console")
		simOnly    = flag.Bool("sim-only", false, "force the simulated PIO line (no hardware output)")
		addr       = flag.String("addr", "", "diagnostics HTTP listen address (empty keeps config)")
		brightness = flag.Int("brightness", -1, "max channel brightness 0..255")
		tick       = flag.Duration("tick", 0, "time between generations")
		pattern    = flag.String("selftest", "", "startup pattern: index_sweep | rgb_channels | row_sweep | all_off")
		logGrid    = flag.Bool("log-grid", false, "dump every generation at debug level")
		debug      = flag.Bool("debug", false, "enable debug logging")
		writeCfg   = flag.Bool("write-config", false, "write the effective config to -config and exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug || *logGrid {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// ---- Load config.yaml (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
		cfg = config.Default()
	}

	// ---- Effective params ----
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *simOnly {
		cfg.Driver = "pio"
	}
	if *addr != "" {
		cfg.Diag.Addr = *addr
	}
	if *brightness >= 0 {
		cfg.Animation.MaxBrightness = *brightness
	}
	if *tick > 0 {
		cfg.Grid.TickMs = int(tick.Milliseconds())
	}
	if *pattern != "" {
		cfg.SelfTest.Pattern = *pattern
	}
	if *logGrid {
		cfg.Diag.LogGrid = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *writeCfg {
		if err := config.Save(*configPath, cfg); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config save failed")
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	// ---- Output line ----
	out, err := app.OpenLine(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("no output line")
	}

	// ---- Pipeline ----
	core, err := app.InitCore(cfg, out.Line, app.Options{Log: log.Logger})
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline init failed")
	}
	core.Monitor = monitor.New()
	if cfg.Diag.MonitorMs > 0 {
		core.Monitor.Interval = time.Duration(cfg.Diag.MonitorMs) * time.Millisecond
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- HTTP routes ----
	var srv *http.Server
	if cfg.Diag.Addr != "" {
		hub := ws.NewHub(core.Layout, out.Name)
		core.AttachHub(hub)
		if out.Notice != nil {
			hub.Diag(*out.Notice)
		}
		mux := http.NewServeMux()
		hub.Routes(mux)
		srv = &http.Server{
			Addr:         cfg.Diag.Addr,
			Handler:      withCORS(mux),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Diag.Addr).Str("driver", out.Name).Msg("HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("http server crashed")
			}
		}()
	}

	// ---- Self-test, then run until a signal ----
	if err := core.SelfTest(ctx); err != nil && !app.IsShutdown(err) {
		log.Warn().Err(err).Msg("self-test failed; continuing")
	}
	log.Info().
		Str("driver", out.Name).
		Int("width", cfg.Grid.Width).
		Int("height", cfg.Grid.Height).
		Int("tick_ms", cfg.Grid.TickMs).
		Msg("game of light starting")
	err = core.Run(ctx)

	log.Info().Msg("shutting down")
	if srv != nil {
		_ = srv.Close()
	}
	if cerr := out.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("closing output")
	}
	if !app.IsShutdown(err) {
		log.Fatal().Err(err).Msg("pipeline failed")
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
