package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"

	"github.com/coreman2200/gameoflight/internal/animation"
	"github.com/coreman2200/gameoflight/internal/clock"
	"github.com/coreman2200/gameoflight/internal/config"
	diag "github.com/coreman2200/gameoflight/internal/diagnostics"
	"github.com/coreman2200/gameoflight/internal/grid"
	"github.com/coreman2200/gameoflight/internal/layout"
	"github.com/coreman2200/gameoflight/internal/mailbox"
	"github.com/coreman2200/gameoflight/internal/monitor"
	"github.com/coreman2200/gameoflight/internal/palette"
	"github.com/coreman2200/gameoflight/internal/selftest"
	"github.com/coreman2200/gameoflight/internal/simulation"
	"github.com/coreman2200/gameoflight/internal/ws"
	"github.com/coreman2200/gameoflight/internal/ws2812"
)

const stallCheck = 5 * time.Second

// Core is the wired pipeline: driver → grid mailbox → transcoder → color
// mailbox → renderer → line.
type Core struct {
	Config *config.Config
	Layout layout.Layout

	Grid    *grid.Grid
	Grids   *mailbox.Mailbox[grid.Transition]
	Frames  *mailbox.Mailbox[animation.ColorFrame]
	Palette *palette.Palette

	Driver     *simulation.Driver
	Transcoder *animation.Transcoder
	Renderer   *ws2812.Renderer
	Line       ws2812.Line
	// PIO is set when Line is the simulated state machine; Run drives it.
	PIO *ws2812.PIO

	Hub     *ws.Hub
	Monitor *monitor.Monitor

	Clock clock.Sleeper
	Log   zerolog.Logger
}

type Options struct {
	// Random seeds the grid; nil means crypto/rand.
	Random io.Reader
	// Clock paces every stage; nil means wall time.
	Clock clock.Sleeper
	Log   zerolog.Logger
}

// InitCore validates cfg and builds every stage around line.
func InitCore(cfg *config.Config, line ws2812.Line, opts Options) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	lg := opts.Log

	// 1) Grid
	g, err := grid.New(cfg.Grid.Width, cfg.Grid.Height, opts.Random)
	if err != nil {
		return nil, err
	}
	if g.Len() != cfg.NumLEDs {
		return nil, fmt.Errorf("%w: %d cells, %d LEDs", config.ErrLEDCount, g.Len(), cfg.NumLEDs)
	}

	// 2) Palette, scaled once and shared read-only
	pal, err := buildPalette(cfg, lg)
	if err != nil {
		return nil, err
	}

	// 3) Layout
	l := layout.Layout{
		Dim:   layout.Dim{X: cfg.Grid.Width, Y: cfg.Grid.Height},
		Order: layout.Serpentine{XFlipEveryRow: cfg.Layout.XFlipEveryRow},
	}

	// 4) Stages and the two mailboxes between them
	grids := mailbox.New[grid.Transition]()
	frames := mailbox.New[animation.ColorFrame]()

	drv := simulation.New(g, grids)
	drv.Tick = time.Duration(cfg.Grid.TickMs) * time.Millisecond
	drv.SeedProbability = cfg.Grid.SeedProbability
	drv.ReseedProbability = cfg.Grid.ReseedProbability
	drv.Clock = opts.Clock
	drv.Log = lg.With().Str("component", "simulation").Logger()

	tc := animation.New(cfg.NumLEDs, pal, grids, frames)
	tc.Delay = time.Duration(cfg.Animation.FrameDelayMs) * time.Millisecond
	tc.Clock = opts.Clock
	tc.Log = lg.With().Str("component", "animation").Logger()

	r := ws2812.NewRenderer(cfg.NumLEDs, line, frames)
	r.Latch = time.Duration(cfg.Protocol.LatchUs) * time.Microsecond
	if cfg.Driver == "spi" && cfg.SPI.ResetUs > cfg.Protocol.LatchUs {
		r.Latch = time.Duration(cfg.SPI.ResetUs) * time.Microsecond
	}
	r.Order = l.Addresses()
	r.Clock = opts.Clock
	r.Log = lg.With().Str("component", "ws2812").Logger()

	c := &Core{
		Config:     cfg,
		Layout:     l,
		Grid:       g,
		Grids:      grids,
		Frames:     frames,
		Palette:    pal,
		Driver:     drv,
		Transcoder: tc,
		Renderer:   r,
		Line:       line,
		Clock:      opts.Clock,
		Log:        lg,
	}
	if p, ok := line.(*ws2812.PIO); ok {
		c.PIO = p
	}
	if cfg.Diag.LogGrid {
		drv.AddObserver(simulation.LogObserver{Log: lg.With().Str("component", "grid").Logger()})
	}
	return c, nil
}

func buildPalette(cfg *config.Config, lg zerolog.Logger) (*palette.Palette, error) {
	alive, err := colorful.Hex(cfg.Animation.AliveColor)
	if err != nil {
		return nil, fmt.Errorf("alive color: %w", err)
	}
	dead, err := colorful.Hex(cfg.Animation.DeadColor)
	if err != nil {
		return nil, fmt.Errorf("dead color: %w", err)
	}
	pal, err := palette.New(palette.Options{
		Steps:         cfg.Animation.Steps,
		Alive:         alive,
		Dead:          dead,
		MaxBrightness: uint8(cfg.Animation.MaxBrightness),
	})
	if err != nil {
		return nil, err
	}
	if s := pal.Limit(cfg.NumLEDs, cfg.Power.LimitAmps*1000, cfg.Power.LedChanMA); s < 1 {
		lg.Warn().Float64("scale", s).Float64("limit_amps", cfg.Power.LimitAmps).Msg("palette dimmed to fit power budget")
	}
	return pal, nil
}

// AttachHub streams the pipeline to h and serves counters on /health.
func (c *Core) AttachHub(h *ws.Hub) {
	c.Hub = h
	c.Driver.AddObserver(h)
	c.Renderer.Tap = h.Frames()
	h.Health = c.Health
	h.Log = c.Log.With().Str("component", "ws").Logger()
}

// SelfTest plays the configured startup pattern, if any, before Run.
func (c *Core) SelfTest(ctx context.Context) error {
	kind, err := selftest.ParseKind(c.Config.SelfTest.Pattern)
	if err != nil || kind == selftest.None {
		return err
	}
	stop := c.startPIO(ctx)
	defer stop()

	plan := selftest.Plan{Kind: kind, Level: uint8(c.Config.Animation.MaxBrightness)}
	hold := time.Duration(c.Config.SelfTest.HoldMs) * time.Millisecond
	n, err := selftest.Play(ctx, plan, c.Layout, c.Renderer, c.Clock, hold)
	c.Log.Info().Str("pattern", string(kind)).Int("frames", n).Err(err).Msg("self-test finished")
	if c.Hub != nil {
		c.Hub.Diag(diag.SelfTest(string(kind), n, err))
	}
	return err
}

// startPIO runs the simulated line for the duration of a call.
func (c *Core) startPIO(ctx context.Context) func() {
	if c.PIO == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.PIO.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Run starts one goroutine per stage and blocks until ctx is done or a
// stage fails. A failed stage stops the others.
func (c *Core) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type stage struct {
		name string
		run  func(context.Context) error
	}
	stages := []stage{
		{"renderer", c.Renderer.Run},
		{"transcoder", c.Transcoder.Run},
		{"simulation", c.Driver.Run},
	}
	if c.PIO != nil {
		stages = append(stages, stage{"pio", c.PIO.Run})
	}
	if c.Hub != nil {
		stages = append(stages, stage{"ws", c.Hub.Run})
		if c.PIO != nil {
			stages = append(stages, stage{"stall-watch", c.watchStalls})
		}
	}
	if c.Monitor != nil {
		stages = append(stages, stage{"monitor", c.Monitor.Run})
	}

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	for _, s := range stages {
		wg.Add(1)
		go func(s stage) {
			defer wg.Done()
			err := s.run(ctx)
			if IsShutdown(err) {
				return
			}
			c.Log.Error().Err(err).Str("stage", s.name).Msg("stage stopped")
			once.Do(func() {
				first = fmt.Errorf("%s: %w", s.name, err)
				cancel()
			})
		}(s)
	}
	c.Log.Info().Int("leds", c.Config.NumLEDs).Int("stages", len(stages)).Msg("pipeline running")
	wg.Wait()
	if first != nil {
		return first
	}
	return ctx.Err()
}

// watchStalls raises a diagnostic whenever the simulated FIFO filled up
// since the previous check.
func (c *Core) watchStalls(ctx context.Context) error {
	var seen uint64
	for {
		if err := c.Clock.Sleep(ctx, stallCheck); err != nil {
			return err
		}
		st := c.PIO.Stats()
		if st.Stalls > seen {
			c.Hub.Diag(diag.Stall(st.Stalls, st.Words))
			seen = st.Stalls
		}
	}
}

// Health is the counter set served on /health.
func (c *Core) Health() map[string]any {
	h := map[string]any{
		"simulation":    c.Driver.Stats(),
		"animation":     c.Transcoder.Stats(),
		"renderer":      c.Renderer.Stats(),
		"grid_mailbox":  c.Grids.Stats(),
		"frame_mailbox": c.Frames.Stats(),
	}
	if c.PIO != nil {
		h["pio"] = c.PIO.Stats()
	}
	if c.Monitor != nil {
		h["host"] = c.Monitor.Stats()
	}
	return h
}

// IsShutdown reports whether err is a context cancellation, i.e. a clean stop.
func IsShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
