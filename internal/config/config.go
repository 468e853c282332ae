package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/gameoflight/internal/ws2812"
)

// ErrLEDCount is returned when the strip length does not match the grid.
var ErrLEDCount = errors.New("config: LED count does not match grid size")

type GridCfg struct {
	Width             int     `yaml:"width"`
	Height            int     `yaml:"height"`
	SeedProbability   float64 `yaml:"seed_probability"`
	ReseedProbability float64 `yaml:"reseed_probability"`
	TickMs            int     `yaml:"tick_ms"`
}

type AnimationCfg struct {
	Steps         int    `yaml:"steps"`
	FrameDelayMs  int    `yaml:"frame_delay_ms"`
	AliveColor    string `yaml:"alive_color"` // hex, e.g. "#8a2be2"
	DeadColor     string `yaml:"dead_color"`
	MaxBrightness int    `yaml:"max_brightness"` // 0..255
}

type ProtocolCfg struct {
	ClockHz   int64 `yaml:"clock_hz"`
	BitRateHz int64 `yaml:"bit_rate_hz"`
	LatchUs   int   `yaml:"latch_us"`
	FIFODepth int   `yaml:"fifo_depth"`
}

type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0, empty for the first port
	ResetUs int    `yaml:"reset_us"` // e.g. 300
	// MaxTxBytes is the spidev transfer limit (spidev.bufsiz); 0 means none.
	MaxTxBytes int `yaml:"max_tx_bytes"`
}

type NRZ struct {
	SpeedHz int64 `yaml:"speed_hz"` // e.g. 2500000
}

type LayoutCfg struct {
	XFlipEveryRow bool `yaml:"x_flip_every_row"`
}

type PowerCfg struct {
	LimitAmps float64 `yaml:"limit_amps"`
	LedChanMA float64 `yaml:"led_chan_ma"`
}

type SelfTestCfg struct {
	Pattern string `yaml:"pattern"` // "" | index_sweep | rgb_channels | row_sweep | all_off
	HoldMs  int    `yaml:"hold_ms"`
}

type DiagCfg struct {
	Addr      string `yaml:"addr"` // empty disables the HTTP endpoint
	LogGrid   bool   `yaml:"log_grid"`
	MonitorMs int    `yaml:"monitor_ms"`
}

type Config struct {
	Driver  string `yaml:"driver"` // "pio" | "spi" | "nrz" | "console"
	NumLEDs int    `yaml:"num_leds"`

	Grid      GridCfg      `yaml:"grid"`
	Animation AnimationCfg `yaml:"animation"`
	Protocol  ProtocolCfg  `yaml:"protocol"`
	SPI       SPI          `yaml:"spi,omitempty"`
	NRZ       NRZ          `yaml:"nrzled,omitempty"`
	Layout    LayoutCfg    `yaml:"layout"`
	Power     PowerCfg     `yaml:"power"`
	SelfTest  SelfTestCfg  `yaml:"selftest"`
	Diag      DiagCfg      `yaml:"diag"`
}

// Default is a 17x8 panel of 136 LEDs on the simulated line.
func Default() *Config {
	return &Config{
		Driver:  "pio",
		NumLEDs: 136,
		Grid: GridCfg{
			Width:             17,
			Height:            8,
			SeedProbability:   0.5,
			ReseedProbability: 0.3,
			TickMs:            10000,
		},
		Animation: AnimationCfg{
			Steps:         50,
			FrameDelayMs:  15,
			AliveColor:    "#8a2be2",
			DeadColor:     "#000000",
			MaxBrightness: 30,
		},
		Protocol: ProtocolCfg{
			ClockHz:   125_000_000,
			BitRateHz: 800_000,
			LatchUs:   300,
			FIFODepth: 8,
		},
		SPI:      SPI{ResetUs: 300, MaxTxBytes: 4096},
		NRZ:      NRZ{SpeedHz: 2_500_000},
		Power:    PowerCfg{LedChanMA: 20},
		SelfTest: SelfTestCfg{HoldMs: 250},
		Diag:     DiagCfg{Addr: ":8080", MonitorMs: 2000},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	g := c.Grid
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("config: grid %dx%d must be positive", g.Width, g.Height)
	}
	if c.NumLEDs != g.Width*g.Height {
		return fmt.Errorf("%w: num_leds %d, grid %dx%d = %d", ErrLEDCount, c.NumLEDs, g.Width, g.Height, g.Width*g.Height)
	}
	for name, p := range map[string]float64{"seed_probability": g.SeedProbability, "reseed_probability": g.ReseedProbability} {
		if p < 0 || p > 1 {
			return fmt.Errorf("config: %s %v outside [0,1]", name, p)
		}
	}
	if g.TickMs <= 0 {
		return fmt.Errorf("config: tick_ms %d must be positive", g.TickMs)
	}
	a := c.Animation
	if a.Steps <= 0 {
		return fmt.Errorf("config: animation steps %d must be positive", a.Steps)
	}
	if a.FrameDelayMs < 0 {
		return fmt.Errorf("config: frame_delay_ms %d is negative", a.FrameDelayMs)
	}
	if a.MaxBrightness < 0 || a.MaxBrightness > 255 {
		return fmt.Errorf("config: max_brightness %d outside 0..255", a.MaxBrightness)
	}
	for name, h := range map[string]string{"alive_color": a.AliveColor, "dead_color": a.DeadColor} {
		if _, err := colorful.Hex(h); err != nil {
			return fmt.Errorf("config: %s %q: %w", name, h, err)
		}
	}
	p := c.Protocol
	if p.ClockHz <= 0 || p.BitRateHz <= 0 {
		return fmt.Errorf("config: protocol clock %d Hz / bit rate %d Hz must be positive", p.ClockHz, p.BitRateHz)
	}
	if latch := time.Duration(p.LatchUs) * time.Microsecond; latch < ws2812.MinLatch {
		return fmt.Errorf("config: latch_us %d below the %s WS2812 reset time", p.LatchUs, ws2812.MinLatch)
	}
	if p.FIFODepth < 0 {
		return fmt.Errorf("config: fifo_depth %d is negative", p.FIFODepth)
	}
	switch c.Driver {
	case "pio", "nrz", "console":
	case "spi":
		need := (ws2812.FrameCycles(c.NumLEDs) + 7) / 8
		if limit := c.SPI.MaxTxBytes; limit > 0 && need > limit {
			return fmt.Errorf("config: %d LEDs need %d-byte SPI transfers, spi.max_tx_bytes is %d; raise spidev.bufsiz or use driver nrz", c.NumLEDs, need, limit)
		}
	default:
		return fmt.Errorf("config: unknown driver %q", c.Driver)
	}
	return nil
}

// Load reads path on top of Default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
