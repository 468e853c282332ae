package app

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/gameoflight/internal/config"
	diag "github.com/coreman2200/gameoflight/internal/diagnostics"
	"github.com/coreman2200/gameoflight/internal/led"
	"github.com/coreman2200/gameoflight/internal/ws2812"
)

// Output is an opened line and how to release it.
type Output struct {
	Line   ws2812.Line
	Name   string
	Close  func() error
	Notice *diag.Diagnostic
}

// NewPIO builds the simulated state machine described by cfg.Protocol.
func NewPIO(cfg *config.Config) (*ws2812.PIO, error) {
	p := cfg.Protocol
	return ws2812.NewPIO(physic.Frequency(p.ClockHz)*physic.Hertz, physic.Frequency(p.BitRateHz)*physic.Hertz, p.FIFODepth)
}

// OpenLine opens the driver named by cfg.Driver. When a hardware driver
// cannot be opened it falls back to the simulated line and says so in
// Notice.
func OpenLine(cfg *config.Config, lg zerolog.Logger) (*Output, error) {
	switch cfg.Driver {
	case "console":
		c := led.NewConsoleLine(cfg.NumLEDs)
		return &Output{Line: c, Name: "console", Close: c.Close}, nil
	case "spi", "nrz":
		out, err := openSPI(cfg)
		if err == nil {
			return out, nil
		}
		lg.Warn().Err(err).
			Str("driver", cfg.Driver).
			Str("dev", cfg.SPI.Dev).
			Msg("SPI init failed; falling back to PIO")
		fb, perr := openPIO(cfg)
		if perr != nil {
			return nil, perr
		}
		d := diag.Fallback(cfg.Driver, fb.Name, err)
		fb.Notice = &d
		return fb, nil
	default:
		return openPIO(cfg)
	}
}

func openPIO(cfg *config.Config) (*Output, error) {
	p, err := NewPIO(cfg)
	if err != nil {
		return nil, err
	}
	return &Output{Line: p, Name: "pio", Close: func() error { return nil }}, nil
}

func openSPI(cfg *config.Config) (*Output, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(cfg.SPI.Dev)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", cfg.SPI.Dev, err)
	}
	if cfg.Driver == "nrz" {
		n, err := led.NewNRZLine(port, cfg.NumLEDs, physic.Frequency(cfg.NRZ.SpeedHz)*physic.Hertz)
		if err != nil {
			port.Close()
			return nil, err
		}
		return &Output{Line: n, Name: "nrz", Close: n.Close}, nil
	}
	s, err := led.NewSPILine(port, cfg.NumLEDs, physic.Frequency(cfg.Protocol.BitRateHz)*physic.Hertz)
	if err != nil {
		port.Close()
		return nil, err
	}
	return &Output{Line: s, Name: "spi", Close: s.Close}, nil
}
