package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, c.Grid.Width*c.Grid.Height, c.NumLEDs)
}

func TestValidateRejects(t *testing.T) {
	var cases = []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Grid.Width = 0 }},
		{"seed probability", func(c *Config) { c.Grid.SeedProbability = 1.5 }},
		{"reseed probability", func(c *Config) { c.Grid.ReseedProbability = -0.1 }},
		{"tick", func(c *Config) { c.Grid.TickMs = 0 }},
		{"steps", func(c *Config) { c.Animation.Steps = 0 }},
		{"brightness", func(c *Config) { c.Animation.MaxBrightness = 300 }},
		{"color", func(c *Config) { c.Animation.AliveColor = "violet" }},
		{"clock", func(c *Config) { c.Protocol.ClockHz = 0 }},
		{"no latch", func(c *Config) { c.Protocol.LatchUs = 0 }},
		{"latch below reset time", func(c *Config) { c.Protocol.LatchUs = 49 }},
		{"fifo depth", func(c *Config) { c.Protocol.FIFODepth = -1 }},
		{"driver", func(c *Config) { c.Driver = "pwm" }},
	}
	for _, v := range cases {
		t.Run(v.name, func(t *testing.T) {
			c := Default()
			v.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateAcceptsShortestLatch(t *testing.T) {
	c := Default()
	c.Protocol.LatchUs = 50
	assert.NoError(t, c.Validate())
}

func TestValidateSPITransferSize(t *testing.T) {
	c := Default()
	c.Driver = "spi"
	require.NoError(t, c.Validate(), "17x8 fits a 4096-byte transfer")

	c.Grid.Width, c.NumLEDs = 18, 144
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nrz")

	c.Driver = "nrz"
	assert.NoError(t, c.Validate())

	c.Driver = "spi"
	c.SPI.MaxTxBytes = 65536
	assert.NoError(t, c.Validate())
}

func TestValidateLEDCount(t *testing.T) {
	c := Default()
	c.NumLEDs = 100
	assert.ErrorIs(t, c.Validate(), ErrLEDCount)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: console
num_leds: 64
grid:
  width: 8
  height: 8
animation:
  alive_color: "#00ff00"
layout:
  x_flip_every_row: true
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, "console", c.Driver)
	assert.Equal(t, 8, c.Grid.Width)
	assert.Equal(t, 0.5, c.Grid.SeedProbability, "unset keys keep their defaults")
	assert.Equal(t, 50, c.Animation.Steps)
	assert.Equal(t, "#00ff00", c.Animation.AliveColor)
	assert.True(t, c.Layout.XFlipEveryRow)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Driver = "spi"
	c.SPI.Dev = "/dev/spidev0.0"
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
