// Package monitor samples host load for the health endpoint.
package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/coreman2200/gameoflight/internal/clock"
)

const DefaultInterval = 2 * time.Second

type Stats struct {
	CPUPercent   float64   `json:"cpu_percent"`
	MemPercent   float64   `json:"mem_percent"`
	HostUptimeS  uint64    `json:"host_uptime_s"`
	SampledAt    time.Time `json:"sampled_at"`
	SampleErrors uint64    `json:"sample_errors"`
}

// Monitor keeps the latest sample. The probe funcs default to gopsutil and
// may be replaced before Run.
type Monitor struct {
	Interval time.Duration
	Clock    clock.Sleeper

	CPU    func() ([]float64, error)
	Mem    func() (*mem.VirtualMemoryStat, error)
	Uptime func() (uint64, error)

	mu    sync.RWMutex
	stats Stats
}

func New() *Monitor {
	return &Monitor{
		Interval: DefaultInterval,
		Clock:    clock.Real{},
		// Percent(0, false) compares against the previous call instead of blocking
		CPU:    func() ([]float64, error) { return cpu.Percent(0, false) },
		Mem:    mem.VirtualMemory,
		Uptime: host.Uptime,
	}
}

// Run samples every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		m.Sample()
		if err := m.Clock.Sleep(ctx, m.Interval); err != nil {
			return err
		}
	}
}

// Sample takes one reading. Failed probes keep their previous value.
func (m *Monitor) Sample() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, err := m.Mem(); err == nil {
		m.stats.MemPercent = round1(v.UsedPercent)
	} else {
		m.stats.SampleErrors++
	}
	if c, err := m.CPU(); err == nil && len(c) > 0 {
		m.stats.CPUPercent = round1(c[0])
	} else {
		m.stats.SampleErrors++
	}
	if u, err := m.Uptime(); err == nil {
		m.stats.HostUptimeS = u
	} else {
		m.stats.SampleErrors++
	}
	m.stats.SampledAt = time.Now()
	return m.stats
}

func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
