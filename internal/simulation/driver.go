// Package simulation owns the grid and advances it one generation per tick,
// handing every change to the animation stage.
package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/gameoflight/internal/clock"
	"github.com/coreman2200/gameoflight/internal/grid"
	"github.com/coreman2200/gameoflight/internal/mailbox"
)

const (
	DefaultTick              = 10 * time.Second
	DefaultSeedProbability   = 0.5
	DefaultReseedProbability = 0.3
)

// Observer receives a copy of every published generation. Observe runs on
// the driver goroutine and must not block.
type Observer interface {
	Observe(s grid.Snapshot)
}

type State int

const (
	Seed State = iota
	Run
)

func (s State) String() string {
	if s == Seed {
		return "seed"
	}
	return "run"
}

// Stats counts driver activity.
type Stats struct {
	Generation uint64 `json:"generation"`
	Reseeds    uint64 `json:"reseeds"`
	Alive      int64  `json:"alive"`
	Hash       uint64 `json:"hash"`
}

type Driver struct {
	Grid              *grid.Grid
	Out               *mailbox.Mailbox[grid.Transition]
	Tick              time.Duration
	SeedProbability   float64
	ReseedProbability float64
	Clock             clock.Sleeper
	Log               zerolog.Logger

	mu        sync.Mutex
	observers []Observer

	state   atomic.Int32
	gen     atomic.Uint64
	reseeds atomic.Uint64
	alive   atomic.Int64
	hash    atomic.Uint64
}

func New(g *grid.Grid, out *mailbox.Mailbox[grid.Transition]) *Driver {
	return &Driver{
		Grid:              g,
		Out:               out,
		Tick:              DefaultTick,
		SeedProbability:   DefaultSeedProbability,
		ReseedProbability: DefaultReseedProbability,
		Clock:             clock.Real{},
		Log:               zerolog.Nop(),
	}
}

// AddObserver registers o for every later generation.
func (d *Driver) AddObserver(o Observer) {
	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
}

// State reports whether the driver has seeded the grid yet. It is safe to
// call while Run is active.
func (d *Driver) State() State { return State(d.state.Load()) }

// Run seeds the grid, then steps it every Tick. It returns on context
// cancellation or when the random source fails.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := d.Advance(); err != nil {
			return err
		}
		if err := d.Clock.Sleep(ctx, d.Tick); err != nil {
			return err
		}
	}
}

// Advance performs one state machine transition and publishes the result.
// In Seed it randomizes the grid. In Run it steps, reseeding when the step
// changed nothing.
func (d *Driver) Advance() error {
	prev := d.Grid.Cells()
	reseeded := false
	switch d.State() {
	case Seed:
		if err := d.Grid.Randomize(d.SeedProbability); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		d.state.Store(int32(Run))
		d.Log.Info().Float64("probability", d.SeedProbability).Int("alive", d.Grid.Population()).Msg("grid seeded")
	case Run:
		if !d.Grid.Step() {
			if err := d.Grid.Randomize(d.ReseedProbability); err != nil {
				return fmt.Errorf("reseed: %w", err)
			}
			reseeded = true
			d.reseeds.Add(1)
			d.Log.Info().Uint64("generation", d.gen.Load()+1).Uint64("hash", grid.Hash(prev)).
				Int("alive", d.Grid.Population()).Msg("grid stagnated; reseeding")
		}
	}
	d.publish(prev, reseeded)
	return nil
}

func (d *Driver) publish(prev []bool, reseeded bool) {
	gen := d.gen.Add(1)
	d.Out.Publish(grid.Transition{Generation: gen, Prev: prev, Cur: d.Grid.Cells()})
	d.alive.Store(int64(d.Grid.Population()))
	d.hash.Store(d.Grid.Hash())

	d.mu.Lock()
	obs := d.observers
	d.mu.Unlock()
	if len(obs) == 0 {
		return
	}
	snap := d.Grid.Snapshot(gen, reseeded)
	for _, o := range obs {
		o.Observe(snap)
	}
}

func (d *Driver) Stats() Stats {
	return Stats{
		Generation: d.gen.Load(),
		Reseeds:    d.reseeds.Load(),
		Alive:      d.alive.Load(),
		Hash:       d.hash.Load(),
	}
}
