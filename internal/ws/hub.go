package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/gameoflight/internal/animation"
	diag "github.com/coreman2200/gameoflight/internal/diagnostics"
	"github.com/coreman2200/gameoflight/internal/grid"
	"github.com/coreman2200/gameoflight/internal/layout"
	"github.com/coreman2200/gameoflight/internal/mailbox"
)

const (
	writeWait  = 200 * time.Millisecond
	recentDiag = 32
)

// Hub streams read-only views of the pipeline to WebSocket clients:
// generations on /grid, latched frames on /frames, diagnostics on /diag.
type Hub struct {
	// mu guards the client sets; stateMu guards last, recent and frameID.
	// Producers only take stateMu and never wait on a socket.
	mu      sync.RWMutex
	stateMu sync.Mutex
	Layout  layout.Layout
	Driver string
	// Health adds pipeline counters to /health.
	Health func() map[string]any
	Log    zerolog.Logger

	snaps  *mailbox.Mailbox[grid.Snapshot]
	frames *mailbox.Mailbox[animation.ColorFrame]
	diags  *mailbox.Mailbox[diag.Diagnostic]

	last      *grid.Snapshot
	recent    []diag.Diagnostic
	frameID   uint64
	startTime time.Time

	gridClients  map[*websocket.Conn]bool
	frameClients map[*websocket.Conn]bool
	diagClients  map[*websocket.Conn]bool
}

func NewHub(l layout.Layout, driver string) *Hub {
	return &Hub{
		Layout:       l,
		Driver:       driver,
		Log:          zerolog.Nop(),
		snaps:        mailbox.New[grid.Snapshot](),
		frames:       mailbox.New[animation.ColorFrame](),
		diags:        mailbox.New[diag.Diagnostic](),
		startTime:    time.Now(),
		gridClients:  map[*websocket.Conn]bool{},
		frameClients: map[*websocket.Conn]bool{},
		diagClients:  map[*websocket.Conn]bool{},
	}
}

// Observe records s for /grid. It never blocks.
func (h *Hub) Observe(s grid.Snapshot) {
	h.stateMu.Lock()
	h.last = &s
	h.stateMu.Unlock()
	h.snaps.Publish(s)
	if s.Reseeded {
		h.Diag(diag.Reseed(s.Generation, s.Hash, s.Alive))
	}
}

// Frames is the tap the renderer publishes latched frames to.
func (h *Hub) Frames() *mailbox.Mailbox[animation.ColorFrame] { return h.frames }

// Diag records d and forwards it to /diag clients. It never blocks.
func (h *Hub) Diag(d diag.Diagnostic) {
	h.stateMu.Lock()
	h.recent = append(h.recent, d)
	if len(h.recent) > recentDiag {
		h.recent = h.recent[len(h.recent)-recentDiag:]
	}
	h.stateMu.Unlock()
	h.diags.Publish(d)
}

// Run broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for {
			s, err := h.snaps.Receive(ctx)
			if err != nil {
				return
			}
			h.broadcast(h.gridClients, s)
		}
	}()
	go func() {
		defer wg.Done()
		for {
			f, err := h.frames.Receive(ctx)
			if err != nil {
				return
			}
			h.broadcastFrame(f)
		}
	}()
	go func() {
		defer wg.Done()
		for {
			d, err := h.diags.Receive(ctx)
			if err != nil {
				return
			}
			h.broadcast(h.diagClients, d)
		}
	}()
	wg.Wait()
	h.closeAll()
	return ctx.Err()
}

// Routes registers the hub endpoints on mux.
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/grid", h.HandleGridWS)
	mux.HandleFunc("/frames", h.HandleFramesWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/health", h.HandleHealth)
}

func (h *Hub) HandleGridWS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.gridClients, func(conn *websocket.Conn) {
		h.stateMu.Lock()
		last := h.last
		h.stateMu.Unlock()
		if last != nil {
			h.write(conn, *last)
		}
	})
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.frameClients, h.sendTopology)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.diagClients, func(conn *websocket.Conn) {
		h.stateMu.Lock()
		recent := append([]diag.Diagnostic(nil), h.recent...)
		h.stateMu.Unlock()
		for _, d := range recent {
			h.write(conn, d)
		}
	})
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.stateMu.Lock()
	id := h.frameID
	h.stateMu.Unlock()
	h.mu.RLock()
	resp := map[string]any{
		"frame_id": id,
		"uptime_s": time.Since(h.startTime).Seconds(),
		"count":    h.Layout.Count(),
		"driver":   h.Driver,
		"clients":  len(h.gridClients) + len(h.frameClients) + len(h.diagClients),
	}
	h.mu.RUnlock()
	if h.Health != nil {
		for k, v := range h.Health() {
			resp[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// serve upgrades the request, runs hello under the client lock so it cannot
// interleave with a broadcast, then registers the connection in set.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool, hello func(*websocket.Conn)) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	hello(conn)
	set[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(set, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		// read-only stream; reads only detect the close
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) sendTopology(conn *websocket.Conn) {
	top := map[string]any{
		"dim":    map[string]int{"x": h.Layout.Dim.X, "y": h.Layout.Dim.Y},
		"order":  map[string]bool{"xFlipEveryRow": h.Layout.Order.XFlipEveryRow},
		"driver": h.Driver,
	}
	h.write(conn, top)
}

func (h *Hub) broadcastFrame(f animation.ColorFrame) {
	type frame struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		RGB     []byte `json:"rgb"`
	}
	rgb := make([]byte, 0, len(f)*3)
	for _, c := range f {
		rgb = append(rgb, c.R, c.G, c.B)
	}
	h.stateMu.Lock()
	h.frameID++
	id := h.frameID
	h.stateMu.Unlock()
	h.broadcast(h.frameClients, frame{T: time.Now().UnixNano(), FrameID: id, RGB: rgb})
}

func (h *Hub) broadcast(set map[*websocket.Conn]bool, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.Log.Error().Err(err).Msg("marshal broadcast")
		return
	}
	for _, c := range h.clients(set) {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			h.Log.Debug().Err(err).Msg("write broadcast")
		}
	}
}

// clients copies set so writes happen outside the lock.
func (h *Hub) clients(set map[*websocket.Conn]bool) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*websocket.Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (h *Hub) write(conn *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range []map[*websocket.Conn]bool{h.gridClients, h.frameClients, h.diagClients} {
		for c := range set {
			c.Close()
		}
	}
}
