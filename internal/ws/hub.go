// Package ws streams refreshed frames and diagnostics to browser clients.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	diag "github.com/coreman2200/ledmatrix/internal/diagnostics"
	"github.com/coreman2200/ledmatrix/internal/layout"
)

const writeWait = 200 * time.Millisecond

// Topology is sent to each frame client on connect.
type Topology struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Serpentine bool   `json:"serpentine"`
	Count      int    `json:"count"`
	Driver     string `json:"driver"`
	// Map[y*Width+x] is the strip index of the cell at x,y.
	Map []int `json:"map"`
}

type frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

// Hub fans frames and diagnostics out to websocket clients. It implements
// display.FrameSink.
type Hub struct {
	log      zerolog.Logger
	topology Topology
	up       websocket.Upgrader
	frames   chan frame

	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
}

func NewHub(l layout.Layout, driver string, log zerolog.Logger) *Hub {
	return &Hub{
		log: log,
		topology: Topology{
			Width:      l.Width,
			Height:     l.Height,
			Serpentine: l.Serpentine,
			Count:      l.Count(),
			Driver:     driver,
			Map:        l.Map(),
		},
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		frames:      make(chan frame, 8),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
	}
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.sendJSON(conn, h.topology)
	h.mu.Unlock()
	go h.drain(conn, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.diagClients[conn] = true
	h.mu.Unlock()
	go h.drain(conn, h.diagClients)
}

// drain reads until the peer goes away, then forgets it.
func (h *Hub) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		h.mu.Lock()
		delete(set, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// PublishFrame queues a refreshed frame for Run. It never blocks: the caller
// holds the display gate, so frames are dropped when clients fall behind.
func (h *Hub) PublishFrame(id uint64, rgb []byte) {
	select {
	case h.frames <- frame{T: time.Now().UnixNano(), FrameID: id, RGB: rgb}:
	default:
	}
}

// Run broadcasts queued frames until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-h.frames:
			h.mu.Lock()
			if len(h.clients) > 0 {
				h.broadcast(h.clients, f)
			}
			h.mu.Unlock()
		}
	}
}

// Push broadcasts a diagnostic.
func (h *Hub) Push(d diag.Diagnostic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast(h.diagClients, d)
}

func (h *Hub) broadcast(set map[*websocket.Conn]bool, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal broadcast")
		return
	}
	for c := range set {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug().Err(err).Msg("write to websocket client")
		}
	}
}

func (h *Hub) sendJSON(c *websocket.Conn, v any) {
	c.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.WriteJSON(v); err != nil {
		h.log.Debug().Err(err).Msg("write to websocket client")
	}
}

// Clients reports the number of connected frame and diagnostic clients.
func (h *Hub) Clients() (frames, diags int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), len(h.diagClients)
}
