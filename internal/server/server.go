// Package server is the HTTP command source: it decodes pixel and clear
// requests and hands them to a command.Applier.
package server

import (
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledmatrix/internal/command"
	diag "github.com/coreman2200/ledmatrix/internal/diagnostics"
	"github.com/coreman2200/ledmatrix/internal/display"
	"github.com/coreman2200/ledmatrix/internal/layout"
)

// maxBody bounds a command payload; the JSON form is well under 100 bytes.
const maxBody = 1024

//go:embed static/index.html
var static embed.FS

// Applier is the core entry point the server drives.
type Applier interface {
	Apply(c command.PixelCommand) error
	ApplyClear() error
	Stats() command.Stats
}

// DiagSink receives diagnostics for failed commands. May be nil.
type DiagSink interface {
	Push(d diag.Diagnostic)
}

// FrameCounter reports refreshed frames for /health.
type FrameCounter interface {
	Frames() uint64
	Len() int
}

type Options struct {
	Strict  bool
	Timeout time.Duration
	// Layout resolves the {"x","y"} form of /pixel.
	Layout layout.Layout
}

type Server struct {
	app    Applier
	frames FrameCounter
	diags  DiagSink
	opts   Options
	log    zerolog.Logger
	start  time.Time
}

func New(app Applier, frames FrameCounter, diags DiagSink, opts Options, log zerolog.Logger) *Server {
	return &Server{
		app:    app,
		frames: frames,
		diags:  diags,
		opts:   opts,
		log:    log,
		start:  time.Now(),
	}
}

// Routes registers the control endpoints on mux. Websocket streams are
// registered by the caller.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.HandleIndex)
	mux.HandleFunc("POST /pixel", s.HandlePixel)
	mux.HandleFunc("POST /off", s.HandleOff)
	mux.HandleFunc("GET /health", s.HandleHealth)
}

func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	b, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

// HandlePixel applies {"index":0,"r":255,"g":0,"b":0}, or the same colour
// addressed as {"x":0,"y":0,...}.
func (s *Server) HandlePixel(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil || len(body) == 0 {
		http.Error(w, "empty request", http.StatusInternalServerError)
		return
	}
	cmd, err := s.decodePixel(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = s.app.Apply(cmd)
	if err != nil {
		s.fail(w, err, diag.PixelBusy, map[string]any{"index": cmd.Index})
		return
	}
	_, _ = io.WriteString(w, "OK")
}

func (s *Server) decodePixel(body []byte) (command.PixelCommand, error) {
	if !command.IsCell(body) {
		return command.ParsePixel(body, s.opts.Strict)
	}
	c, err := command.ParseCell(body, s.opts.Strict)
	if err != nil {
		return command.PixelCommand{}, err
	}
	idx, ok := s.opts.Layout.Index(c.X, c.Y)
	if !ok {
		// off the matrix; the applier drops out-of-range indexes
		idx = -1
	}
	return command.PixelCommand{Index: idx, R: c.R, G: c.G, B: c.B}, nil
}

// HandleOff clears the whole matrix.
func (s *Server) HandleOff(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ApplyClear(); err != nil {
		s.fail(w, err, diag.ClearBusy, nil)
		return
	}
	_, _ = io.WriteString(w, "OFF")
}

func (s *Server) fail(w http.ResponseWriter, err error, busyCode string, evidence map[string]any) {
	var d diag.Diagnostic
	msg := "LED busy"
	if errors.Is(err, display.ErrBusy) {
		d = diag.Busy(busyCode, s.opts.Timeout, evidence)
	} else {
		msg = "LED refresh failed"
		d = diag.Transfer(diag.RefreshFailed, err, evidence)
		s.log.Error().Err(err).Msg("command refresh failed")
	}
	if s.diags != nil {
		s.diags.Push(d)
	}
	http.Error(w, msg, http.StatusInternalServerError)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_s": time.Since(s.start).Seconds(),
		"count":    s.frames.Len(),
		"frames":   s.frames.Frames(),
		"commands": s.app.Stats(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// WithCORS lets the control page be served from elsewhere.
func WithCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
