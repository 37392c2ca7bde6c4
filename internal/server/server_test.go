package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledmatrix/internal/command"
	diag "github.com/coreman2200/ledmatrix/internal/diagnostics"
	"github.com/coreman2200/ledmatrix/internal/display"
	"github.com/coreman2200/ledmatrix/internal/layout"
	"github.com/coreman2200/ledmatrix/internal/led"
	"github.com/coreman2200/ledmatrix/internal/server"
)

type diagLog struct {
	mu  sync.Mutex
	got []diag.Diagnostic
}

func (d *diagLog) Push(x diag.Diagnostic) {
	d.mu.Lock()
	d.got = append(d.got, x)
	d.mu.Unlock()
}

func (d *diagLog) codes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, x := range d.got {
		out = append(out, x.Code)
	}
	return out
}

type fixture struct {
	srv   *httptest.Server
	disp  *display.Display
	gate  *display.Gate
	sim   *led.Sim
	diags *diagLog
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	sim := led.NewSim()
	d, err := display.New(256, sim)
	require.NoError(t, err)
	g := display.NewGate()
	timeout := 20 * time.Millisecond
	app := command.NewApplier(d, g, command.WithTimeout(timeout))
	diags := &diagLog{}
	s := server.New(app, d, diags, server.Options{
		Strict:  strict,
		Timeout: timeout,
		Layout:  layout.Layout{Width: 16, Height: 16, Serpentine: true},
	}, zerolog.Nop())

	mux := http.NewServeMux()
	s.Routes(mux)
	srv := httptest.NewServer(server.WithCORS(mux))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, disp: d, gate: g, sim: sim, diags: diags}
}

func (f *fixture) post(t *testing.T, path, body string) (int, string) {
	t.Helper()
	res, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, strings.TrimSpace(string(b))
}

func (f *fixture) set(t *testing.T, index, r, g, b int) {
	t.Helper()
	require.NoError(t, f.gate.Do(context.Background(), func() error {
		f.disp.Set(index, r, g, b)
		return nil
	}))
}

// snapshot reads the buffer under the gate, as every writer does.
func (f *fixture) snapshot(t *testing.T) []display.Pixel {
	t.Helper()
	require.NoError(t, f.gate.Acquire(context.Background()))
	defer f.gate.Release()
	return f.disp.Snapshot()
}

func TestPixelOK(t *testing.T) {
	f := newFixture(t, false)
	code, body := f.post(t, "/pixel", `{"index":5,"r":255,"g":0,"b":7}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
	assert.Equal(t, display.Pixel{R: 255, B: 7}, f.snapshot(t)[5])
	assert.Equal(t, 1, f.sim.Frames())
}

func TestPixelLenientDefaults(t *testing.T) {
	f := newFixture(t, false)
	f.set(t, 0, 9, 9, 9)
	code, _ := f.post(t, "/pixel", `garbage`)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, f.snapshot(t)[0].IsOff(), "unparsed fields read as zero")
}

func TestPixelStrictRejects(t *testing.T) {
	f := newFixture(t, true)
	code, _ := f.post(t, "/pixel", `{"index":5}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Zero(t, f.sim.Frames())
}

func TestPixelOutOfRangeDropped(t *testing.T) {
	f := newFixture(t, false)
	code, body := f.post(t, "/pixel", `{"index":256,"r":1,"g":1,"b":1}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
	assert.Zero(t, f.sim.Frames())
}

func TestPixelByCell(t *testing.T) {
	f := newFixture(t, false)
	// row 1 runs right to left on a serpentine panel: x=0 is strip index 31
	code, body := f.post(t, "/pixel", `{"x":0,"y":1,"r":4,"g":5,"b":6}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
	snap := f.snapshot(t)
	assert.Equal(t, display.Pixel{R: 4, G: 5, B: 6}, snap[31])
	assert.True(t, snap[16].IsOff())
}

func TestPixelByCellOffMatrixDropped(t *testing.T) {
	f := newFixture(t, false)
	code, body := f.post(t, "/pixel", `{"x":16,"y":0,"r":1,"g":1,"b":1}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
	assert.Zero(t, f.sim.Frames())
	for _, p := range f.snapshot(t) {
		assert.True(t, p.IsOff())
	}
}

func TestPixelByCellStrict(t *testing.T) {
	f := newFixture(t, true)
	code, _ := f.post(t, "/pixel", `{"x":1,"r":1,"g":1,"b":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.post(t, "/pixel", `{"x":1,"y":0,"r":1,"g":1,"b":1}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, display.Pixel{R: 1, G: 1, B: 1}, f.snapshot(t)[1])
}

func TestPixelBusy(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.gate.Acquire(context.Background()))
	defer f.gate.Release()

	code, body := f.post(t, "/pixel", `{"index":5,"r":1,"g":1,"b":1}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "LED busy", body)
	assert.Equal(t, []string{diag.PixelBusy}, f.diags.codes())
}

func TestPixelTransferFailure(t *testing.T) {
	f := newFixture(t, false)
	f.sim.FailWith(errors.New("spi gone"))

	code, body := f.post(t, "/pixel", `{"index":5,"r":1,"g":1,"b":1}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "LED refresh failed", body)
	assert.Equal(t, []string{diag.RefreshFailed}, f.diags.codes())
}

func TestPixelEmptyBody(t *testing.T) {
	f := newFixture(t, false)
	code, _ := f.post(t, "/pixel", ``)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestOff(t *testing.T) {
	f := newFixture(t, false)
	f.set(t, 3, 1, 2, 3)
	code, body := f.post(t, "/off", ``)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OFF", body)
	for _, p := range f.snapshot(t) {
		assert.True(t, p.IsOff())
	}

	require.NoError(t, f.gate.Acquire(context.Background()))
	defer f.gate.Release()
	code, body = f.post(t, "/off", ``)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "LED busy", body)
}

func TestMethodsAreEnforced(t *testing.T) {
	f := newFixture(t, false)
	res, err := http.Get(f.srv.URL + "/pixel")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestIndexAndHealth(t *testing.T) {
	f := newFixture(t, false)
	res, err := http.Get(f.srv.URL + "/")
	require.NoError(t, err)
	b, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(b), "LED Matrix")

	f.post(t, "/pixel", `{"index":1,"r":1,"g":1,"b":1}`)
	res, err = http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	var h struct {
		Count    int           `json:"count"`
		Frames   uint64        `json:"frames"`
		Commands command.Stats `json:"commands"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&h))
	assert.Equal(t, 256, h.Count)
	assert.Equal(t, uint64(1), h.Frames)
	assert.Equal(t, uint64(1), h.Commands.Accepted)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, false)
	req, _ := http.NewRequest(http.MethodOptions, f.srv.URL+"/pixel", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}
