package led

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Sim keeps frames in memory instead of driving hardware. Useful headless.
type Sim struct {
	Log zerolog.Logger

	mu     sync.Mutex
	count  int
	last   []byte
	fail   error
	closed bool
}

func NewSim() *Sim { return &Sim{Log: zerolog.Nop()} }

// FailWith makes subsequent writes return err. nil restores normal operation.
func (s *Sim) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sim closed")
	}
	if s.fail != nil {
		return s.fail
	}
	s.count++
	s.last = append(s.last[:0], rgb...)

	lit := 0
	for i := 0; i+2 < len(rgb); i += 3 {
		if rgb[i]|rgb[i+1]|rgb[i+2] != 0 {
			lit++
		}
	}
	s.Log.Trace().Int("frame", s.count).Int("lit", lit).Msg("sim frame")
	return nil
}

// Frames is the number of successful writes.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Last returns a copy of the most recent frame.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
