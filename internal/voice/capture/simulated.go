package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"crop-assist/internal/models"
)

// SimulatedTranscripts are served by the simulated source when no script is set.
var SimulatedTranscripts = map[models.Language]string{
	models.LanguageEnglish: "Check my crop health at field 5",
	models.LanguageHindi:   "मेरी फसल की जांच करें खेत 5 पर",
	models.LanguageTelugu:  "నా పంట ఆరోగ్యం చూడండి పొలం 5లో",
}

// ErrSimulatedFailure is returned by a simulated session configured to fail.
var ErrSimulatedFailure = errors.New("simulated recognition failure")

// Simulated is an offline recognition source for demos and tests. Each
// session replays Script (or the language's canned transcript as one final
// event) and then reports io.EOF.
type Simulated struct {
	Script      []Event
	Unavailable bool
	// FailAfter makes sessions fail after that many events when positive.
	FailAfter int

	opened atomic.Int32
	closed atomic.Int32
}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Available() bool {
	return !s.Unavailable
}

func (s *Simulated) Open(ctx context.Context, req Request) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events := s.Script
	if len(events) == 0 {
		events = []Event{{Transcript: SimulatedTranscripts[req.Language], Final: true}}
	}
	s.opened.Add(1)
	return &simulatedSession{
		events:    append([]Event(nil), events...),
		failAfter: s.FailAfter,
		onClose:   func() { s.closed.Add(1) },
	}, nil
}

// Opened and Closed count sessions, so tests can check every handle was released.
func (s *Simulated) Opened() int { return int(s.opened.Load()) }
func (s *Simulated) Closed() int { return int(s.closed.Load()) }

type simulatedSession struct {
	mu        sync.Mutex
	events    []Event
	served    int
	failAfter int
	closed    bool
	onClose   func()
}

func (s *simulatedSession) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Event{}, io.ErrClosedPipe
	}
	if s.failAfter > 0 && s.served >= s.failAfter {
		return Event{}, ErrSimulatedFailure
	}
	if s.served >= len(s.events) {
		return Event{}, io.EOF
	}
	ev := s.events[s.served]
	s.served++
	return ev, nil
}

func (s *simulatedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}
