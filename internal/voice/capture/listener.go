package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/metrics"
	"crop-assist/internal/models"
	"crop-assist/internal/voice/matcher"
)

const DefaultPollInterval = 250 * time.Millisecond

// WakeHandler receives every accepted wake word with the rest of the utterance.
type WakeHandler func(ctx context.Context, det matcher.Detection, lang models.Language)

// Listener polls a capture source for the wake word until stopped. Each
// polling cycle owns one session and closes it before the next cycle starts.
type Listener struct {
	source   Source
	detector *matcher.Detector
	lang     models.Language
	interval time.Duration
	handler  WakeHandler
	logger   logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener(src Source, detector *matcher.Detector, lang models.Language, interval time.Duration, handler WakeHandler, log logger.Logger) *Listener {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Listener{
		source:   src,
		detector: detector,
		lang:     lang,
		interval: interval,
		handler:  handler,
		logger:   log.WithFields(map[string]interface{}{"language": string(lang)}),
	}
}

var ErrAlreadyListening = errors.New("listener already running")

// Start begins polling in the background. The loop ends when ctx is done or
// Stop is called.
func (l *Listener) Start(ctx context.Context) error {
	if !l.lang.Valid() {
		return errors.New("listener language " + string(l.lang) + " is not supported")
	}
	if l.source == nil || !l.source.Available() {
		return errors.New("listener has no available capture source")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		return ErrAlreadyListening
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(runCtx, l.done)

	l.logger.Info("listening for wake word", nil)
	return nil
}

// Stop cancels the loop and waits for the current session to be released.
// It is safe to call when the listener is not running.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.logger.Info("stopped listening", nil)
}

func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil
}

func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := l.poll(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("wake word polling failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		timer.Reset(l.interval)
	}
}

// poll runs one capture session to completion.
func (l *Listener) poll(ctx context.Context) error {
	sess, err := Open(ctx, l.source, Request{Language: l.lang})
	if err != nil {
		return err
	}
	defer sess.Close()

	for {
		ev, err := sess.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !ev.Final {
			continue
		}

		det, err := l.detector.Detect(ev.Transcript, l.lang)
		if err != nil {
			return err
		}
		if !det.Detected {
			continue
		}

		metrics.WakeWordDetections.WithLabelValues(string(l.lang)).Inc()
		l.logger.Debug("wake word detected", map[string]interface{}{
			"phrase":     det.Phrase,
			"confidence": det.Confidence,
		})
		if l.handler != nil {
			l.handler(ctx, det, l.lang)
		}
	}
}
