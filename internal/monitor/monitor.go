package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/cardbridge/internal/capture"
	"github.com/five82/cardbridge/internal/outcome"
	"github.com/five82/cardbridge/internal/reader"
	"github.com/five82/cardbridge/internal/submit"
)

// Capturer runs one capture cycle.
type Capturer interface {
	Capture(ctx context.Context) (capture.Record, error)
}

// Presence mirrors monitor state for operator surfaces. *state.Store
// implements it.
type Presence interface {
	ReaderSeen()
	SetCardInserted(inserted bool)
	SetCapturing(capturing bool)
}

// Observer receives cycle timings. *metrics.Metrics implements it.
type Observer interface {
	Insertion()
	CycleDone(elapsed time.Duration)
}

// Options configure a Monitor.
type Options struct {
	Reader    string
	Capturer  Capturer
	Submitter submit.Submitter
	Notify    outcome.Notifier
	Presence  Presence
	Observer  Observer
	Log       logrus.FieldLogger
}

// Monitor is the card presence state machine for one reader. It is Idle while
// cardInserted is false and Active while it is true.
//
// Handle must be called from a single goroutine; Run does that. Capture
// cycles run on their own goroutines and never touch cardInserted.
type Monitor struct {
	opts Options

	cardInserted bool
	wg           sync.WaitGroup

	// mu orders inflight changes with the Capturing mirror.
	mu       sync.Mutex
	inflight int
}

// New returns an Idle monitor.
func New(opts Options) *Monitor {
	if opts.Notify == nil {
		opts.Notify = outcome.Fanout(nil)
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Monitor{opts: opts}
}

// Inserted reports the presence flag. Call it from the goroutine that calls
// Handle.
func (m *Monitor) Inserted() bool {
	return m.cardInserted
}

// Run handles events in arrival order until the channel closes or ctx is
// done, then waits for in-flight capture cycles.
func (m *Monitor) Run(ctx context.Context, events <-chan reader.Event) error {
	defer m.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.Handle(ctx, ev)
		}
	}
}

// Wait blocks until every capture cycle started so far has finished.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Handle applies one reader event to the state machine.
func (m *Monitor) Handle(ctx context.Context, ev reader.Event) {
	log := m.opts.Log.WithField("reader", ev.Reader)
	if ev.Reader != "" && ev.Reader != m.opts.Reader {
		log.Debug("ignoring event from untracked reader")
		return
	}

	if ev.Err != nil {
		m.opts.Notify.Notify(outcome.New(outcome.ReaderTransportError,
			fmt.Sprintf("Error in the reader %s: %v", m.opts.Reader, ev.Err), ev.Err))
		return
	}
	if m.opts.Presence != nil {
		m.opts.Presence.ReaderSeen()
	}

	status := ev.Status
	log.WithField("status", status.String()).Debug("reader status")

	if status.Present && !m.cardInserted {
		m.cardInserted = true
		if !status.Valid() {
			m.cardInserted = false
			m.opts.Notify.Notify(outcome.New(outcome.InvalidCard, "Invalid card", nil))
		} else {
			log.Info("card inserted")
			m.startCycle(ctx)
		}
	}

	// Evaluated after the insertion guard so a removal is recorded even while
	// the cycle started by this same event is still running.
	if status.Empty {
		if m.cardInserted {
			log.Info("card removed")
		}
		m.cardInserted = false
	}

	if m.opts.Presence != nil {
		m.opts.Presence.SetCardInserted(m.cardInserted)
	}
}

// trackCapture adjusts the in-flight count and publishes Capturing when it
// crosses zero.
func (m *Monitor) trackCapture(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.inflight > 0
	m.inflight += delta
	if now := m.inflight > 0; now != was && m.opts.Presence != nil {
		m.opts.Presence.SetCapturing(now)
	}
}

func (m *Monitor) startCycle(ctx context.Context) {
	m.wg.Add(1)
	m.trackCapture(1)
	if m.opts.Observer != nil {
		m.opts.Observer.Insertion()
	}

	go func() {
		defer m.wg.Done()
		start := time.Now()
		defer func() {
			m.trackCapture(-1)
			if m.opts.Observer != nil {
				m.opts.Observer.CycleDone(time.Since(start))
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				m.opts.Notify.Notify(outcome.New(outcome.InsertionError, insertionErrorMessage(err), err))
			}
		}()

		m.opts.Notify.Notify(m.cycle(ctx))
	}()
}

// cycle captures and submits once, classifying every failure.
func (m *Monitor) cycle(ctx context.Context) outcome.Outcome {
	rec, err := m.opts.Capturer.Capture(ctx)
	if err != nil {
		return captureOutcome(err)
	}
	receipt, err := m.opts.Submitter.Submit(ctx, rec)
	return submit.Outcome(rec, receipt, err)
}

func captureOutcome(err error) outcome.Outcome {
	switch {
	case errors.Is(err, capture.ErrProcessFailed):
		return outcome.New(outcome.ProcessFailed, fmt.Sprintf("Capture failed: %v", err), err)
	case errors.Is(err, capture.ErrResultParse):
		return outcome.New(outcome.ResultParseError, fmt.Sprintf("Could not read capture result: %v", err), err)
	default:
		return outcome.New(outcome.InsertionError, insertionErrorMessage(err), err)
	}
}

func insertionErrorMessage(err error) string {
	return fmt.Sprintf("Error during card insertion/withdrawn: %v", err)
}
