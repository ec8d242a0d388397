package reader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ebfe/scard"
	"github.com/sirupsen/logrus"
)

const (
	defaultRetryInterval = 2 * time.Second
	defaultPollTimeout   = time.Second
	maxBackoff           = 30 * time.Second
)

// cardContext is the subset of *scard.Context the source needs.
type cardContext interface {
	ListReaders() ([]string, error)
	GetStatusChange(states []scard.ReaderState, timeout time.Duration) error
	Release() error
}

// PCSC watches one reader through the platform PC/SC service.
type PCSC struct {
	target string
	log    logrus.FieldLogger

	retry time.Duration
	poll  time.Duration

	establish func() (cardContext, error)
	ignored   map[string]bool
}

// NewPCSC returns a source for the named reader. Every other reader the
// service reports is ignored.
func NewPCSC(target string, log logrus.FieldLogger) *PCSC {
	return &PCSC{
		target: target,
		log:    log,
		retry:  defaultRetryInterval,
		poll:   defaultPollTimeout,
		establish: func() (cardContext, error) {
			return scard.EstablishContext()
		},
		ignored: make(map[string]bool),
	}
}

// Run implements Source. Transport failures are delivered as error events and
// the source reconnects with exponential backoff until ctx is cancelled.
func (p *PCSC) Run(ctx context.Context, out chan<- Event) error {
	failures := 0
	for {
		delivered, err := p.session(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		if delivered {
			failures = 0
		}
		if err != nil {
			p.emit(ctx, out, Event{Reader: p.target, Err: err})
		}

		wait := calculateBackoff(failures, p.retry)
		failures++
		p.log.WithField("retry_in", wait).Debug("reader session ended")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session runs one PC/SC context until it fails. delivered reports whether
// at least one status reached out.
func (p *PCSC) session(ctx context.Context, out chan<- Event) (delivered bool, err error) {
	sc, err := p.establish()
	if err != nil {
		return false, fmt.Errorf("establish context: %w", err)
	}
	defer func() { _ = sc.Release() }()

	readers, err := sc.ListReaders()
	if err != nil {
		return false, fmt.Errorf("list readers: %w", err)
	}
	found := false
	for _, name := range readers {
		if name == p.target {
			found = true
			continue
		}
		if !p.ignored[name] {
			p.ignored[name] = true
			p.log.WithField("reader", name).Info("ignoring reader")
		}
	}
	if !found {
		return false, fmt.Errorf("reader %q not found", p.target)
	}
	p.log.WithField("reader", p.target).Info("watching reader")

	states := []scard.ReaderState{{Reader: p.target, CurrentState: scard.StateUnaware}}
	for {
		if ctx.Err() != nil {
			return delivered, nil
		}
		err := sc.GetStatusChange(states, p.poll)
		if errors.Is(err, scard.ErrTimeout) {
			continue
		}
		if err != nil {
			return delivered, fmt.Errorf("status change: %w", err)
		}
		st := states[0]
		if st.EventState&scard.StateChanged == 0 {
			continue
		}
		states[0].CurrentState = st.EventState &^ scard.StateChanged

		status := StatusFromFlags(st.EventState, st.Atr)
		if !p.emit(ctx, out, Event{Reader: p.target, Status: status}) {
			return delivered, nil
		}
		delivered = true
	}
}

func (p *PCSC) emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// StatusFromFlags decodes a PC/SC event state and ATR.
func StatusFromFlags(flags scard.StateFlag, atr []byte) Status {
	return Status{
		Present: flags&scard.StatePresent != 0,
		Empty:   flags&scard.StateEmpty != 0,
		ATR:     append([]byte(nil), atr...),
	}
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
