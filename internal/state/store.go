package state

import (
	"sync"
	"time"

	"github.com/five82/cardbridge/internal/outcome"
)

// historyLimit bounds the number of outcomes kept for display.
const historyLimit = 50

// Snapshot is a point-in-time view of the bridge for operator surfaces.
type Snapshot struct {
	Reader          string            `json:"reader"`
	ReaderConnected bool              `json:"reader_connected"`
	ReaderError     string            `json:"reader_error,omitempty"`
	CardInserted    bool              `json:"card_inserted"`
	Capturing       bool              `json:"capturing"`
	Recent          []outcome.Outcome `json:"recent"` // newest first
	Succeeded       int               `json:"succeeded"`
	Failed          int               `json:"failed"`
	LastSweep       time.Time         `json:"last_sweep"`
	LastUpdated     time.Time         `json:"last_updated"`
}

// LastOutcome returns the newest recorded outcome, if any.
func (s Snapshot) LastOutcome() (outcome.Outcome, bool) {
	if len(s.Recent) == 0 {
		return outcome.Outcome{}, false
	}
	return s.Recent[0], true
}

// Store coordinates concurrent updates to the snapshot. The monitor, capture
// cycles, the sweeper and the dashboard all touch it from different goroutines.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Ensure Store can sit in the notifier fan-out.
var _ outcome.Notifier = (*Store)(nil)

// SetReader records the monitored reader's name.
func (s *Store) SetReader(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Reader = name
	s.snapshot.LastUpdated = time.Now()
}

// ReaderSeen marks the reader as delivering status events again.
func (s *Store) ReaderSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.ReaderConnected = true
	s.snapshot.ReaderError = ""
	s.snapshot.LastUpdated = time.Now()
}

// SetCardInserted mirrors the monitor's presence flag.
func (s *Store) SetCardInserted(inserted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.CardInserted = inserted
	s.snapshot.LastUpdated = time.Now()
}

// SetCapturing updates only the capture-in-flight flag.
func (s *Store) SetCapturing(capturing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Capturing = capturing
	s.snapshot.LastUpdated = time.Now()
}

// Notify records an outcome. It implements outcome.Notifier.
func (s *Store) Notify(o outcome.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := make([]outcome.Outcome, 0, min(len(s.snapshot.Recent)+1, historyLimit))
	recent = append(recent, o)
	for _, prev := range s.snapshot.Recent {
		if len(recent) == historyLimit {
			break
		}
		recent = append(recent, prev)
	}
	s.snapshot.Recent = recent

	switch {
	case o.Kind == outcome.SubmissionSucceeded:
		s.snapshot.Succeeded++
	case o.Kind.Cycle():
		s.snapshot.Failed++
	case o.Kind == outcome.ReaderTransportError:
		s.snapshot.ReaderConnected = false
		s.snapshot.ReaderError = o.Message
	case o.Kind == outcome.SweepCompleted:
		s.snapshot.LastSweep = o.At
	}
	s.snapshot.LastUpdated = time.Now()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Recent = cloneOutcomes(s.snapshot.Recent)
	return snap
}

func cloneOutcomes(items []outcome.Outcome) []outcome.Outcome {
	if len(items) == 0 {
		return nil
	}
	dup := make([]outcome.Outcome, len(items))
	copy(dup, items)
	return dup
}
