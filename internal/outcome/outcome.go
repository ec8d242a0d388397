// Package outcome classifies the results of insertion cycles, submissions,
// reader errors and retention sweeps, and fans them out to whoever surfaces
// them to the operator.
package outcome

import (
	"sync"
	"time"
)

// Kind names one branch of the outcome taxonomy.
type Kind string

const (
	ConfigInvalid              Kind = "config_invalid"
	InvalidCard                Kind = "invalid_card"
	ProcessFailed              Kind = "process_failed"
	ResultParseError           Kind = "result_parse_error"
	SubmissionFailed           Kind = "submission_failed"
	SubmissionRejected         Kind = "submission_rejected"
	SubmissionApplicationError Kind = "submission_application_error"
	SubmissionSucceeded        Kind = "submission_succeeded"
	InsertionError             Kind = "insertion_error"
	ReaderTransportError       Kind = "reader_transport_error"
	SweepIOError               Kind = "sweep_io_error"
	SweepCompleted             Kind = "sweep_completed"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{
	ConfigInvalid,
	InvalidCard,
	ProcessFailed,
	ResultParseError,
	SubmissionFailed,
	SubmissionRejected,
	SubmissionApplicationError,
	SubmissionSucceeded,
	InsertionError,
	ReaderTransportError,
	SweepIOError,
	SweepCompleted,
}

// Success reports whether the kind represents a good result.
func (k Kind) Success() bool {
	return k == SubmissionSucceeded || k == SweepCompleted
}

// Cycle reports whether the kind ends an insertion cycle, as opposed to a
// background sweep or a reader transport problem.
func (k Kind) Cycle() bool {
	switch k {
	case InvalidCard, ProcessFailed, ResultParseError, SubmissionFailed,
		SubmissionRejected, SubmissionApplicationError, SubmissionSucceeded, InsertionError:
		return true
	}
	return false
}

// Outcome is one classified result with a message fit for the operator.
type Outcome struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	At      time.Time `json:"at"`
}

// New builds an outcome stamped with the current time.
func New(kind Kind, message string, err error) Outcome {
	return Outcome{Kind: kind, Message: message, Err: err, At: time.Now()}
}

// Notifier receives every outcome. Implementations must be safe for
// concurrent use; capture cycles and sweeps report from their own goroutines.
type Notifier interface {
	Notify(Outcome)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Outcome)

// Notify calls f(o).
func (f NotifierFunc) Notify(o Outcome) { f(o) }

// Fanout delivers each outcome to every notifier in order.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(o Outcome) {
	for _, n := range f {
		if n != nil {
			n.Notify(o)
		}
	}
}

// Recorder keeps every outcome it receives. Tests use it as a Notifier.
type Recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// Notify implements Notifier.
func (r *Recorder) Notify(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns a copy of everything recorded so far.
func (r *Recorder) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := make([]Outcome, len(r.outcomes))
	copy(dup, r.outcomes)
	return dup
}

// Kinds returns the kinds recorded so far, in order.
func (r *Recorder) Kinds() []Kind {
	outcomes := r.Outcomes()
	kinds := make([]Kind, len(outcomes))
	for i, o := range outcomes {
		kinds[i] = o.Kind
	}
	return kinds
}
