package reader

import (
	"context"
	"fmt"
)

// Status is one decoded reader status report.
type Status struct {
	Present bool   // a card is physically in the slot
	Empty   bool   // the slot reports no card
	ATR     []byte // answer-to-reset of the card, if any
}

// Valid reports whether the ATR identifies a card. An absent ATR, or one made
// only of zero bytes, marks an unreadable or unsupported card.
func (s Status) Valid() bool {
	for _, b := range s.ATR {
		if b != 0 {
			return true
		}
	}
	return false
}

// String renders the status for logs.
func (s Status) String() string {
	return fmt.Sprintf("present=%t empty=%t atr=% X", s.Present, s.Empty, s.ATR)
}

// Event is either a status report or a transport error for one reader.
type Event struct {
	Reader string
	Status Status
	Err    error
}

// Source delivers reader events until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}
