// Package monitor implements the card presence state machine.
//
// # States
//
//	            present, valid ATR
//	   ┌──────┐ ───────────────────→ ┌────────┐
//	   │ Idle │                      │ Active │
//	   └──────┘ ←─────────────────── └────────┘
//	                 slot empty
//
// A present status while Idle flips the flag to Active before anything else
// happens, so later status events for the same physical insertion cannot
// start a second cycle. An empty or all-zero ATR aborts the transition and
// reports invalid_card. The slot-empty check runs after the insertion guard
// on every status event.
//
// # Capture Cycles
//
// A qualifying insertion starts a cycle on its own goroutine: capture, then
// one submission. Every failure, including a panic, becomes an outcome; the
// monitor keeps handling events meanwhile. Removing the card does not cancel
// the cycle and the capture executable is never killed, so a quick
// remove-and-reinsert can leave two cycles in flight.
//
// Reader transport errors are reported and leave the presence flag alone.
package monitor
