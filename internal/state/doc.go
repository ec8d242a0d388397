// Package state provides the shared snapshot that operator surfaces read.
//
// # Overview
//
// The monitor, capture cycles and the sweeper write into a Store; the
// dashboard and the status endpoint read copies of it. Store sits in the
// outcome fan-out, so every reported outcome lands in a bounded, newest-first
// history without the producers knowing who reads it.
//
//	Producers:                      Consumers:
//	┌──────────────────┐           ┌──────────────────┐
//	│ monitor          │           │ ui (tick)        │
//	│  SetCardInserted │           │                  │
//	│ outcome fan-out  │──(mutex)─→│ store.Snapshot() │
//	│  Notify()        │           │ server /status   │
//	└──────────────────┘           └──────────────────┘
//
// Snapshot returns a copy, so readers can hold it across renders without
// locking. The presence mirror is informational; the authoritative flag lives
// in the monitor and is never read back from here.
package state
