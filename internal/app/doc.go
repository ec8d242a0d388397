// Package app is the composition root for cardbridge.
//
// Run performs startup in a fixed order:
//
//  1. Load and validate the config; a config_invalid outcome is written to
//     stderr and Run returns before anything else starts
//  2. Open the rotating log file (console output is dropped in dashboard mode)
//  3. Build the state store, Prometheus registry and the notifier fan-out
//  4. Wire the capture supervisor and submit client into the card monitor
//  5. Schedule the image sweep
//  6. Start the PC/SC reader source, the monitor, the optional status endpoint
//     and the optional dashboard under one errgroup
//
// Cancelling the context, or quitting the dashboard, stops the reader source
// and the monitor. In-flight capture cycles are allowed to observe the
// cancellation, but the capture executable itself is never killed.
package app
