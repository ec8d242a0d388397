// Package ui provides the optional terminal dashboard for cardbridge.
//
// The dashboard is a Bubble Tea program that polls the state store once a
// second and tails the cardbridge log file. It is read-only: the monitor keeps
// running underneath whether or not anyone is watching.
//
// # Layout
//
//   - Header: title, reader connectivity, monitored reader name
//   - Status: card state (with a spinner while a capture is in flight),
//     success and failure totals, last sweep time
//   - Recent: the newest outcomes, colored by kind
//   - Log: the tail of cardbridge.log, colored by level, scrollable
//   - Footer: short key help
//
// # Keys
//
//   - q, ctrl+c: quit
//   - T: cycle Nightfox, Kanagawa and Slate; the choice is saved to prefs
//   - space: toggle log follow
//   - j/k, g/G, ctrl+d/ctrl+u: scroll the log
//   - ?: full help
package ui
