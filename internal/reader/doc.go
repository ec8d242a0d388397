// Package reader turns smart-card reader hardware into a stream of events.
//
// A Source delivers Event values on a channel: either a decoded Status (the
// present/empty bits of the PC/SC state mask plus the card's ATR) or a
// transport error. The PCSC source watches exactly one named reader; readers
// with any other name are logged once and never opened.
//
// Transport failures (service stopped, reader unplugged, target not attached
// yet) are delivered as error events, after which the source tears down its
// PC/SC context and reconnects with exponential backoff capped at 30 seconds.
package reader
