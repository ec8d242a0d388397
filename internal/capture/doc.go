// Package capture runs the external capture executable and turns its result
// file into a Record.
//
// # Completion Signal
//
// The executable is interactive and may stay resident after it has written
// its output, so process exit alone cannot mark completion. Capture races two
// signals and proceeds on whichever arrives first:
//
//   - the result file's modification time advancing past its value before
//     launch (debounced by a short settle period so partial writes are not
//     read)
//   - the process exiting
//
// A non-zero exit that arrives first fails the cycle with ErrProcessFailed
// and the result file is left alone. When the file wins, the process is not
// waited on further and is never killed; its exit is collected by a goroutine
// writing into a buffered channel nobody reads.
//
// The watcher observes the result file's directory rather than the file, so
// the very first run on a machine, where the file does not exist yet, is
// detected on creation.
//
// # Result Format
//
// The executable writes a JSON object with name, dob, IC, gender, race,
// add1, add2, add3, postcode, city and state. Address line one is add1 and
// add2 joined by a single space; line two is add3 as written.
package capture
