// Package logtail reads the end of the cardbridge log file for the dashboard.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays bounded
// no matter how large the file has grown between rotations. A missing file is
// not an error: the dashboard may start before the first line is written.
//
// Parse splits a logrus text line
//
//	time="2024-06-15 12:00:00" level=info msg="card inserted" reader="ACS ACR39U ICC Reader 0"
//
// into its timestamp, level, message and remaining fields so the dashboard can
// colour it by level. Lines written by the capture executable itself are not
// in that format and come back with only Raw set.
package logtail
