package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns the whole file. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	seen := 0
	for scanner.Scan() {
		ring[seen%maxLines] = scanner.Text()
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if seen <= maxLines {
		return ring[:seen], nil
	}
	start := seen % maxLines
	return append(ring[start:], ring[:start]...), nil
}

// Entry is one logrus text-formatted line split into its parts. Lines that
// are not in logrus format keep only Raw.
type Entry struct {
	Raw     string
	Time    string
	Level   logrus.Level
	HasLvl  bool
	Message string
	Fields  string
}

var (
	timeField  = regexp.MustCompile(`(?:^|\s)time="([^"]*)"`)
	levelField = regexp.MustCompile(`(?:^|\s)level=(\w+)`)
	msgField   = regexp.MustCompile(`(?:^|\s)msg=("(?:[^"\\]|\\.)*"|\S+)`)
)

// Parse splits a logrus text line.
func Parse(line string) Entry {
	entry := Entry{Raw: line}

	rest := line
	if m := timeField.FindStringSubmatchIndex(rest); m != nil {
		entry.Time = rest[m[2]:m[3]]
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if m := levelField.FindStringSubmatchIndex(rest); m != nil {
		if lvl, err := logrus.ParseLevel(rest[m[2]:m[3]]); err == nil {
			entry.Level = lvl
			entry.HasLvl = true
		}
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if m := msgField.FindStringSubmatchIndex(rest); m != nil {
		raw := rest[m[2]:m[3]]
		if unquoted, err := strconv.Unquote(raw); err == nil {
			raw = unquoted
		}
		entry.Message = raw
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if entry.HasLvl {
		entry.Fields = strings.TrimSpace(rest)
	}
	return entry
}
