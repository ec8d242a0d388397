// Package logging builds the process logger: logrus text output to the
// console plus a size-rotated file under the configured log directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	timestampFormat = "2006-01-02 15:04:05"
	maxSizeMB       = 20
	maxAgeDays      = 14
)

// Options configure New.
type Options struct {
	Path    string    // log file; empty disables the file sink
	Level   string    // logrus level name; empty means info
	Console io.Writer // nil means os.Stdout; io.Discard silences the console
}

// New returns a logger writing to the console and a rotating file. The
// returned closer releases the file sink.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	})

	if opts.Path == "" {
		log.SetOutput(console)
		return log, io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:  opts.Path,
		MaxSize:   maxSizeMB,
		MaxAge:    maxAgeDays,
		Compress:  true,
		LocalTime: true,
	}
	log.SetOutput(io.MultiWriter(console, file))
	return log, file, nil
}
