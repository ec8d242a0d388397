package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrProcessFailed reports that the capture executable could not start or
	// exited with a non-zero status before the result file changed.
	ErrProcessFailed = errors.New("capture process failed")

	// ErrResultParse reports an unreadable or malformed result file.
	ErrResultParse = errors.New("result file unreadable")
)

const defaultSettle = 250 * time.Millisecond

// Spec describes one launch of the capture executable.
type Spec struct {
	Path   string
	Args   []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Process is a started capture executable.
type Process interface {
	Wait() error
}

// Launcher starts capture executables.
type Launcher interface {
	Launch(spec Spec) (Process, error)
}

// ExecLauncher starts real operating-system processes.
type ExecLauncher struct{}

// Launch implements Launcher.
func (ExecLauncher) Launch(spec Spec) (Process, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Options configure a Supervisor.
type Options struct {
	Executable string
	Args       []string
	WorkingDir string
	ResultFile string

	// Settle is the quiet period after the last qualifying write before the
	// result is read. Zero uses the default; negative disables it.
	Settle time.Duration

	// Console streams handed to the executable. Nil streams are left
	// unconnected.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Launcher Launcher
	Log      logrus.FieldLogger
}

// Supervisor runs one capture cycle at a time on behalf of the monitor.
type Supervisor struct {
	opts Options
}

// NewSupervisor returns a Supervisor. The executable inherits the process
// console unless other streams are supplied.
func NewSupervisor(opts Options) *Supervisor {
	if opts.Launcher == nil {
		opts.Launcher = ExecLauncher{}
	}
	if opts.Settle == 0 {
		opts.Settle = defaultSettle
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Supervisor{opts: opts}
}

// InheritConsole wires the executable to this process's terminal.
func InheritConsole(opts *Options) {
	opts.Stdin = os.Stdin
	opts.Stdout = os.Stdout
	opts.Stderr = os.Stderr
}

// Capture launches the executable and waits for whichever comes first: the
// result file changing, or the process exiting. A non-zero exit fails with
// ErrProcessFailed without touching the result file, unless the file had
// already been modified, in which case the result is read. A change to the
// result file wins even while the process is still running; the process is
// then left to finish on its own and is never killed.
func (s *Supervisor) Capture(ctx context.Context) (Record, error) {
	log := s.opts.Log.WithField("result_file", s.opts.ResultFile)

	watcher, err := watchFile(s.opts.ResultFile, s.opts.Settle, s.opts.Log)
	if err != nil {
		return Record{}, fmt.Errorf("watch result file: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	spec := Spec{
		Path:   resolveExecutable(s.opts.WorkingDir, s.opts.Executable),
		Args:   s.opts.Args,
		Dir:    s.opts.WorkingDir,
		Stdin:  s.opts.Stdin,
		Stdout: s.opts.Stdout,
		Stderr: s.opts.Stderr,
	}
	proc, err := s.opts.Launcher.Launch(spec)
	if err != nil {
		return Record{}, fmt.Errorf("%w: start %s: %v", ErrProcessFailed, spec.Path, err)
	}
	log.WithField("exec", spec.Path).Debug("capture process started")

	// Buffered so the waiter can finish after losing the race.
	exited := make(chan error, 1)
	go func() { exited <- proc.Wait() }()

	select {
	case <-watcher.Changed():
		log.Debug("result file updated")
	case err := <-exited:
		if err != nil {
			// The write came first; the settle window no longer matters once
			// the writer is gone.
			if watcher.Modified() {
				log.WithError(err).Debug("capture process exited after updating result file")
				break
			}
			return Record{}, fmt.Errorf("%w: %v", ErrProcessFailed, err)
		}
		log.Debug("capture process exited cleanly")
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}

	return ReadResult(s.opts.ResultFile)
}

// resolveExecutable prefers a file of that name in the working directory and
// otherwise leaves name for PATH lookup.
func resolveExecutable(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	candidate := filepath.Join(dir, name)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return name
}
