// Package sweep deletes aged images from the capture image folder on a cron
// schedule.
package sweep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/cardbridge/internal/outcome"
)

// month is the fixed month length used for retention. Calendar months are
// deliberately not used.
const month = 30 * 24 * time.Hour

// MaxAge converts a retention period in months to a duration.
func MaxAge(months int) time.Duration {
	return time.Duration(months) * month
}

// Observer counts deleted files. *metrics.Metrics implements it.
type Observer interface {
	FilesSwept(n int)
}

// Sweeper removes regular files older than the retention period from Dir.
type Sweeper struct {
	Dir             string
	KeepImages      bool
	RetentionMonths int

	Log      logrus.FieldLogger
	Notify   outcome.Notifier
	Observer Observer
	Now      func() time.Time
	Remove   func(path string) error
}

// Result summarises one sweep.
type Result struct {
	Skipped bool
	Scanned int
	Deleted []string
	Failed  int
}

// Sweep performs one pass. Failures on individual files are logged, reported
// and counted without stopping the pass; only an unreadable directory fails
// the whole sweep.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	if s.KeepImages {
		return Result{Skipped: true}, nil
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return Result{}, fmt.Errorf("read image folder: %w", err)
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	maxAge := MaxAge(s.RetentionMonths)
	remove := os.Remove
	if s.Remove != nil {
		remove = s.Remove
	}

	var res Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		path := filepath.Join(s.Dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			s.fileError(path, "stat", err)
			res.Failed++
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		res.Scanned++

		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := remove(path); err != nil {
			s.fileError(path, "delete", err)
			res.Failed++
			continue
		}
		res.Deleted = append(res.Deleted, path)
		s.logger().WithField("path", path).Info("deleted file")
	}
	return res, nil
}

// Run performs one sweep and reports its outcome. It is the scheduled job.
func (s *Sweeper) Run(ctx context.Context) {
	log := s.logger()
	log.Info("scheduled sweep started")

	res, err := s.Sweep(ctx)
	switch {
	case err != nil:
		s.notify(outcome.New(outcome.SweepIOError, fmt.Sprintf("Error deleting old files: %v", err), err))
	case res.Skipped:
		log.Info("keep_images set, sweep skipped")
	default:
		if s.Observer != nil {
			s.Observer.FilesSwept(len(res.Deleted))
		}
		msg := fmt.Sprintf("Sweep removed %d of %d files", len(res.Deleted), res.Scanned)
		if res.Failed > 0 {
			msg += fmt.Sprintf(", %d failed", res.Failed)
		}
		s.notify(outcome.New(outcome.SweepCompleted, msg, nil))
	}
}

func (s *Sweeper) fileError(path, op string, err error) {
	s.logger().WithError(err).WithField("path", path).Warnf("could not %s file", op)
	s.notify(outcome.New(outcome.SweepIOError, fmt.Sprintf("Could not %s %s: %v", op, filepath.Base(path), err), err))
}

func (s *Sweeper) notify(o outcome.Outcome) {
	if s.Notify != nil {
		s.Notify.Notify(o)
	}
}

func (s *Sweeper) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
