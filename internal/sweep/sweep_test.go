package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/cardbridge/internal/config"
	"github.com/five82/cardbridge/internal/outcome"
)

var sweepNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o644))
	mt := sweepNow.Add(-age)
	require.NoError(t, os.Chtimes(path, mt, mt))
	return path
}

func newSweeper(dir string, keep bool, months int, rec *outcome.Recorder) *Sweeper {
	logger, _ := test.NewNullLogger()
	return &Sweeper{
		Dir:             dir,
		KeepImages:      keep,
		RetentionMonths: months,
		Log:             logger,
		Notify:          rec,
		Now:             func() time.Time { return sweepNow },
	}
}

func TestSweep_DeletesFilesOlderThanRetention(t *testing.T) {
	dir := t.TempDir()
	old := writeAged(t, dir, "old.jpg", 32*24*time.Hour)
	recent := writeAged(t, dir, "recent.jpg", 10*24*time.Hour)

	res, err := newSweeper(dir, false, 1, nil).Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{old}, res.Deleted)
	assert.Equal(t, 2, res.Scanned)
	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
}

func TestSweep_UsesFixedThirtyDayMonth(t *testing.T) {
	dir := t.TempDir()
	// One month is 30 days: 31 days old is past it, 29 days is not.
	over := writeAged(t, dir, "over.jpg", 31*24*time.Hour)
	under := writeAged(t, dir, "under.jpg", 29*24*time.Hour)

	_, err := newSweeper(dir, false, 1, nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, over)
	assert.FileExists(t, under)
	assert.Equal(t, 90*24*time.Hour, MaxAge(3))
}

func TestSweep_KeepImagesDeletesNothing(t *testing.T) {
	dir := t.TempDir()
	ancient := writeAged(t, dir, "ancient.jpg", 5*365*24*time.Hour)

	res, err := newSweeper(dir, true, 1, nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.FileExists(t, ancient)
}

func TestSweep_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "archive")
	require.NoError(t, os.Mkdir(sub, 0o755))
	mt := sweepNow.Add(-400 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(sub, mt, mt))

	res, err := newSweeper(dir, false, 1, nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Deleted)
	assert.DirExists(t, sub)
}

func TestRun_ReportsMissingFolder(t *testing.T) {
	var rec outcome.Recorder
	newSweeper(filepath.Join(t.TempDir(), "absent"), false, 1, &rec).Run(context.Background())

	require.Equal(t, []outcome.Kind{outcome.SweepIOError}, rec.Kinds())
	assert.Contains(t, rec.Outcomes()[0].Message, "Error deleting old files")
}

func TestRun_ReportsCompletion(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "old.jpg", 100*24*time.Hour)
	var rec outcome.Recorder

	var swept countingObserver
	s := newSweeper(dir, false, 1, &rec)
	s.Observer = &swept

	s.Run(context.Background())

	require.Equal(t, []outcome.Kind{outcome.SweepCompleted}, rec.Kinds())
	assert.Equal(t, "Sweep removed 1 of 1 files", rec.Outcomes()[0].Message)
	assert.Equal(t, int64(1), swept.Load())
}

type countingObserver struct{ atomic.Int64 }

func (c *countingObserver) FilesSwept(n int) { c.Add(int64(n)) }

func TestRun_SkippedSweepReportsNothing(t *testing.T) {
	var rec outcome.Recorder
	newSweeper(t.TempDir(), true, 1, &rec).Run(context.Background())
	assert.Empty(t, rec.Kinds())
}

func TestScheduler_RunsJob(t *testing.T) {
	schedule, err := config.ParseSchedule("@every 10ms")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	var runs atomic.Int32
	s := Start(schedule, func() { runs.Add(1) }, logger)
	assert.False(t, s.Next().IsZero())

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
	<-s.Stop().Done()
}

func TestSweep_DeleteFailureDoesNotStopPass(t *testing.T) {
	dir := t.TempDir()
	locked := writeAged(t, dir, "a-locked.jpg", 60*24*time.Hour)
	old := writeAged(t, dir, "b-old.jpg", 60*24*time.Hour)
	var rec outcome.Recorder

	s := newSweeper(dir, false, 1, &rec)
	s.Remove = func(path string) error {
		if path == locked {
			return errors.New("sharing violation")
		}
		return os.Remove(path)
	}

	res, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{old}, res.Deleted)
	assert.FileExists(t, locked)
	assert.NoFileExists(t, old)
	require.Equal(t, []outcome.Kind{outcome.SweepIOError}, rec.Kinds())
	assert.Contains(t, rec.Outcomes()[0].Message, "sharing violation")
}

func TestRun_CompletionCountsFailures(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "a.jpg", 60*24*time.Hour)
	writeAged(t, dir, "b.jpg", 60*24*time.Hour)
	var rec outcome.Recorder

	s := newSweeper(dir, false, 1, &rec)
	s.Remove = func(path string) error {
		if filepath.Base(path) == "a.jpg" {
			return errors.New("access denied")
		}
		return os.Remove(path)
	}
	s.Run(context.Background())

	assert.Equal(t, []outcome.Kind{outcome.SweepIOError, outcome.SweepCompleted}, rec.Kinds())
	assert.Equal(t, "Sweep removed 1 of 2 files, 1 failed", rec.Outcomes()[1].Message)
}
