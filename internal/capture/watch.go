package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// fileWatcher signals once a file's modification time moves past the value
// it had when watching started. The parent directory is watched, so a file
// that does not exist yet is reported when it is first created.
type fileWatcher struct {
	path     string
	baseline time.Time
	settle   time.Duration
	log      logrus.FieldLogger

	w       *fsnotify.Watcher
	touched chan struct{} // closed on the first qualifying write, before settling
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func watchFile(path string, settle time.Duration, log logrus.FieldLogger) (*fileWatcher, error) {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	fw := &fileWatcher{
		path:     path,
		baseline: modTime(path),
		settle:   settle,
		log:      log,
		w:        w,
		touched:  make(chan struct{}),
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	fw.wg.Add(1)
	go fw.loop()
	return fw, nil
}

// Changed is closed once a qualifying modification has settled.
func (fw *fileWatcher) Changed() <-chan struct{} {
	return fw.changed
}

// Modified reports whether the file has moved past its baseline, whether or
// not the event has been delivered yet.
func (fw *fileWatcher) Modified() bool {
	select {
	case <-fw.touched:
		return true
	default:
	}
	return modTime(fw.path).After(fw.baseline)
}

// Close stops watching. It is safe to call more than once.
func (fw *fileWatcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		err = fw.w.Close()
		fw.wg.Wait()
	})
	return err
}

func (fw *fileWatcher) loop() {
	defer fw.wg.Done()

	var timer *time.Timer
	var settled <-chan time.Time
	touched := false
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Chmod) {
				continue
			}
			if !modTime(fw.path).After(fw.baseline) {
				continue
			}
			if !touched {
				touched = true
				close(fw.touched)
			}
			if fw.settle <= 0 {
				close(fw.changed)
				return
			}
			if timer == nil {
				timer = time.NewTimer(fw.settle)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(fw.settle)
			}
			settled = timer.C
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			fw.log.WithError(err).Warn("result file watcher error")
		case <-settled:
			close(fw.changed)
			return
		}
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		// Missing and unreadable files both count as never modified.
		return time.Time{}
	}
	return info.ModTime()
}
