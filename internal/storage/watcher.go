package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/orgboard/internal/checksum"
)

// ChangeCallback is called when the snapshot file changes on disk and its
// checksum differs from the one this process last read or wrote.
type ChangeCallback func(sum string)

const watchDebounce = 200 * time.Millisecond

// WatchSnapshot watches the gateway's snapshot file until ctx is cancelled.
// Another process saving the chart shows up here; writes made through g
// itself are recognised by checksum and ignored.
//
// The directory is watched rather than the file because atomic writes
// replace the file's inode on every save.
func WatchSnapshot(ctx context.Context, g *FileGateway, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := g.provider.Root()
	target := filepath.Join(root, g.name)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("file", target))

	var notified string
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(watchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			sum, changed := snapshotChanged(g, logger)
			if !changed || sum == notified {
				continue
			}
			notified = sum
			logger.Debug("watcher: snapshot changed externally", slog.String("checksum", sum))
			if cb != nil {
				cb(sum)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// snapshotChanged reports whether the file on disk differs from what g last
// read or wrote. A missing file has the empty checksum.
func snapshotChanged(g *FileGateway, logger *slog.Logger) (string, bool) {
	data, err := g.provider.Read(g.name)
	sum := ""
	switch {
	case err == nil:
		sum = checksum.Sum(data)
	case errors.Is(err, os.ErrNotExist):
	default:
		logger.Warn("watcher: read failed", slog.String("file", g.name), slog.String("error", err.Error()))
		return "", false
	}
	return sum, sum != g.LastChecksum()
}
