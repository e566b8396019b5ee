package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing files
	Debounce    time.Duration // coalesce rapid create/write bursts
}

// StartWatcher emits paths of new or changed delivery notes under the roots.
// Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("source.watch.create_failed", "error", err)
		return nil, nil, err
	}

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && constants.AllowedExt(filepath.Ext(path)) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("source.watch.add_root_failed", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		var (
			mu      sync.Mutex
			timer   *time.Timer
			pending = map[string]struct{}{}
			wg      sync.WaitGroup
		)
		defer close(errCh)
		defer close(evCh)
		defer wg.Wait()
		defer func() {
			mu.Lock()
			if timer != nil && timer.Stop() {
				wg.Done()
			}
			mu.Unlock()
			if err := w.Close(); err != nil {
				logger.Warn("source.watch.close_failed", "error", err)
			}
		}()

		for _, p := range initial {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		sendPending := func() {
			defer wg.Done()
			mu.Lock()
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
				delete(pending, p)
			}
			mu.Unlock()
			for _, p := range batch {
				select {
				case evCh <- p:
				case <-ctx.Done():
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					if st, err := os.Stat(e.Name); err == nil && st.IsDir() && !IsHidden(e.Name) {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("source.watch.add_dir_failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if IsHidden(e.Name) || !constants.AllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				if timer != nil && timer.Stop() {
					wg.Done()
				}
				wg.Add(1)
				timer = time.AfterFunc(cfg.Debounce, sendPending)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("source.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
