package connector

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agenthands/quarry/internal/core/model"
)

// Watcher feeds export-directory records into a handler on a refresh
// interval, with filesystem events triggering an early rescan. Every upsert
// downstream is idempotent, so rescanning an unchanged directory is safe; the
// event path just shortens the latency between export and graph.
type Watcher struct {
	Dir      string
	Interval time.Duration
	Load     func(dir string) ([]model.SourceRecord, error)
}

func NewWatcher(dir string, interval time.Duration, load func(string) ([]model.SourceRecord, error)) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if load == nil {
		load = LoadBookStackDir
	}
	return &Watcher{Dir: dir, Interval: interval, Load: load}
}

// Run scans immediately, then on every interval tick and on every .json
// write event, until ctx is cancelled. Scan errors are logged and the loop
// continues; a broken cycle must not kill the watcher.
func (w *Watcher) Run(ctx context.Context, handle func(context.Context, model.SourceRecord)) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.Dir); err != nil {
		return err
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	scan := func() {
		records, err := w.Load(w.Dir)
		if err != nil {
			log.Printf("Warning: scan of %s failed: %v", w.Dir, err)
			return
		}
		for _, rec := range records {
			handle(ctx, rec)
		}
	}

	scan()

	// Debounce burst writes: an exporter dropping hundreds of files should
	// trigger one rescan, not hundreds.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			scan()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && pending == nil {
				pending = time.After(2 * time.Second)
			}
		case <-pending:
			pending = nil
			scan()
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Warning: watcher error: %v", err)
		}
	}
}
