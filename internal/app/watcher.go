package app

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// storageWatcher watches the SQLite file for writes made by a standalone
// MCP process and tells the frontend to reload its connection list.
type storageWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func watchStorage(ctx context.Context, dbPath string) (*storageWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dbPath); err != nil {
		w.Close()
		return nil, err
	}

	sw := &storageWatcher{watcher: w, done: make(chan struct{})}
	go sw.run(ctx, dbPath)
	return sw, nil
}

func (sw *storageWatcher) run(ctx context.Context, dbPath string) {
	// SQLite writes arrive in bursts (WAL + db file); debounce them.
	var pending *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-sw.done:
			return
		case <-fire:
			wailsRuntime.EventsEmit(ctx, "connections:changed")
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(event.Name, dbPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			wailsRuntime.LogDebugf(ctx, "Storage watcher: %v", err)
		}
	}
}

func (sw *storageWatcher) stop() {
	close(sw.done)
	sw.watcher.Close()
}
