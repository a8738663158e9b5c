package assets

import (
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

// Debounce window for filesystem churn. Shader compilers tend to write the
// binary and the manifest in quick succession; one event covers both.
const watchDebounce = 250 * time.Millisecond

// Watcher observes the shader directory and fires
// EVENT_CODE_SHADERS_CHANGED after writes settle.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func WatchShaders(dir string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fsWatcher,
		done:    make(chan struct{}),
	}
	go w.run()
	core.LogInfo("Watching %s for shader changes.", dir)
	return w, nil
}

func (w *Watcher) run() {
	var debounce *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".spv") && !strings.HasSuffix(event.Name, ".toml") {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
				debounceCh = debounce.C
			} else {
				debounce.Reset(watchDebounce)
			}
		case <-debounceCh:
			debounce = nil
			debounceCh = nil
			core.LogInfo("Shader change detected.")
			core.EventFire(core.EVENT_CODE_SHADERS_CHANGED, w, core.EventContext{})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("shader watcher: %v", err)
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
