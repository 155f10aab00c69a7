package security

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the permission and limit stores when their backing
// files are edited out-of-band. A reload that fails schema validation
// is rejected, the previous state is kept, and the rejection is
// audited.
type Watcher struct {
	perms   *PermissionStore
	tracker *ResourceTracker
	audit   *AuditLog

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher over the two config stores
func NewWatcher(perms *PermissionStore, tracker *ResourceTracker, audit *AuditLog) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		perms:   perms,
		tracker: tracker,
		audit:   audit,
		watcher: fsw,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching. Directories are watched rather than the files
// themselves so atomic rename-replace writes are observed.
func (w *Watcher) Start() error {
	dirs := map[string]struct{}{
		filepath.Dir(w.perms.Path()):   {},
		filepath.Dir(w.tracker.Path()): {},
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.loop()

	log.Info().Msg("Security config watcher started")

	return nil
}

// Stop stops watching and waits for the event loop to drain
func (w *Watcher) Stop() error {
	close(w.stopCh)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		pending = make(map[string]struct{})
	)
	fire := make(chan struct{}, 1)

	schedule := func(path string) {
		pending[path] = struct{}{}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			switch event.Name {
			case w.perms.Path(), w.tracker.Path():
				schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config watcher error")

		case <-fire:
			paths := pending
			pending = make(map[string]struct{})
			for path := range paths {
				w.reload(path)
			}
		}
	}
}

func (w *Watcher) reload(path string) {
	var err error
	switch path {
	case w.perms.Path():
		err = w.perms.Reload()
	case w.tracker.Path():
		err = w.tracker.Reload()
	}

	event := SecurityEvent{
		Type:    EventConfigChange,
		Outcome: OutcomeAllow,
		Details: map[string]interface{}{
			"action": "external_reload",
			"path":   path,
		},
	}

	if err != nil {
		log.Warn().
			Str("path", path).
			Err(err).
			Msg("Rejected external config change, keeping previous state")
		event.Outcome = OutcomeDeny
		event.Details["error"] = err.Error()
	} else {
		log.Info().Str("path", path).Msg("Reloaded security config after external change")
	}

	if auditErr := w.audit.Append(context.Background(), event); auditErr != nil {
		log.Error().Err(auditErr).Msg("Failed to audit external config change")
	}
}
