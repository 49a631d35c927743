package profile

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long Watch waits for a burst of writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the store whenever its backing file changes, until ctx is
// done. The parent directory is watched so editors that replace the file by
// rename are handled. A failed reload keeps the previous profiles.
// onReload, when non-nil, is called after every reload attempt.
func Watch(ctx context.Context, s *Store, debounce time.Duration, onReload func(error)) error {
	path := s.Path()
	if path == "" {
		<-ctx.Done()
		return nil
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("path", abs).Msg("profile watcher error")
		case <-fire:
			fire = nil
			err := s.Reload()
			if err != nil {
				log.Error().Err(err).Str("path", abs).Msg("profile reload failed; keeping previous profiles")
			} else {
				log.Info().Str("path", abs).Int("count", len(s.All())).Msg("profiles reloaded")
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}
}
