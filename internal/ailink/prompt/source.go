package prompt

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Source holds the active system prompt and swaps it atomically on reload.
type Source struct {
	path    string
	current atomic.Pointer[Prompt]
}

// NewSource loads the prompt at path (or the embedded default when empty).
func NewSource(path string) (*Source, error) {
	p, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	s := &Source{path: path}
	s.current.Store(p)
	return s, nil
}

// StaticSource wraps an already loaded prompt.
func StaticSource(p *Prompt) *Source {
	s := &Source{}
	s.current.Store(p)
	return s
}

// Current returns the active prompt.
func (s *Source) Current() *Prompt {
	if s == nil {
		return nil
	}
	return s.current.Load()
}

// System returns the active system prompt text.
func (s *Source) System() string {
	return s.Current().System()
}

// Path returns the file backing the source, or "" for the embedded default.
func (s *Source) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Reload re-reads the backing file. On failure the previous prompt stays active.
func (s *Source) Reload() (*Prompt, error) {
	if s == nil {
		return nil, errors.New("prompt source not configured")
	}
	p, err := Resolve(s.path)
	if err != nil {
		return s.Current(), err
	}
	s.current.Store(p)
	return p, nil
}

// Watch reloads the prompt whenever its file is written or replaced, until
// ctx is done. onReload receives every reload outcome and may be nil.
// Watching the embedded default is a no-op that blocks until ctx is done.
func (s *Source) Watch(ctx context.Context, onReload func(*Prompt, error)) error {
	if s == nil {
		return errors.New("prompt source not configured")
	}
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompt watcher: %w", err)
	}
	defer watcher.Close() // nolint:errcheck // best-effort cleanup

	target := filepath.Clean(s.path)
	// Editors often replace files via rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching prompt dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p, err := s.Reload()
			if onReload != nil {
				onReload(p, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("prompt watcher error: %w", err)
		}
	}
}
