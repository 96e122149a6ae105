package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

type fileState struct {
	value   string
	present bool
}

// File stores each key as a file in a directory and watches the directory
// with fsnotify so writes from other processes reach subscribers without
// polling.
type File struct {
	dir     string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	known map[string]fileState

	subs      subscribers
	done      chan struct{}
	closeOnce sync.Once
}

// OpenFile opens (creating if needed) a file backend rooted at dir
func OpenFile(dir string, logger zerolog.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create storage watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch storage directory: %w", err)
	}

	f := &File{
		dir:     dir,
		logger:  logger.With().Str("component", "storage").Str("dir", dir).Logger(),
		watcher: watcher,
		known:   make(map[string]fileState),
		done:    make(chan struct{}),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || ValidateKey(entry.Name()) != nil {
			continue
		}
		if value, ok, err := f.read(entry.Name()); err == nil {
			f.known[entry.Name()] = fileState{value: value, present: ok}
		}
	}

	go f.watch()

	return f, nil
}

// Dir returns the directory backing the store
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key)
}

func (f *File) read(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (f *File) Get(key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}
	return f.read(key)
}

// Set writes through a temporary file and a rename so readers never see a
// partially written value
func (f *File) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	f.mu.Lock()
	previous := f.known[key]
	f.known[key] = fileState{value: value, present: true}
	f.mu.Unlock()

	if err := os.Rename(tmpName, f.path(key)); err != nil {
		os.Remove(tmpName)
		f.mu.Lock()
		f.known[key] = previous
		f.mu.Unlock()
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (f *File) Remove(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	previous := f.known[key]
	f.known[key] = fileState{}
	f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.mu.Lock()
		f.known[key] = previous
		f.mu.Unlock()
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (f *File) Subscribe(fn func(Change)) func() {
	return f.subs.add(fn)
}

func (f *File) Close() error {
	var err error
	f.closeOnce.Do(func() {
		err = f.watcher.Close()
		<-f.done
	})
	return err
}

func (f *File) watch() {
	defer close(f.done)

	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			f.handle(event)
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn().Err(err).Msg("Storage watcher error")
		}
	}
}

// handle compares the value on disk with the last value this instance wrote
// or reported; only a difference is an external change
func (f *File) handle(event fsnotify.Event) {
	key := filepath.Base(event.Name)
	if strings.HasPrefix(key, ".") || ValidateKey(key) != nil {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	value, present, err := f.read(key)
	if err != nil {
		f.logger.Warn().Err(err).Str("key", key).Msg("Failed to read changed key")
		return
	}

	current := fileState{value: value, present: present}
	f.mu.Lock()
	if f.known[key] == current {
		f.mu.Unlock()
		return
	}
	f.known[key] = current
	f.mu.Unlock()

	f.logger.Debug().Str("key", key).Bool("removed", !present).Msg("External storage change")
	f.subs.notify(Change{Key: key, Value: value, Removed: !present, External: true})
}
