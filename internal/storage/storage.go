// Package storage provides the string-keyed persistence the console keeps its
// session in. Every backend pushes a Change to its subscribers when a value
// is written by another instance (another process, another tab, another
// host), mirroring the browser's storage event: an instance never observes
// its own writes.
package storage

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidKey is returned for keys that are not safe to use as file names
var ErrInvalidKey = errors.New("invalid storage key")

// Change describes a value written by someone other than the observer
type Change struct {
	Key      string
	Value    string
	Removed  bool
	External bool
}

// Storage is a persistent string-keyed store with push change notification
type Storage interface {
	// Get returns the value for key and whether it is present
	Get(key string) (string, bool, error)
	// Set writes value under key
	Set(key, value string) error
	// Remove deletes key; removing a missing key is not an error
	Remove(key string) error
	// Subscribe registers fn for changes made by other instances and
	// returns a function that removes the subscription
	Subscribe(fn func(Change)) (unsubscribe func())
	// Close releases watchers and connections
	Close() error
}

// ValidateKey restricts keys to lowercase letters, digits, '-' and '_'
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, char := range key {
		if !((char >= 'a' && char <= 'z') ||
			(char >= '0' && char <= '9') ||
			char == '-' ||
			char == '_') {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// subscribers is the fan-out list shared by every backend
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Change)
}

func (s *subscribers) add(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func(Change))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

// notify calls every subscriber outside the lock so callbacks may read the store
func (s *subscribers) notify(change Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (s *subscribers) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
