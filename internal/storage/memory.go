package storage

import "sync"

// memoryBucket is the data shared by every Memory view opened on it
type memoryBucket struct {
	mu    sync.Mutex
	data  map[string]string
	views map[*Memory]struct{}
}

// Memory is an in-process backend. Views created with Tab share the same
// data and see each other's writes as external changes, which is how a
// single process models several browser tabs.
type Memory struct {
	bucket *memoryBucket
	subs   subscribers
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	bucket := &memoryBucket{
		data:  make(map[string]string),
		views: make(map[*Memory]struct{}),
	}
	m := &Memory{bucket: bucket}
	bucket.views[m] = struct{}{}
	return m
}

// Tab opens another view on the same data
func (m *Memory) Tab() *Memory {
	tab := &Memory{bucket: m.bucket}
	m.bucket.mu.Lock()
	m.bucket.views[tab] = struct{}{}
	m.bucket.mu.Unlock()
	return tab
}

func (m *Memory) Get(key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}
	m.bucket.mu.Lock()
	defer m.bucket.mu.Unlock()
	v, ok := m.bucket.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.bucket.mu.Lock()
	old, existed := m.bucket.data[key]
	m.bucket.data[key] = value
	others := m.othersLocked()
	m.bucket.mu.Unlock()

	if existed && old == value {
		return nil
	}
	for _, view := range others {
		view.subs.notify(Change{Key: key, Value: value, External: true})
	}
	return nil
}

func (m *Memory) Remove(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.bucket.mu.Lock()
	_, existed := m.bucket.data[key]
	delete(m.bucket.data, key)
	others := m.othersLocked()
	m.bucket.mu.Unlock()

	if !existed {
		return nil
	}
	for _, view := range others {
		view.subs.notify(Change{Key: key, Removed: true, External: true})
	}
	return nil
}

func (m *Memory) Subscribe(fn func(Change)) func() {
	return m.subs.add(fn)
}

// Close detaches the view; the shared data stays available to other views
func (m *Memory) Close() error {
	m.bucket.mu.Lock()
	delete(m.bucket.views, m)
	m.bucket.mu.Unlock()
	return nil
}

func (m *Memory) othersLocked() []*Memory {
	others := make([]*Memory, 0, len(m.bucket.views))
	for view := range m.bucket.views {
		if view != m {
			others = append(others, view)
		}
	}
	return others
}
