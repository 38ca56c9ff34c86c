// Package storetest provides an in-memory Backend with failure injection for tests.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/booklyapp/bookly/internal/store"
)

// ErrInjected is returned by writes while failures are enabled.
var ErrInjected = errors.New("injected write failure")

// Memory is a map-backed store.Backend.
type Memory struct {
	mu       sync.Mutex
	data     map[string][]byte
	failSets bool
	failKeys map[string]bool
	writes   int
}

// NewMemory returns an empty backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte), failKeys: make(map[string]bool)}
}

// FailWrites makes every Set and Delete fail until called with false.
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSets = fail
}

// FailKey makes Set and Delete fail for key only, until called with false.
func (m *Memory) FailKey(key string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fail {
		m.failKeys[key] = true
	} else {
		delete(m.failKeys, key)
	}
}

func (m *Memory) failing(key string) bool {
	return m.failSets || m.failKeys[key]
}

// Writes returns the number of successful writes.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Raw returns the stored bytes for key without going through a repository.
func (m *Memory) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return bytes.Clone(v), ok
}

// Put stores value directly, bypassing failure injection. It simulates another writer.
func (m *Memory) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = bytes.Clone(value)
}

// Get implements store.Backend.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Set implements store.Backend.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing(key) {
		return store.ErrWriteFailed.WithCause(ErrInjected)
	}
	m.data[key] = bytes.Clone(value)
	m.writes++
	return nil
}

// Delete implements store.Backend.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing(key) {
		return store.ErrWriteFailed.WithCause(ErrInjected)
	}
	delete(m.data, key)
	m.writes++
	return nil
}

// Keys implements store.Backend.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements store.Backend.
func (m *Memory) Close() error { return nil }
