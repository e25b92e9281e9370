// Package localstate keeps the small amount of per-device state needed to
// resume a session after reload. It is never authoritative for trip state.
package localstate

import "sync"

type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
}

type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.values, k)
	}
	m.mu.Unlock()
	return nil
}

// Devices hands out one in-process Memory per device.
type Devices struct {
	mu      sync.Mutex
	devices map[string]*Memory
}

func NewDevices() *Devices {
	return &Devices{devices: make(map[string]*Memory)}
}

func (d *Devices) For(namespace string) Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.devices[namespace]
	if !ok {
		m = NewMemory()
		d.devices[namespace] = m
	}
	return m
}
