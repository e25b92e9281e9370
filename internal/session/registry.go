package session

import (
	"sync"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/localstate"
)

// Registry hands out one Manager per device, resuming the persisted session
// the first time a device is seen.
type Registry struct {
	mu       sync.Mutex
	managers map[string]*Manager
	local    func(deviceID string) localstate.Store
	dir      Directory
	admin    AdminAuthenticator
}

func NewRegistry(local func(deviceID string) localstate.Store, dir Directory, admin AdminAuthenticator) *Registry {
	return &Registry{
		managers: make(map[string]*Manager),
		local:    local,
		dir:      dir,
		admin:    admin,
	}
}

func (r *Registry) Get(deviceID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.managers[deviceID]; ok {
		return m
	}
	m := NewManager(r.local(deviceID), r.dir, r.admin)
	m.CheckSession()
	r.managers[deviceID] = m
	return m
}
