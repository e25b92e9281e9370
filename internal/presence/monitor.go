// Package presence periodically reconciles the live trip records, since a
// driver whose app was killed never stops their trip.
package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/fleet"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/livetrip"
)

const (
	reconcileTimeout = 10 * time.Second
	defaultInterval  = 30 * time.Second
)

// Snapshot is the presence count published after every reconciliation.
type Snapshot struct {
	Count   int                 `json:"count"`
	Members []livetrip.LiveTrip `json:"members"`
	Stale   []string            `json:"stale"`
	At      time.Time           `json:"at"`
}

type Monitor struct {
	store    docstore.Store
	filter   livetrip.Filter
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int
	latest    Snapshot
	hasLatest bool
}

func NewMonitor(store docstore.Store, staleAfter, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		store:     store,
		filter:    livetrip.Filter{StaleAfter: staleAfter},
		interval:  interval,
		now:       time.Now,
		listeners: make(map[int]func(Snapshot)),
	}
}

// OnUpdate registers fn for every future snapshot. The returned func removes it.
func (m *Monitor) OnUpdate(fn func(Snapshot)) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Latest returns the last published snapshot.
func (m *Monitor) Latest() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.hasLatest
}

// Reconcile re-reads every live record, rewrites the online flag of active
// records from their heartbeat age and publishes the count of present drivers.
// The active flag is left alone.
func (m *Monitor) Reconcile(ctx context.Context) (Snapshot, error) {
	docs, err := m.store.List(ctx, livetrip.Collection)
	if err != nil {
		return Snapshot{}, err
	}

	now := m.now()
	snap := Snapshot{Members: []livetrip.LiveTrip{}, Stale: []string{}, At: now}
	for _, d := range docs {
		t := livetrip.FromDocument(d)
		if !t.Active {
			continue
		}
		online := !m.filter.Stale(t, now)
		if online != t.Online {
			err := m.store.MergeWrite(ctx, livetrip.Collection, d.ID, map[string]any{livetrip.FieldOnline: online})
			if err != nil {
				log.Printf("presence: mark %s online=%v: %v", d.ID, online, err)
			} else {
				t.Online = online
			}
		}
		if !online {
			snap.Stale = append(snap.Stale, t.DriverID)
			continue
		}
		snap.Members = append(snap.Members, t)
	}
	fleet.SortTrips(snap.Members)
	snap.Count = len(snap.Members)

	m.mu.Lock()
	m.latest, m.hasLatest = snap, true
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	return snap, nil
}

// Run reconciles immediately and then on every interval until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.reconcileOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) reconcileOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()
	if _, err := m.Reconcile(ctx); err != nil && ctx.Err() == nil {
		log.Printf("presence: reconcile: %v", err)
	}
}
