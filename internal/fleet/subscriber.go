// Package fleet keeps passengers and the admin dashboard in sync with the
// live trips of every driver.
package fleet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/livetrip"
)

type View string

const (
	ViewPassenger View = "passenger"
	ViewAdmin     View = "admin"
)

// FilterFor returns the record filter of a view. The admin view also requires
// the heartbeat-derived online flag.
func FilterFor(view View, staleAfter time.Duration) livetrip.Filter {
	return livetrip.Filter{RequireOnline: view == ViewAdmin, StaleAfter: staleAfter}
}

type listener struct {
	mu       sync.Mutex
	closed   bool
	seq      uint64
	onChange func([]livetrip.LiveTrip)
}

// deliver skips lists older than one already handed over, so a late catch-up
// copy never overwrites a newer change.
func (l *listener) deliver(seq uint64, trips []livetrip.LiveTrip) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || seq <= l.seq {
		return
	}
	l.seq = seq
	l.onChange(trips)
}

// Subscriber shares one store subscription between every listener of a view
// and hands each of them the complete filtered, ordered list on every change.
type Subscriber struct {
	store  docstore.Store
	filter livetrip.Filter
	now    func() time.Time

	startMu   sync.Mutex
	mu        sync.Mutex
	unsub     docstore.Unsubscribe
	listeners map[int]*listener
	nextID    int
	latest    []livetrip.LiveTrip
	latestSeq uint64
	hasLatest bool
}

func NewSubscriber(store docstore.Store, filter livetrip.Filter) *Subscriber {
	return &Subscriber{
		store:     store,
		filter:    filter,
		now:       time.Now,
		listeners: make(map[int]*listener),
	}
}

// SubscribeActiveTrips registers onChange. The first listener opens the store
// subscription; later ones reuse it and immediately receive the current list.
func (s *Subscriber) SubscribeActiveTrips(onChange func([]livetrip.LiveTrip)) (docstore.Unsubscribe, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	l := &listener{onChange: onChange}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	running := s.unsub != nil
	latest, seq, has := s.latest, s.latestSeq, s.hasLatest
	s.mu.Unlock()

	if !running {
		unsub, err := s.store.Subscribe(livetrip.Collection, nil, s.handle)
		if err != nil {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
			return nil, err
		}
		s.mu.Lock()
		s.unsub = unsub
		s.mu.Unlock()
	} else if has {
		l.deliver(seq, latest)
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id, l) })
	}, nil
}

func (s *Subscriber) remove(id int, l *listener) {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	s.startMu.Lock()
	defer s.startMu.Unlock()
	s.mu.Lock()
	delete(s.listeners, id)
	var unsub docstore.Unsubscribe
	if len(s.listeners) == 0 && s.unsub != nil {
		unsub = s.unsub
		s.unsub = nil
		s.latest, s.hasLatest = nil, false
	}
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Listeners reports how many callbacks share the store subscription.
func (s *Subscriber) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Snapshot returns the current list, reading the store when nobody is
// subscribed.
func (s *Subscriber) Snapshot(ctx context.Context) ([]livetrip.LiveTrip, error) {
	s.mu.Lock()
	if s.hasLatest {
		latest := s.latest
		s.mu.Unlock()
		return latest, nil
	}
	s.mu.Unlock()

	docs, err := s.store.List(ctx, livetrip.Collection)
	if err != nil {
		return nil, err
	}
	return s.Select(docs), nil
}

// Select applies the view's filter and ordering to raw records.
func (s *Subscriber) Select(docs []docstore.Document) []livetrip.LiveTrip {
	now := s.now()
	trips := make([]livetrip.LiveTrip, 0, len(docs))
	for _, d := range docs {
		t := livetrip.FromDocument(d)
		if s.filter.Live(t, now) {
			trips = append(trips, t)
		}
	}
	SortTrips(trips)
	return trips
}

func (s *Subscriber) handle(docs []docstore.Document) {
	trips := s.Select(docs)

	s.mu.Lock()
	s.latestSeq++
	seq := s.latestSeq
	s.latest, s.hasLatest = trips, true
	ls := make([]*listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l.deliver(seq, trips)
	}
}

// SortTrips orders by route category, then route name, then driver name.
func SortTrips(trips []livetrip.LiveTrip) {
	sort.SliceStable(trips, func(i, j int) bool {
		a, b := trips[i], trips[j]
		ra, rb := catalog.CategoryFor(a.RouteName).Rank(), catalog.CategoryFor(b.RouteName).Rank()
		if ra != rb {
			return ra < rb
		}
		if a.RouteName != b.RouteName {
			return a.RouteName < b.RouteName
		}
		return a.DriverName < b.DriverName
	})
}
