package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
)

type slowStore struct {
	*docstore.Memory
	delay   time.Duration
	entered chan struct{}
}

func (s *slowStore) MergeWrite(ctx context.Context, collection, id string, fields map[string]any) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	time.Sleep(s.delay)
	return s.Memory.MergeWrite(ctx, collection, id, fields)
}

func TestStopDuringStartEndsTheTrip(t *testing.T) {
	ctx := context.Background()
	store := &slowStore{Memory: docstore.NewMemory(), delay: 50 * time.Millisecond, entered: make(chan struct{}, 1)}
	trips := NewTrips(NewPublisher(store, nil, time.Second, time.Minute))

	started := make(chan *Handle, 1)
	go func() {
		h, err := trips.Start(ctx, driverState("AB12"), "ROTA 01", nil, nil)
		if err != nil {
			t.Errorf("start: %v", err)
		}
		started <- h
	}()
	<-store.entered

	if err := trips.Stop(ctx, "AB12"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	h := <-started
	if _, ok := trips.Current("AB12"); ok {
		t.Fatalf("expected no running trip after stop")
	}
	if h == nil || h.Status().Active {
		t.Fatalf("expected started handle to be stopped")
	}
	if trip := readTrip(t, store.Memory, "AB12"); trip.Active {
		t.Fatalf("expected inactive record, got %+v", trip)
	}
}

func TestConcurrentStartsLeaveOneTrip(t *testing.T) {
	ctx := context.Background()
	store := &slowStore{Memory: docstore.NewMemory(), delay: 20 * time.Millisecond, entered: make(chan struct{}, 1)}
	trips := NewTrips(NewPublisher(store, nil, time.Second, time.Minute))
	lock := &countingLock{}

	var wg sync.WaitGroup
	handles := make([]*Handle, 2)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := trips.Start(ctx, driverState("AB12"), "ROTA 01", nil, lock)
			if err != nil {
				t.Errorf("start %d: %v", i, err)
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	running := 0
	for _, h := range handles {
		if h.Status().Active {
			running++
		}
	}
	if running != 1 {
		t.Fatalf("expected exactly one running handle, got %d", running)
	}

	trips.StopAll(ctx)
	for i, h := range handles {
		if h.Status().Active {
			t.Fatalf("handle %d still active after StopAll", i)
		}
	}
	if trip := readTrip(t, store.Memory, "AB12"); trip.Active {
		t.Fatalf("expected inactive record, got %+v", trip)
	}
	lock.mu.Lock()
	defer lock.mu.Unlock()
	if lock.acquired != 2 || lock.released != 2 {
		t.Fatalf("expected balanced wake lock, got %d/%d", lock.acquired, lock.released)
	}
}
