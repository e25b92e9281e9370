package tracking

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/localstate"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

type entry struct {
	handle *Handle
	source *PushSource
}

// Trips keeps at most one running trip per driver. Start and Stop of the same
// driver run one at a time.
type Trips struct {
	pub     *Publisher
	mu      sync.Mutex
	active  map[string]entry
	drivers map[string]*sync.Mutex
}

func NewTrips(pub *Publisher) *Trips {
	return &Trips{pub: pub, active: make(map[string]entry), drivers: make(map[string]*sync.Mutex)}
}

func (t *Trips) lockDriver(driverID string) func() {
	t.mu.Lock()
	l, ok := t.drivers[driverID]
	if !ok {
		l = &sync.Mutex{}
		t.drivers[driverID] = l
	}
	t.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Start begins a trip for the session's driver, replacing a running one.
// gpsErr, when set, is the positioning failure the device already knows about.
func (t *Trips) Start(ctx context.Context, st session.State, routeName string, gpsErr error, lock WakeLock) (*Handle, error) {
	if st.User == nil {
		return nil, fmt.Errorf("start trip: %w", apperrors.ErrNotReady)
	}
	unlock := t.lockDriver(st.User.ID)
	defer unlock()

	if err := t.stop(ctx, st.User.ID); err != nil {
		log.Printf("tracking: replacing trip driver=%s: %v", st.User.ID, err)
	}

	src := NewPushSource()
	if gpsErr != nil {
		src.SetUnavailable(gpsErr)
	}
	h, err := t.pub.StartTrip(ctx, st, routeName, src, lock)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.active[h.DriverID] = entry{handle: h, source: src}
	t.mu.Unlock()
	return h, nil
}

func (t *Trips) Push(driverID string, fix Fix) error {
	e, ok := t.get(driverID)
	if !ok {
		return fmt.Errorf("no trip for %s: %w", driverID, apperrors.ErrNotReady)
	}
	if err := e.source.Push(fix); err != nil {
		if err == errNotWatching {
			return fmt.Errorf("trip without live GPS: %w", apperrors.ErrPositionUnavailable)
		}
		return err
	}
	return nil
}

// Fail forwards a positioning error reported by the device. Errors for trips
// already running without GPS are dropped.
func (t *Trips) Fail(driverID string, cause error) error {
	e, ok := t.get(driverID)
	if !ok {
		return fmt.Errorf("no trip for %s: %w", driverID, apperrors.ErrNotReady)
	}
	_ = e.source.Fail(cause)
	return nil
}

// Stop ends the driver's trip. A Start in flight for the same driver finishes
// first and is then stopped. Stopping a driver without a trip is a no-op.
func (t *Trips) Stop(ctx context.Context, driverID string) error {
	unlock := t.lockDriver(driverID)
	defer unlock()
	return t.stop(ctx, driverID)
}

func (t *Trips) stop(ctx context.Context, driverID string) error {
	t.mu.Lock()
	e, ok := t.active[driverID]
	delete(t.active, driverID)
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return t.pub.StopTrip(ctx, e.handle)
}

func (t *Trips) Current(driverID string) (*Handle, bool) {
	e, ok := t.get(driverID)
	return e.handle, ok
}

// StopAll ends every running trip, used on shutdown.
func (t *Trips) StopAll(ctx context.Context) {
	t.mu.Lock()
	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	for _, id := range ids {
		if err := t.Stop(ctx, id); err != nil {
			log.Printf("tracking: stop on shutdown driver=%s: %v", id, err)
		}
	}
}

func (t *Trips) get(driverID string) (entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.active[driverID]
	return e, ok
}

const wakeLockKey = "wake_lock"

// DeviceWakeLock records in the device's local state that the display must be
// kept on; the device polls it with its session.
type DeviceWakeLock struct {
	local localstate.Store
}

func NewDeviceWakeLock(local localstate.Store) *DeviceWakeLock {
	return &DeviceWakeLock{local: local}
}

func (w *DeviceWakeLock) Acquire() error {
	return w.local.Set(wakeLockKey, "held")
}

func (w *DeviceWakeLock) Release() {
	if err := w.local.Delete(wakeLockKey); err != nil {
		log.Printf("tracking: release wake lock: %v", err)
	}
}

func (w *DeviceWakeLock) Held() bool {
	_, ok := w.local.Get(wakeLockKey)
	return ok
}
