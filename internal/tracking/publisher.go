package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/livetrip"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/geo"
)

// Writer is the part of the document store the publisher needs.
type Writer interface {
	MergeWrite(ctx context.Context, collection, id string, fields map[string]any) error
}

// WakeLock keeps the driver's display awake while a trip runs.
type WakeLock interface {
	Acquire() error
	Release()
}

// Recorder keeps the trail of a trip after it ends.
type Recorder interface {
	Begin(ctx context.Context, driverID, driverName, busPlate, routeName string) (string, error)
	Point(ctx context.Context, sessionID string, fix Fix) error
	End(ctx context.Context, sessionID string) error
}

type Publisher struct {
	store           Writer
	recorder        Recorder
	writeTimeout    time.Duration
	positionTimeout time.Duration
}

func NewPublisher(store Writer, recorder Recorder, writeTimeout, positionTimeout time.Duration) *Publisher {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if positionTimeout <= 0 {
		positionTimeout = 10 * time.Second
	}
	return &Publisher{
		store:           store,
		recorder:        recorder,
		writeTimeout:    writeTimeout,
		positionTimeout: positionTimeout,
	}
}

type update struct {
	fix        Fix
	distanceKm float64
}

// Handle is a running trip. All methods are safe for concurrent use.
type Handle struct {
	DriverID  string
	RouteName string
	StartedAt time.Time
	Supported bool
	Warning   string

	pub         *Publisher
	driverName  string
	bus         catalog.Bus
	lock        WakeLock
	cancelWatch func()
	sessionID   string

	mu         sync.Mutex
	stopped    bool
	last       *Fix
	distanceKm float64
	lastError  string

	latest chan update
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once

	fixes     atomic.Int64
	writes    atomic.Int64
	failures  atomic.Int64
	coalesced atomic.Int64
}

type Status struct {
	DriverID      string    `json:"driver_id"`
	RouteName     string    `json:"route_name"`
	BusPlate      string    `json:"bus_plate"`
	StartedAt     time.Time `json:"started_at"`
	Supported     bool      `json:"supported"`
	Warning       string    `json:"warning,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	DistanceKm    float64   `json:"distance_km"`
	LastFix       *Fix      `json:"last_fix,omitempty"`
	Fixes         int64     `json:"fixes"`
	Writes        int64     `json:"writes"`
	WriteFailures int64     `json:"write_failures"`
	Coalesced     int64     `json:"coalesced"`
	Active        bool      `json:"active"`
}

// StartTrip publishes the driver's live record and starts following src.
// A source that cannot deliver positions does not fail the trip: the handle
// comes back unsupported with a warning.
func (p *Publisher) StartTrip(ctx context.Context, st session.State, routeName string, src Source, lock WakeLock) (*Handle, error) {
	if st.User == nil || st.User.Role != session.RoleDriver || st.Bus == nil {
		return nil, fmt.Errorf("start trip: %w", apperrors.ErrNotReady)
	}
	if routeName == "" {
		return nil, fmt.Errorf("route name required: %w", apperrors.ErrInvalidInput)
	}

	h := &Handle{
		DriverID:   st.User.ID,
		RouteName:  routeName,
		StartedAt:  time.Now(),
		pub:        p,
		driverName: st.User.DisplayName,
		bus:        *st.Bus,
		lock:       lock,
		latest:     make(chan update, 1),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	initial := h.identityFields()
	initial[livetrip.FieldActive] = true
	initial[livetrip.FieldOnline] = true
	initial[livetrip.FieldDistanceKm] = 0.0
	initial[livetrip.FieldLastUpdate] = docstore.ServerTimestamp
	if err := p.write(ctx, h.DriverID, initial); err != nil {
		log.Printf("tracking: initial write failed driver=%s: %v", h.DriverID, err)
		h.lastError = err.Error()
	}

	if lock != nil {
		if err := lock.Acquire(); err != nil {
			log.Printf("tracking: wake lock driver=%s: %v", h.DriverID, err)
		}
	}

	if p.recorder != nil {
		id, err := p.recorder.Begin(ctx, h.DriverID, h.driverName, h.bus.Plate, routeName)
		if err != nil {
			log.Printf("tracking: history begin driver=%s: %v", h.DriverID, err)
		}
		h.sessionID = id
	}

	go h.run()

	cancel, err := src.Watch(h.onFix, h.onError, WatchOptions{HighAccuracy: true, Timeout: p.positionTimeout})
	if err != nil {
		h.Supported = false
		h.Warning = warningFor(err)
		log.Printf("tracking: position watch driver=%s: %v", h.DriverID, err)
		return h, nil
	}
	h.Supported = true
	h.cancelWatch = cancel
	return h, nil
}

// StopTrip cancels the watch and marks the record inactive. Calls after the
// first are no-ops.
func (p *Publisher) StopTrip(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()

		if h.cancelWatch != nil {
			h.cancelWatch()
		}
		close(h.quit)
		<-h.done

		final := map[string]any{
			livetrip.FieldActive:     false,
			livetrip.FieldLastUpdate: docstore.ServerTimestamp,
		}
		if werr := p.write(ctx, h.DriverID, final); werr != nil {
			log.Printf("tracking: final write failed driver=%s: %v", h.DriverID, werr)
			err = fmt.Errorf("stop trip %s: %v: %w", h.DriverID, werr, apperrors.ErrWriteFailed)
		}

		if h.lock != nil {
			h.lock.Release()
		}
		if p.recorder != nil && h.sessionID != "" {
			if rerr := p.recorder.End(ctx, h.sessionID); rerr != nil {
				log.Printf("tracking: history end driver=%s: %v", h.DriverID, rerr)
			}
		}
	})
	return err
}

func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := Status{
		DriverID:      h.DriverID,
		RouteName:     h.RouteName,
		BusPlate:      h.bus.Plate,
		StartedAt:     h.StartedAt,
		Supported:     h.Supported,
		Warning:       h.Warning,
		LastError:     h.lastError,
		DistanceKm:    h.distanceKm,
		Fixes:         h.fixes.Load(),
		Writes:        h.writes.Load(),
		WriteFailures: h.failures.Load(),
		Coalesced:     h.coalesced.Load(),
		Active:        !h.stopped,
	}
	if h.last != nil {
		f := *h.last
		st.LastFix = &f
	}
	return st
}

func (h *Handle) onFix(fix Fix) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	if h.last != nil {
		h.distanceKm += geo.HaversineKm(h.last.Lat, h.last.Lng, fix.Lat, fix.Lng)
	}
	f := fix
	h.last = &f
	h.fixes.Add(1)

	u := update{fix: fix, distanceKm: h.distanceKm}
	// keep only the newest pending fix when the writer lags
	select {
	case <-h.latest:
		h.coalesced.Add(1)
	default:
	}
	h.latest <- u
}

func (h *Handle) onError(err error) {
	h.mu.Lock()
	h.lastError = err.Error()
	h.mu.Unlock()
	if errors.Is(err, apperrors.ErrPositionTimeout) {
		log.Printf("tracking: position timeout driver=%s, waiting for next fix", h.DriverID)
		return
	}
	log.Printf("tracking: position error driver=%s: %v", h.DriverID, err)
}

func (h *Handle) run() {
	defer close(h.done)
	for {
		select {
		case u := <-h.latest:
			h.publish(u)
		case <-h.quit:
			select {
			case u := <-h.latest:
				h.publish(u)
			default:
			}
			return
		}
	}
}

func (h *Handle) publish(u update) {
	fields := h.identityFields()
	fields[livetrip.FieldLatitude] = u.fix.Lat
	fields[livetrip.FieldLongitude] = u.fix.Lng
	fields[livetrip.FieldSpeedKmh] = u.fix.SpeedKmh()
	fields[livetrip.FieldAccuracyM] = u.fix.AccuracyM
	fields[livetrip.FieldDistanceKm] = u.distanceKm
	fields[livetrip.FieldActive] = true
	fields[livetrip.FieldLastUpdate] = docstore.ServerTimestamp
	if u.fix.HeadingDeg != nil {
		fields[livetrip.FieldHeadingDeg] = *u.fix.HeadingDeg
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.pub.writeTimeout)
	defer cancel()
	if err := h.pub.write(ctx, h.DriverID, fields); err != nil {
		h.failures.Add(1)
		h.mu.Lock()
		h.lastError = err.Error()
		h.mu.Unlock()
		log.Printf("tracking: write failed driver=%s, fix dropped: %v", h.DriverID, err)
		return
	}
	h.writes.Add(1)

	if h.pub.recorder != nil && h.sessionID != "" {
		if err := h.pub.recorder.Point(ctx, h.sessionID, u.fix); err != nil {
			log.Printf("tracking: history point driver=%s: %v", h.DriverID, err)
		}
	}
}

func (h *Handle) identityFields() map[string]any {
	return map[string]any{
		livetrip.FieldDriverID:   h.DriverID,
		livetrip.FieldDriverName: h.driverName,
		livetrip.FieldBusPlate:   h.bus.Plate,
		livetrip.FieldTagAC:      h.bus.TagAC,
		livetrip.FieldTagToll:    h.bus.TagToll,
		livetrip.FieldCompany:    h.bus.Company,
		livetrip.FieldRouteName:  h.RouteName,
	}
}

func (p *Publisher) write(ctx context.Context, driverID string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	return p.store.MergeWrite(ctx, livetrip.Collection, driverID, fields)
}

func warningFor(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return "location permission denied; the trip continues without live GPS"
	case errors.Is(err, apperrors.ErrPositionUnavailable):
		return "GPS unavailable on this device; the trip continues without live GPS"
	}
	return "live GPS unavailable: " + err.Error()
}
