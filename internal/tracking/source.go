package tracking

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

// Fix is one position sample reported by a device.
type Fix struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	AccuracyM  float64   `json:"accuracy_m"`
	HeadingDeg *float64  `json:"heading_deg,omitempty"`
	At         time.Time `json:"at"`
}

func (f Fix) Validate() error {
	if math.IsNaN(f.Lat) || math.IsNaN(f.Lng) || f.Lat < -90 || f.Lat > 90 || f.Lng < -180 || f.Lng > 180 {
		return apperrors.ErrInvalidInput
	}
	return nil
}

// SpeedKmh converts the reported speed, treating unknown or negative speed as
// stationary.
func (f Fix) SpeedKmh() int {
	if f.SpeedMps == nil || math.IsNaN(*f.SpeedMps) || *f.SpeedMps < 0 {
		return 0
	}
	return int(math.Round(*f.SpeedMps * 3.6))
}

type WatchOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Source delivers position fixes until the returned cancel func is called.
// After cancel returns no callback runs. Watch fails with ErrPermissionDenied
// or ErrPositionUnavailable when positions cannot be obtained at all.
type Source interface {
	Watch(onFix func(Fix), onError func(error), opts WatchOptions) (cancel func(), err error)
}

// PushSource is a Source fed by a device over HTTP. When no fix arrives within
// the watch timeout, onError receives ErrPositionTimeout and the wait restarts.
type PushSource struct {
	mu          sync.Mutex
	onFix       func(Fix)
	onError     func(error)
	timeout     time.Duration
	timer       *time.Timer
	gen         int
	tick        int
	watching    bool
	unavailable error
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

// SetUnavailable makes the next Watch fail with err. The device uses it to
// report a denied permission or missing hardware before the trip starts.
func (p *PushSource) SetUnavailable(err error) {
	p.mu.Lock()
	p.unavailable = err
	p.mu.Unlock()
}

func (p *PushSource) Watch(onFix func(Fix), onError func(error), opts WatchOptions) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unavailable != nil {
		return nil, p.unavailable
	}
	p.gen++
	p.onFix, p.onError = onFix, onError
	p.timeout = opts.Timeout
	p.watching = true
	p.armLocked()

	gen := p.gen
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.gen != gen || !p.watching {
			return
		}
		p.watching = false
		p.onFix, p.onError = nil, nil
		if p.timer != nil {
			p.timer.Stop()
			p.timer = nil
		}
	}, nil
}

var errNotWatching = errors.New("no position watch active")

// Push delivers a fix to the watcher.
func (p *PushSource) Push(fix Fix) error {
	if err := fix.Validate(); err != nil {
		return err
	}
	if fix.At.IsZero() {
		fix.At = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.watching {
		return errNotWatching
	}
	p.armLocked()
	p.onFix(fix)
	return nil
}

// Fail reports a device-side positioning error to the watcher.
func (p *PushSource) Fail(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.watching {
		return errNotWatching
	}
	p.onError(err)
	return nil
}

func (p *PushSource) armLocked() {
	if p.timeout <= 0 {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.tick++
	tick := p.tick
	p.timer = time.AfterFunc(p.timeout, func() { p.expire(tick) })
}

func (p *PushSource) expire(tick int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.watching || p.tick != tick {
		return
	}
	p.onError(apperrors.ErrPositionTimeout)
	p.armLocked()
}
