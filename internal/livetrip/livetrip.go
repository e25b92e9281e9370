// Package livetrip describes the single live record each driver keeps in the
// rotas_em_andamento collection while a trip is running.
package livetrip

import (
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
)

const Collection = "rotas_em_andamento"

// Field names of the live record.
const (
	FieldDriverID   = "driver_id"
	FieldDriverName = "driver_name"
	FieldBusPlate   = "bus_plate"
	FieldTagAC      = "tag_ac"
	FieldTagToll    = "tag_toll"
	FieldCompany    = "company"
	FieldRouteName  = "route_name"
	FieldLatitude   = "latitude"
	FieldLongitude  = "longitude"
	FieldSpeedKmh   = "speed_kmh"
	FieldAccuracyM  = "accuracy_m"
	FieldHeadingDeg = "heading_deg"
	FieldDistanceKm = "distance_km"
	FieldActive     = "active"
	FieldOnline     = "online"
	FieldLastUpdate = "last_update"
)

// SpeedingKmh is the speed above which a trip is flagged on the dashboard.
const SpeedingKmh = 100

type LiveTrip struct {
	DriverID    string    `json:"driver_id"`
	DriverName  string    `json:"driver_name"`
	BusPlate    string    `json:"bus_plate"`
	TagAC       string    `json:"tag_ac,omitempty"`
	TagToll     string    `json:"tag_toll,omitempty"`
	Company     string    `json:"company,omitempty"`
	RouteName   string    `json:"route_name"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	HasPosition bool      `json:"has_position"`
	SpeedKmh    int       `json:"speed_kmh"`
	AccuracyM   float64   `json:"accuracy_m,omitempty"`
	DistanceKm  float64   `json:"distance_km"`
	Active      bool      `json:"active"`
	Online      bool      `json:"online"`
	LastUpdate  time.Time `json:"last_update"`
}

func (t LiveTrip) Speeding() bool {
	return t.SpeedKmh > SpeedingKmh
}

// FromDocument reads a live record. A missing active or online flag counts as
// true, matching records written before those flags existed.
func FromDocument(d docstore.Document) LiveTrip {
	t := LiveTrip{
		DriverID:   docstore.String(d.Data, FieldDriverID),
		DriverName: docstore.String(d.Data, FieldDriverName),
		BusPlate:   docstore.String(d.Data, FieldBusPlate),
		TagAC:      docstore.String(d.Data, FieldTagAC),
		TagToll:    docstore.String(d.Data, FieldTagToll),
		Company:    docstore.String(d.Data, FieldCompany),
		RouteName:  docstore.String(d.Data, FieldRouteName),
		LastUpdate: docstore.Time(d.Data, FieldLastUpdate),
		Active:     true,
		Online:     true,
	}
	if t.DriverID == "" {
		t.DriverID = d.ID
	}
	lat, okLat := docstore.Float(d.Data, FieldLatitude)
	lng, okLng := docstore.Float(d.Data, FieldLongitude)
	if okLat && okLng {
		t.Latitude, t.Longitude, t.HasPosition = lat, lng, true
	}
	if v, ok := docstore.Float(d.Data, FieldSpeedKmh); ok {
		t.SpeedKmh = int(v)
	}
	if v, ok := docstore.Float(d.Data, FieldAccuracyM); ok {
		t.AccuracyM = v
	}
	if v, ok := docstore.Float(d.Data, FieldDistanceKm); ok {
		t.DistanceKm = v
	}
	if v, ok := docstore.Bool(d.Data, FieldActive); ok {
		t.Active = v
	}
	if v, ok := docstore.Bool(d.Data, FieldOnline); ok {
		t.Online = v
	}
	return t
}

// Filter decides which live records a view shows.
type Filter struct {
	RequireOnline bool
	// StaleAfter hides records whose last update is older than this. Zero
	// disables the check.
	StaleAfter time.Duration
}

func (f Filter) Live(t LiveTrip, now time.Time) bool {
	if !t.Active {
		return false
	}
	if f.RequireOnline && !t.Online {
		return false
	}
	return !f.Stale(t, now)
}

// Stale reports whether the record missed its heartbeat. Records without a
// timestamp yet are never stale.
func (f Filter) Stale(t LiveTrip, now time.Time) bool {
	if f.StaleAfter <= 0 || t.LastUpdate.IsZero() {
		return false
	}
	return now.Sub(t.LastUpdate) > f.StaleAfter
}

// Predicate adapts the filter for docstore subscriptions.
func (f Filter) Predicate(now func() time.Time) docstore.Predicate {
	return func(d docstore.Document) bool {
		return f.Live(FromDocument(d), now())
	}
}
