// Package history keeps the trail of every trip a driver runs, so the admin
// can review finished trips and export them as GPX.
package history

import "time"

const (
	StatusActive   = "active"
	StatusFinished = "finished"
)

type Session struct {
	ID             string     `json:"id"`
	DriverID       string     `json:"driver_id"`
	DriverName     string     `json:"driver_name"`
	BusPlate       string     `json:"bus_plate"`
	RouteName      string     `json:"route_name"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	TotalDistanceM float64    `json:"total_distance_m"`
	MaxSpeedKmh    int        `json:"max_speed_kmh"`
	Status         string     `json:"status"`
}

type TrackPoint struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedKmh   int       `json:"speed_kmh"`
	AccuracyM  float64   `json:"accuracy_m"`
	RecordedAt time.Time `json:"recorded_at"`
}

type Summary struct {
	SessionID       string  `json:"session_id"`
	DriverID        string  `json:"driver_id"`
	RouteName       string  `json:"route_name"`
	PointCount      int     `json:"point_count"`
	DistanceM       float64 `json:"distance_m"`
	DurationSec     int64   `json:"duration_sec"`
	AverageSpeedKmh float64 `json:"average_speed_kmh"`
	MaxSpeedKmh     int     `json:"max_speed_kmh"`
}
