package fleet

import (
	"fmt"
	"sort"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/livetrip"
)

const FocusZoom = 16

type RouteGroup struct {
	RouteName string              `json:"route_name"`
	Category  catalog.Category    `json:"category"`
	Trips     []livetrip.LiveTrip `json:"trips"`
}

// GroupByRoute groups trips by route name. Groups follow category precedence
// admin, operational, return; trips keep the order they arrive in.
func GroupByRoute(trips []livetrip.LiveTrip) []RouteGroup {
	index := make(map[string]int)
	var groups []RouteGroup
	for _, t := range trips {
		i, ok := index[t.RouteName]
		if !ok {
			i = len(groups)
			index[t.RouteName] = i
			groups = append(groups, RouteGroup{RouteName: t.RouteName, Category: catalog.CategoryFor(t.RouteName)})
		}
		groups[i].Trips = append(groups[i].Trips, t)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.Category.Rank() != b.Category.Rank() {
			return a.Category.Rank() < b.Category.Rank()
		}
		return a.RouteName < b.RouteName
	})
	return groups
}

type Summary struct {
	ActiveTrips int                 `json:"active_trips"`
	Drivers     int                 `json:"drivers"`
	Routes      int                 `json:"routes"`
	Speeding    []livetrip.LiveTrip `json:"speeding"`
}

func Summarize(trips []livetrip.LiveTrip) Summary {
	drivers := make(map[string]struct{})
	routes := make(map[string]struct{})
	s := Summary{ActiveTrips: len(trips), Speeding: []livetrip.LiveTrip{}}
	for _, t := range trips {
		drivers[t.DriverID] = struct{}{}
		routes[t.RouteName] = struct{}{}
		if t.Speeding() {
			s.Speeding = append(s.Speeding, t)
		}
	}
	s.Drivers = len(drivers)
	s.Routes = len(routes)
	return s
}

// MapRenderer is the presentation sink for positions.
type MapRenderer interface {
	UpsertMarker(id string, lat, lng float64, label string)
	PanTo(lat, lng float64, zoom int)
}

func markerLabel(t livetrip.LiveTrip) string {
	return fmt.Sprintf("%s - %s (%d km/h)", t.RouteName, t.DriverName, t.SpeedKmh)
}

// RenderMarkers places a marker for every trip with a known position.
func RenderMarkers(r MapRenderer, trips []livetrip.LiveTrip) {
	for _, t := range trips {
		if t.HasPosition {
			r.UpsertMarker(t.DriverID, t.Latitude, t.Longitude, markerLabel(t))
		}
	}
}

// Focus pans to the driver's last known point. Unknown drivers are ignored.
func Focus(r MapRenderer, trips []livetrip.LiveTrip, driverID string) bool {
	for _, t := range trips {
		if t.DriverID == driverID && t.HasPosition {
			r.PanTo(t.Latitude, t.Longitude, FocusZoom)
			return true
		}
	}
	return false
}

type Marker struct {
	ID    string  `json:"id"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

type Camera struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// MarkerSet is a MapRenderer that records what a browser map should draw.
type MarkerSet struct {
	Markers []Marker `json:"markers"`
	Camera  *Camera  `json:"camera,omitempty"`
}

func (m *MarkerSet) UpsertMarker(id string, lat, lng float64, label string) {
	for i := range m.Markers {
		if m.Markers[i].ID == id {
			m.Markers[i] = Marker{ID: id, Lat: lat, Lng: lng, Label: label}
			return
		}
	}
	m.Markers = append(m.Markers, Marker{ID: id, Lat: lat, Lng: lng, Label: label})
}

func (m *MarkerSet) PanTo(lat, lng float64, zoom int) {
	m.Camera = &Camera{Lat: lat, Lng: lng, Zoom: zoom}
}

// Snapshot is the render-ready view pushed to browsers.
type Snapshot struct {
	Type    string       `json:"type"`
	View    View         `json:"view"`
	Groups  []RouteGroup `json:"groups"`
	Summary Summary      `json:"summary"`
	Map     MarkerSet    `json:"map"`
}

func BuildSnapshot(view View, trips []livetrip.LiveTrip) Snapshot {
	s := Snapshot{Type: "snapshot", View: view, Groups: GroupByRoute(trips), Summary: Summarize(trips)}
	s.Map.Markers = []Marker{}
	RenderMarkers(&s.Map, trips)
	if s.Groups == nil {
		s.Groups = []RouteGroup{}
	}
	return s
}
