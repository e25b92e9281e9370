package fleet

import (
	"testing"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/livetrip"
)

func sampleTrips() []livetrip.LiveTrip {
	trips := []livetrip.LiveTrip{
		{DriverID: "d1", DriverName: "Ana", RouteName: "RETORNO OVERLAND 01", Latitude: -20.1, Longitude: -40.2, HasPosition: true, SpeedKmh: 60},
		{DriverID: "d2", DriverName: "Bia", RouteName: "ROTA 02", Latitude: -20.3, Longitude: -40.4, HasPosition: true, SpeedKmh: 101},
		{DriverID: "d3", DriverName: "Caio", RouteName: "ROTA ADM 01"},
		{DriverID: "d4", DriverName: "Duda", RouteName: "ROTA 02", Latitude: -20.5, Longitude: -40.6, HasPosition: true, SpeedKmh: 100},
	}
	SortTrips(trips)
	return trips
}

func TestGroupByRouteOrder(t *testing.T) {
	groups := GroupByRoute(sampleTrips())
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	want := []string{"ROTA ADM 01", "ROTA 02", "RETORNO OVERLAND 01"}
	for i, g := range groups {
		if g.RouteName != want[i] {
			t.Fatalf("group %d: expected %s, got %s", i, want[i], g.RouteName)
		}
	}
	if groups[0].Category != catalog.CategoryAdmin || groups[2].Category != catalog.CategoryReturn {
		t.Fatalf("unexpected categories %+v", groups)
	}
	if len(groups[1].Trips) != 2 || groups[1].Trips[0].DriverName != "Bia" {
		t.Fatalf("unexpected route group %+v", groups[1])
	}
}

func TestSummarizeFlagsSpeeding(t *testing.T) {
	s := Summarize(sampleTrips())
	if s.ActiveTrips != 4 || s.Drivers != 4 || s.Routes != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if len(s.Speeding) != 1 || s.Speeding[0].DriverID != "d2" {
		t.Fatalf("only speeds above 100 km/h are flagged, got %+v", s.Speeding)
	}

	empty := Summarize(nil)
	if empty.ActiveTrips != 0 || empty.Speeding == nil {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

func TestRenderMarkersSkipsUnknownPositions(t *testing.T) {
	var ms MarkerSet
	RenderMarkers(&ms, sampleTrips())
	if len(ms.Markers) != 3 {
		t.Fatalf("expected 3 markers, got %d", len(ms.Markers))
	}
	for _, m := range ms.Markers {
		if m.ID == "d3" {
			t.Fatalf("trip without position got a marker")
		}
	}

	ms.UpsertMarker("d2", 1, 2, "moved")
	if len(ms.Markers) != 3 {
		t.Fatalf("upsert should replace, got %d markers", len(ms.Markers))
	}
}

func TestFocus(t *testing.T) {
	var ms MarkerSet
	if !Focus(&ms, sampleTrips(), "d4") {
		t.Fatalf("expected focus on d4")
	}
	if ms.Camera == nil || ms.Camera.Zoom != FocusZoom || ms.Camera.Lat != -20.5 || ms.Camera.Lng != -40.6 {
		t.Fatalf("unexpected camera %+v", ms.Camera)
	}

	var silent MarkerSet
	if Focus(&silent, sampleTrips(), "nobody") || silent.Camera != nil {
		t.Fatalf("unknown driver should be ignored")
	}
	if Focus(&silent, sampleTrips(), "d3") {
		t.Fatalf("driver without position should be ignored")
	}
}

func TestBuildSnapshotEmpty(t *testing.T) {
	s := BuildSnapshot(ViewAdmin, nil)
	if s.Type != "snapshot" || s.View != ViewAdmin {
		t.Fatalf("unexpected header %+v", s)
	}
	if s.Groups == nil || s.Map.Markers == nil {
		t.Fatalf("empty snapshot should carry empty lists")
	}
}
