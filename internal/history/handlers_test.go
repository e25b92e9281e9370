package history

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func TestHistoryHandlers(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ended := started.Add(time.Hour)
	row := func() *pgxmock.Rows {
		return pgxmock.NewRows(sessionColumns).
			AddRow("s1", "AB12", "Joao", "SJD5G38", "ROTA 02", started, &ended, 1000.0, 50, StatusFinished)
	}

	app := fiber.New()
	RegisterAdminRoutes(app.Group("/admin"), NewService(mock, nil), func(c *fiber.Ctx) error { return c.Next() })

	mock.ExpectQuery(`FROM track_sessions WHERE driver_id=\$1`).
		WithArgs("AB12", defaultListLimit).
		WillReturnRows(row())
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/history/drivers/AB12", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("drivers status: %v %v", resp, err)
	}
	var sessions []Session
	_ = json.NewDecoder(resp.Body).Decode(&sessions)
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}

	mock.ExpectQuery(`FROM track_sessions WHERE id=\$1`).WithArgs("s1").WillReturnRows(row())
	mock.ExpectQuery(`FROM track_points WHERE session_id=\$1`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "lat", "lng", "speed_kmh", "accuracy_m", "recorded_at"}).
			AddRow(int64(1), "s1", -20.1, -40.2, 40, 5.0, started))
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/admin/history/sessions/s1/gpx", nil))
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != gpxContentType {
		t.Fatalf("unexpected gpx response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<trkpt") {
		t.Fatalf("expected track points in gpx")
	}

	mock.ExpectQuery(`FROM track_sessions WHERE id=\$1`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/admin/history/sessions/missing/summary", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`FROM track_points WHERE session_id=\$1`).WithArgs("s1").WillReturnError(errHistory)
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/admin/history/sessions/s1/points", nil))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestHistoryHandlersRequireAdmin(t *testing.T) {
	app := fiber.New()
	RegisterAdminRoutes(app.Group("/admin"), NewService(nil, nil), func(c *fiber.Ctx) error { return fiber.ErrForbidden })

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/admin/history/drivers/AB12", nil))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
