package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/auth"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/localstate"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"

	"github.com/gofiber/fiber/v2"
)

type scheduleFixture struct {
	app   *fiber.App
	admin string
}

func newScheduleFixture(t *testing.T) scheduleFixture {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()
	_ = store.MergeWrite(ctx, "colaboradores", "AB12", map[string]any{"nome": "Joao", "ativo": true})

	reg := session.NewRegistry(localstate.NewDevices().For, session.NewStoreDirectory(store), nil)
	if _, err := reg.Get("dev-d").LoginDriver(ctx, "AB12"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := reg.Get("dev-p").ChooseRole(session.RolePassenger); err != nil {
		t.Fatalf("passenger: %v", err)
	}

	tokens, err := auth.NewService("secret", "", "", nil).GenerateTokens(ctx, auth.Identity{UserID: "admin", Role: "admin"})
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	svc := NewService(store)
	app := fiber.New()
	RegisterRoutes(app.Group("/session"), svc, reg)
	RegisterAdminRoutes(app.Group("/admin"), svc, auth.JWTMiddleware("secret"), auth.RequireRole("admin"))
	return scheduleFixture{app: app, admin: tokens.AccessToken}
}

func (f scheduleFixture) do(method, path, token, device string, body any) *http.Response {
	reader := bytes.NewReader(nil)
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if device != "" {
		req.Header.Set(session.DeviceHeader, device)
	}
	resp, _ := f.app.Test(req)
	return resp
}

func TestScheduleHandlersAdminAndDriver(t *testing.T) {
	f := newScheduleFixture(t)

	if resp := f.do(http.MethodGet, "/session/schedule", "", "dev-d", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before a roster exists, got %d", resp.StatusCode)
	}

	req := Request{DriverName: "Joao", Badge: "ab12", Period: "01/05 a 07/05", Days: []Day{{Day: "Segunda", Route: "ROTA 01", Shift: "06:00 - 14:00"}}}
	if resp := f.do(http.MethodPost, "/admin/schedules", "", "", req); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp := f.do(http.MethodPost, "/admin/schedules", f.admin, "", req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	var created Schedule
	_ = json.NewDecoder(resp.Body).Decode(&created)

	resp = f.do(http.MethodGet, "/session/schedule", "", "dev-d", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("driver schedule status %d", resp.StatusCode)
	}
	var mine Schedule
	_ = json.NewDecoder(resp.Body).Decode(&mine)
	if mine.ID != created.ID || len(mine.Days) != 1 || mine.Days[0].Route != "ROTA 01" {
		t.Fatalf("unexpected driver schedule %+v", mine)
	}

	resp = f.do(http.MethodGet, "/admin/schedules", f.admin, "", nil)
	var list []Schedule
	_ = json.NewDecoder(resp.Body).Decode(&list)
	if len(list) != 1 {
		t.Fatalf("expected one roster, got %+v", list)
	}

	if resp := f.do(http.MethodDelete, "/admin/schedules/"+created.ID, f.admin, "", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	if resp := f.do(http.MethodDelete, "/admin/schedules/"+created.ID, f.admin, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestScheduleHandlersRequireDriverSession(t *testing.T) {
	f := newScheduleFixture(t)

	if resp := f.do(http.MethodGet, "/session/schedule", "", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without device, got %d", resp.StatusCode)
	}
	if resp := f.do(http.MethodGet, "/session/schedule", "", "dev-p", nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for passenger, got %d", resp.StatusCode)
	}
	bad := Request{DriverName: "Joao", Badge: "AB12", Days: []Day{{Day: "Segunda", Shift: "nope"}}}
	if resp := f.do(http.MethodPost, "/admin/schedules", f.admin, "", bad); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad shift, got %d", resp.StatusCode)
	}
}
