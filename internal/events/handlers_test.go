package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/auth"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/localstate"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"

	"github.com/gofiber/fiber/v2"
)

type eventsFixture struct {
	app       *fiber.App
	notifier  *fakeNotifier
	driver    string
	passenger string
	admin     string
}

func newEventsFixture(t *testing.T) eventsFixture {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()
	_ = store.MergeWrite(ctx, "colaboradores", "AB12", map[string]any{"nome": "Joao", "ativo": true})

	locals := map[string]*localstate.Memory{"dev-d": localstate.NewMemory(), "dev-p": localstate.NewMemory()}
	reg := session.NewRegistry(func(id string) localstate.Store {
		if l, ok := locals[id]; ok {
			return l
		}
		return localstate.NewMemory()
	}, session.NewStoreDirectory(store), nil)

	d := reg.Get("dev-d")
	if _, err := d.LoginDriver(ctx, "AB12"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := d.SelectVehicle(catalog.Bus{Plate: "SJD5G38"}); err != nil {
		t.Fatalf("vehicle: %v", err)
	}
	p := reg.Get("dev-p")
	pst, err := p.ChooseRole(session.RolePassenger)
	if err != nil || pst.User == nil {
		t.Fatalf("passenger: %v", err)
	}

	authSvc := auth.NewService("secret", "", "", nil)
	token := func(id auth.Identity) string {
		tokens, err := authSvc.GenerateTokens(ctx, id)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		return tokens.AccessToken
	}

	notifier := &fakeNotifier{}
	svc := NewService(store, notifier)
	app := fiber.New()
	RegisterRoutes(app.Group("/events"), svc, reg, auth.JWTMiddleware("secret"))
	RegisterAdminRoutes(app.Group("/admin"), svc, auth.JWTMiddleware("secret"), auth.RequireRole("admin"))

	return eventsFixture{
		app:       app,
		notifier:  notifier,
		driver:    token(auth.Identity{UserID: "AB12", Name: "Joao", Role: "driver", DeviceID: "dev-d"}),
		passenger: token(auth.Identity{UserID: pst.User.ID, Role: "passenger", DeviceID: "dev-p"}),
		admin:     token(auth.Identity{UserID: "admin", Name: "Admin", Role: "admin", DeviceID: "dev-a"}),
	}
}

func (f eventsFixture) do(method, path, token string, body any) *http.Response {
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
	resp, _ := f.app.Test(req)
	return resp
}

func TestEventsEmergencyFlow(t *testing.T) {
	f := newEventsFixture(t)

	resp := f.do(http.MethodPost, "/events/emergencies", "", EmergencyRequest{Type: "panico"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp = f.do(http.MethodPost, "/events/emergencies", f.passenger, EmergencyRequest{Type: "panico"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for passenger, got %d", resp.StatusCode)
	}
	resp = f.do(http.MethodPost, "/events/emergencies", f.driver, EmergencyRequest{Type: "acidente", Description: "batida leve"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var e Emergency
	_ = json.NewDecoder(resp.Body).Decode(&e)
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected fan-out")
	}

	resp = f.do(http.MethodGet, "/admin/events/emergencias", f.driver, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for driver, got %d", resp.StatusCode)
	}
	resp = f.do(http.MethodGet, "/admin/events/emergencias", f.admin, nil)
	var pending []Emergency
	_ = json.NewDecoder(resp.Body).Decode(&pending)
	if len(pending) != 1 || pending[0].BusPlate != "SJD5G38" {
		t.Fatalf("unexpected pending %+v", pending)
	}

	resp = f.do(http.MethodPost, "/admin/events/emergencias/"+e.ID+"/resolve", f.admin, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = f.do(http.MethodGet, "/admin/events/emergencias", f.admin, nil)
	_ = json.NewDecoder(resp.Body).Decode(&pending)
	if len(pending) != 0 {
		t.Fatalf("resolved emergency still pending")
	}

	resp = f.do(http.MethodGet, "/admin/events/desconhecido", f.admin, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", resp.StatusCode)
	}
}

func TestEventsFeedbackAndNotices(t *testing.T) {
	f := newEventsFixture(t)

	resp := f.do(http.MethodPost, "/events/feedbacks", f.passenger, FeedbackRequest{Message: "motorista educado"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp = f.do(http.MethodGet, "/admin/events/feedbacks", f.admin, nil)
	var entries []Entry
	_ = json.NewDecoder(resp.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Data["perfil"] != AudiencePassenger {
		t.Fatalf("unexpected feedback entries %+v", entries)
	}

	resp = f.do(http.MethodPost, "/admin/notices", f.admin, NoticeRequest{Title: "Troca", Message: "Rota 02 com novo horario", Audience: AudienceDriver})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var n Notice
	_ = json.NewDecoder(resp.Body).Decode(&n)
	if n.SentBy != "Admin" {
		t.Fatalf("expected sender from token, got %q", n.SentBy)
	}

	var notices []Notice
	resp = f.do(http.MethodGet, "/events/notices", f.driver, nil)
	_ = json.NewDecoder(resp.Body).Decode(&notices)
	if len(notices) != 1 {
		t.Fatalf("driver should see the notice, got %d", len(notices))
	}
	resp = f.do(http.MethodGet, "/events/notices", f.passenger, nil)
	notices = nil
	_ = json.NewDecoder(resp.Body).Decode(&notices)
	if len(notices) != 0 {
		t.Fatalf("passenger should not see driver notices, got %d", len(notices))
	}

	resp = f.do(http.MethodDelete, "/admin/notices/"+n.ID, f.admin, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = f.do(http.MethodGet, "/admin/notices", f.admin, nil)
	notices = nil
	_ = json.NewDecoder(resp.Body).Decode(&notices)
	if len(notices) != 0 {
		t.Fatalf("removed notice still listed")
	}
}
