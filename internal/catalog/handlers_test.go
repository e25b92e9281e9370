package catalog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"

	"github.com/gofiber/fiber/v2"
)

func TestCatalogHandlers(t *testing.T) {
	svc := NewService(docstore.NewMemory())
	app := fiber.New()
	RegisterRoutes(app.Group("/catalog"), svc)
	RegisterAdminRoutes(app.Group("/admin"), svc, func(c *fiber.Ctx) error { return c.Next() })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/catalog/routes", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("routes status: %v", err)
	}
	var routes []Route
	_ = json.NewDecoder(resp.Body).Decode(&routes)
	if len(routes) != 9 {
		t.Fatalf("expected default routes, got %d", len(routes))
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/catalog/buses/NOPE", nil))
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404: %v", err)
	}

	body, _ := json.Marshal(Route{Name: "ROTA 10"})
	req := httptest.NewRequest(http.MethodPost, "/admin/routes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create route status: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/buses", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty plate: %v", err)
	}
}
