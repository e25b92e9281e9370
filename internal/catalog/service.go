package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/google/uuid"
)

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// Buses lists the configured fleet, falling back to the built-in list when the
// store is unreachable or empty.
func (s *Service) Buses(ctx context.Context) []Bus {
	docs, err := s.store.List(ctx, BusCollection)
	if err != nil {
		log.Printf("catalog: load buses: %v", err)
		return DefaultBuses()
	}
	if len(docs) == 0 {
		return DefaultBuses()
	}
	buses := make([]Bus, 0, len(docs))
	for _, d := range docs {
		buses = append(buses, busFromDocument(d))
	}
	return buses
}

func (s *Service) Routes(ctx context.Context) []Route {
	docs, err := s.store.List(ctx, RouteCollection)
	if err != nil {
		log.Printf("catalog: load routes: %v", err)
		return DefaultRoutes()
	}
	if len(docs) == 0 {
		return DefaultRoutes()
	}
	routes := make([]Route, 0, len(docs))
	for _, d := range docs {
		routes = append(routes, routeFromDocument(d))
	}
	return routes
}

func (s *Service) FindBus(ctx context.Context, plate string) (Bus, error) {
	plate = NormalizePlate(plate)
	for _, b := range s.Buses(ctx) {
		if NormalizePlate(b.Plate) == plate {
			return b, nil
		}
	}
	return Bus{}, fmt.Errorf("bus %s: %w", plate, apperrors.ErrNotFound)
}

func (s *Service) AddBus(ctx context.Context, bus Bus) (Bus, error) {
	bus.Plate = NormalizePlate(bus.Plate)
	if bus.Plate == "" {
		return Bus{}, fmt.Errorf("plate required: %w", apperrors.ErrInvalidInput)
	}
	if err := s.store.MergeWrite(ctx, BusCollection, bus.Plate, busFields(bus)); err != nil {
		return Bus{}, err
	}
	return bus, nil
}

func (s *Service) UpdateBus(ctx context.Context, plate string, bus Bus) (Bus, error) {
	plate = NormalizePlate(plate)
	if _, err := s.store.Get(ctx, BusCollection, plate); err != nil {
		return Bus{}, err
	}
	bus.Plate = plate
	if err := s.store.MergeWrite(ctx, BusCollection, plate, busFields(bus)); err != nil {
		return Bus{}, err
	}
	return bus, nil
}

func (s *Service) RemoveBus(ctx context.Context, plate string) error {
	return s.store.Delete(ctx, BusCollection, NormalizePlate(plate))
}

func (s *Service) AddRoute(ctx context.Context, route Route) (Route, error) {
	route.Name = strings.TrimSpace(route.Name)
	if route.Name == "" {
		return Route{}, fmt.Errorf("route name required: %w", apperrors.ErrInvalidInput)
	}
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	if route.Category == "" {
		route.Category = CategoryFor(route.Name)
	}
	if err := s.store.MergeWrite(ctx, RouteCollection, route.ID, routeFields(route)); err != nil {
		return Route{}, err
	}
	return route, nil
}

func (s *Service) UpdateRoute(ctx context.Context, id string, route Route) (Route, error) {
	current, err := s.store.Get(ctx, RouteCollection, id)
	if err != nil {
		return Route{}, err
	}
	merged := routeFromDocument(current)
	if name := strings.TrimSpace(route.Name); name != "" {
		merged.Name = name
		merged.Category = CategoryFor(name)
	}
	if route.Category != "" {
		merged.Category = route.Category
	}
	if route.Description != "" {
		merged.Description = route.Description
	}
	if route.MapsURL != "" {
		merged.MapsURL = route.MapsURL
	}
	if err := s.store.MergeWrite(ctx, RouteCollection, id, routeFields(merged)); err != nil {
		return Route{}, err
	}
	return merged, nil
}

func (s *Service) RemoveRoute(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, RouteCollection, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.store.Delete(ctx, RouteCollection, id)
}

func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

func busFields(b Bus) map[string]any {
	return map[string]any{
		"placa":    b.Plate,
		"tag_ac":   b.TagAC,
		"tag_vale": b.TagToll,
		"cor":      b.Color,
		"empresa":  b.Company,
	}
}

func busFromDocument(d docstore.Document) Bus {
	plate := docstore.String(d.Data, "placa")
	if plate == "" {
		plate = d.ID
	}
	return Bus{
		Plate:   plate,
		TagAC:   docstore.String(d.Data, "tag_ac"),
		TagToll: docstore.String(d.Data, "tag_vale"),
		Color:   docstore.String(d.Data, "cor"),
		Company: docstore.String(d.Data, "empresa"),
	}
}

func routeFields(r Route) map[string]any {
	return map[string]any{
		"nome":    r.Name,
		"tipo":    string(r.Category),
		"desc":    r.Description,
		"mapsUrl": r.MapsURL,
	}
}

func routeFromDocument(d docstore.Document) Route {
	name := docstore.String(d.Data, "nome")
	return Route{
		ID:          d.ID,
		Name:        name,
		Category:    categoryFromStored(docstore.String(d.Data, "tipo"), name),
		Description: docstore.String(d.Data, "desc"),
		MapsURL:     docstore.String(d.Data, "mapsUrl"),
	}
}

// categoryFromStored accepts both the legacy Portuguese tags and the current
// names, and falls back to the route name.
func categoryFromStored(tag, name string) Category {
	switch strings.ToLower(tag) {
	case "adm", string(CategoryAdmin):
		return CategoryAdmin
	case "operacional", string(CategoryOperational):
		return CategoryOperational
	case "retorno", string(CategoryReturn):
		return CategoryReturn
	}
	return CategoryFor(name)
}
