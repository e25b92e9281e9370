package schedule

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// Create stores a roster. Days keep the week order whatever order they arrive in.
func (s *Service) Create(ctx context.Context, req Request) (Schedule, error) {
	name := strings.TrimSpace(req.DriverName)
	badge := session.NormalizeBadge(req.Badge)
	if name == "" || badge == "" {
		return Schedule{}, fmt.Errorf("driver name and badge required: %w", apperrors.ErrInvalidInput)
	}

	days := make([]Day, 0, len(req.Days))
	seen := map[string]bool{}
	for _, d := range req.Days {
		if !slices.Contains(Weekdays, d.Day) || seen[d.Day] {
			return Schedule{}, fmt.Errorf("day %q: %w", d.Day, apperrors.ErrInvalidInput)
		}
		if !Shifts[d.Shift] {
			return Schedule{}, fmt.Errorf("shift %q: %w", d.Shift, apperrors.ErrInvalidInput)
		}
		seen[d.Day] = true
		days = append(days, Day{Day: d.Day, Route: strings.TrimSpace(d.Route), Shift: d.Shift})
	}
	sort.SliceStable(days, func(i, j int) bool {
		return slices.Index(Weekdays, days[i].Day) < slices.Index(Weekdays, days[j].Day)
	})

	sc := Schedule{DriverName: name, Badge: badge, Period: strings.TrimSpace(req.Period), Days: days}
	id, err := s.store.Append(ctx, Collection, map[string]any{
		"motorista": sc.DriverName,
		"matricula": sc.Badge,
		"periodo":   sc.Period,
		"dias":      dayFields(days),
		"timestamp": docstore.ServerTimestamp,
	})
	if err != nil {
		return Schedule{}, fmt.Errorf("escalas: %w", apperrors.ErrConnectionFailed)
	}
	sc.ID = id
	return sc, nil
}

// List returns every roster, newest first.
func (s *Service) List(ctx context.Context) ([]Schedule, error) {
	docs, err := s.store.List(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("escalas: %w", apperrors.ErrConnectionFailed)
	}
	return newestFirst(docs), nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, Collection, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, Collection, id)
}

// ForBadge returns the newest roster of a driver.
func (s *Service) ForBadge(ctx context.Context, badge string) (Schedule, error) {
	badge = session.NormalizeBadge(badge)
	docs, err := s.store.QueryEqual(ctx, Collection, "matricula", badge)
	if err != nil {
		return Schedule{}, fmt.Errorf("escalas: %w", apperrors.ErrConnectionFailed)
	}
	list := newestFirst(docs)
	if len(list) == 0 {
		return Schedule{}, fmt.Errorf("schedule for %s: %w", badge, apperrors.ErrNotFound)
	}
	return list[0], nil
}

func newestFirst(docs []docstore.Document) []Schedule {
	out := make([]Schedule, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDocument(d))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
