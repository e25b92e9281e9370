package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

func tickingStore() *docstore.Memory {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return docstore.NewMemory().WithClock(func() time.Time {
		at = at.Add(time.Minute)
		return at
	})
}

func TestCreateOrdersDaysAndNormalizesBadge(t *testing.T) {
	svc := NewService(tickingStore())

	sc, err := svc.Create(context.Background(), Request{
		DriverName: " Joao ",
		Badge:      " ab12 ",
		Period:     "01/05 a 07/05",
		Days: []Day{
			{Day: "Quarta", Route: "ROTA 02", Shift: "14:00 - 22:00"},
			{Day: "Segunda", Route: "ROTA 01", Shift: "06:00 - 14:00"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sc.ID == "" || sc.Badge != "AB12" || sc.DriverName != "Joao" {
		t.Fatalf("unexpected schedule %+v", sc)
	}
	if sc.Days[0].Day != "Segunda" || sc.Days[1].Day != "Quarta" {
		t.Fatalf("expected week order, got %+v", sc.Days)
	}

	got, err := svc.ForBadge(context.Background(), "ab12")
	if err != nil {
		t.Fatalf("for badge: %v", err)
	}
	if got.ID != sc.ID || len(got.Days) != 2 || got.Days[1].Route != "ROTA 02" {
		t.Fatalf("unexpected stored schedule %+v", got)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := NewService(docstore.NewMemory())
	cases := []Request{
		{Badge: "AB12"},
		{DriverName: "Joao"},
		{DriverName: "Joao", Badge: "AB12", Days: []Day{{Day: "Feriado", Shift: "06:00 - 14:00"}}},
		{DriverName: "Joao", Badge: "AB12", Days: []Day{{Day: "Segunda", Shift: "08:00 - 12:00"}}},
		{DriverName: "Joao", Badge: "AB12", Days: []Day{
			{Day: "Segunda", Shift: "06:00 - 14:00"},
			{Day: "Segunda", Shift: "14:00 - 22:00"},
		}},
	}
	for _, req := range cases {
		if _, err := svc.Create(context.Background(), req); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", req, err)
		}
	}
}

func TestForBadgeReturnsNewest(t *testing.T) {
	ctx := context.Background()
	svc := NewService(tickingStore())
	_, _ = svc.Create(ctx, Request{DriverName: "Joao", Badge: "AB12", Period: "old"})
	_, _ = svc.Create(ctx, Request{DriverName: "Maria", Badge: "CD34", Period: "other"})
	_, _ = svc.Create(ctx, Request{DriverName: "Joao", Badge: "AB12", Period: "new"})

	sc, err := svc.ForBadge(ctx, "AB12")
	if err != nil || sc.Period != "new" {
		t.Fatalf("expected newest roster, got %+v %v", sc, err)
	}
	if _, err := svc.ForBadge(ctx, "ZZ99"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 3 || list[0].Period != "new" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
}

func TestRemoveDeletesRoster(t *testing.T) {
	ctx := context.Background()
	svc := NewService(docstore.NewMemory())
	sc, _ := svc.Create(ctx, Request{DriverName: "Joao", Badge: "AB12"})

	if err := svc.Remove(ctx, sc.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, sc.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
	if _, err := svc.ForBadge(ctx, "AB12"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected no roster after remove, got %v", err)
	}
}
