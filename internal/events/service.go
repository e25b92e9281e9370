package events

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

const maxMessage = 2000

// Notifier fans a new emergency out to whoever watches for alerts.
type Notifier interface {
	NotifyEmergency(ctx context.Context, e Emergency) error
}

type Service struct {
	store    docstore.Store
	notifier Notifier
}

func NewService(store docstore.Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// RaiseEmergency records an alert for the driver's current bus and route.
// A failed fan-out is logged; the stored alert is what the dashboard reads.
func (s *Service) RaiseEmergency(ctx context.Context, st session.State, req EmergencyRequest) (Emergency, error) {
	if st.User == nil || st.User.Role != session.RoleDriver {
		return Emergency{}, apperrors.ErrNotReady
	}
	kind := strings.ToLower(strings.TrimSpace(req.Type))
	if _, ok := EmergencyTypes[kind]; !ok {
		return Emergency{}, fmt.Errorf("emergency type %q: %w", req.Type, apperrors.ErrInvalidInput)
	}

	e := Emergency{
		Type:        kind,
		DriverName:  st.User.DisplayName,
		Badge:       st.User.ID,
		RouteName:   st.ActiveRoute,
		Description: strings.TrimSpace(req.Description),
		Status:      StatusPending,
	}
	if st.Bus != nil {
		e.BusPlate = st.Bus.Plate
	}

	id, err := s.store.Append(ctx, string(KindEmergency), map[string]any{
		"tipo":      e.Type,
		"motorista": e.DriverName,
		"matricula": e.Badge,
		"onibus":    e.BusPlate,
		"rota":      e.RouteName,
		"descricao": e.Description,
		"status":    e.Status,
		"timestamp": docstore.ServerTimestamp,
	})
	if err != nil {
		return Emergency{}, fmt.Errorf("emergencias: %w", apperrors.ErrConnectionFailed)
	}
	e.ID = id
	if d, err := s.store.Get(ctx, string(KindEmergency), id); err == nil {
		e.CreatedAt = docstore.Time(d.Data, "timestamp")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyEmergency(ctx, e); err != nil {
			log.Printf("events: notify emergency %s: %v", id, err)
		}
	}
	return e, nil
}

// SubmitFeedback stores a message from a driver or passenger.
func (s *Service) SubmitFeedback(ctx context.Context, st session.State, req FeedbackRequest) (Feedback, error) {
	if st.User == nil {
		return Feedback{}, apperrors.ErrNotReady
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" || len(msg) > maxMessage {
		return Feedback{}, fmt.Errorf("feedback message: %w", apperrors.ErrInvalidInput)
	}
	f := Feedback{
		Type:    strings.TrimSpace(req.Type),
		Message: msg,
		Author:  st.User.DisplayName,
		Profile: AudienceFor(st.User.Role),
		Status:  StatusPending,
	}
	if f.Type == "" {
		f.Type = "sugestao"
	}
	fields := map[string]any{
		"tipo":      f.Type,
		"mensagem":  f.Message,
		"autor":     f.Author,
		"perfil":    f.Profile,
		"status":    f.Status,
		"timestamp": docstore.ServerTimestamp,
	}
	if st.User.Role == session.RoleDriver {
		f.Badge = st.User.ID
		fields["matricula"] = f.Badge
		fields["motorista"] = f.Author
	}

	id, err := s.store.Append(ctx, string(KindFeedback), fields)
	if err != nil {
		return Feedback{}, fmt.Errorf("feedbacks: %w", apperrors.ErrConnectionFailed)
	}
	f.ID = id
	return f, nil
}

// PostNotice publishes a notice for the given audience.
func (s *Service) PostNotice(ctx context.Context, sentBy string, req NoticeRequest) (Notice, error) {
	title := strings.TrimSpace(req.Title)
	msg := strings.TrimSpace(req.Message)
	if title == "" || msg == "" {
		return Notice{}, fmt.Errorf("notice title and message: %w", apperrors.ErrInvalidInput)
	}
	audience := req.Audience
	switch audience {
	case "":
		audience = AudienceAll
	case AudienceAll, AudienceDriver, AudiencePassenger:
	default:
		return Notice{}, fmt.Errorf("notice audience %q: %w", req.Audience, apperrors.ErrInvalidInput)
	}
	if sentBy == "" {
		sentBy = "Admin"
	}

	n := Notice{Title: title, Message: msg, Audience: audience, Active: true, SentBy: sentBy}
	id, err := s.store.Append(ctx, NoticeCollection, map[string]any{
		"titulo":     n.Title,
		"mensagem":   n.Message,
		"destino":    n.Audience,
		"ativo":      true,
		"enviadoPor": n.SentBy,
		"timestamp":  docstore.ServerTimestamp,
	})
	if err != nil {
		return Notice{}, fmt.Errorf("avisos: %w", apperrors.ErrConnectionFailed)
	}
	n.ID = id
	return n, nil
}

// Resolve marks an emergency or feedback entry as handled.
func (s *Service) Resolve(ctx context.Context, kind Kind, id, resolvedBy string) error {
	if !kind.Valid() {
		return fmt.Errorf("event kind %q: %w", kind, apperrors.ErrInvalidInput)
	}
	if _, err := s.store.Get(ctx, string(kind), id); err != nil {
		return err
	}
	return s.store.MergeWrite(ctx, string(kind), id, map[string]any{
		"status":       StatusResolved,
		"resolvidoPor": resolvedBy,
		"resolvidoEm":  docstore.ServerTimestamp,
	})
}

// RemoveNotice deactivates a notice. The entry stays in the log.
func (s *Service) RemoveNotice(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, NoticeCollection, id); err != nil {
		return err
	}
	return s.store.MergeWrite(ctx, NoticeCollection, id, map[string]any{"ativo": false})
}

// Pending lists unresolved entries of kind, oldest first.
func (s *Service) Pending(ctx context.Context, kind Kind) ([]Entry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("event kind %q: %w", kind, apperrors.ErrInvalidInput)
	}
	docs, err := s.store.QueryEqual(ctx, string(kind), "status", StatusPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, apperrors.ErrConnectionFailed)
	}
	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, entryFromDocument(d))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// PendingEmergencies is Pending for the emergency log, typed.
func (s *Service) PendingEmergencies(ctx context.Context) ([]Emergency, error) {
	docs, err := s.store.QueryEqual(ctx, string(KindEmergency), "status", StatusPending)
	if err != nil {
		return nil, fmt.Errorf("emergencias: %w", apperrors.ErrConnectionFailed)
	}
	out := make([]Emergency, 0, len(docs))
	for _, d := range docs {
		out = append(out, emergencyFromDocument(d))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ActiveNotices lists the active notices addressed to role, newest first. An
// empty role returns every active notice.
func (s *Service) ActiveNotices(ctx context.Context, role session.Role) ([]Notice, error) {
	docs, err := s.store.QueryEqual(ctx, NoticeCollection, "ativo", true)
	if err != nil {
		return nil, fmt.Errorf("avisos: %w", apperrors.ErrConnectionFailed)
	}
	audience := AudienceFor(role)
	out := make([]Notice, 0, len(docs))
	for _, d := range docs {
		n := noticeFromDocument(d)
		if role != "" && role != session.RoleAdmin && n.Audience != AudienceAll && n.Audience != audience {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
