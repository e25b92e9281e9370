// Package events holds the append-only logs shared across roles: emergency
// alerts raised by drivers, feedback and the notices posted by the admin.
package events

import (
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
)

type Kind string

const (
	KindEmergency Kind = "emergencias"
	KindFeedback  Kind = "feedbacks"

	NoticeCollection = "avisos"
)

func (k Kind) Valid() bool {
	return k == KindEmergency || k == KindFeedback
}

const (
	StatusPending  = "pendente"
	StatusResolved = "resolvido"
)

// Emergency types a driver can raise.
var EmergencyTypes = map[string]string{
	"acidente": "Acidente",
	"mecanico": "Mecânico",
	"saude":    "Saúde",
	"panico":   "PÂNICO",
}

// Notice audiences.
const (
	AudienceAll       = "todos"
	AudienceDriver    = "motorista"
	AudiencePassenger = "passageiro"
)

// AudienceFor maps a session role to the audience its notices target.
func AudienceFor(role session.Role) string {
	switch role {
	case session.RoleDriver:
		return AudienceDriver
	case session.RolePassenger:
		return AudiencePassenger
	}
	return ""
}

type Emergency struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	DriverName  string    `json:"driver_name"`
	Badge       string    `json:"badge"`
	BusPlate    string    `json:"bus_plate"`
	RouteName   string    `json:"route_name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Feedback struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Profile   string    `json:"profile"`
	Badge     string    `json:"badge,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Notice struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Audience  string    `json:"audience"`
	Active    bool      `json:"active"`
	SentBy    string    `json:"sent_by"`
	CreatedAt time.Time `json:"created_at"`
}

type EmergencyRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type FeedbackRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type NoticeRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Audience string `json:"audience"`
}

// Entry is a stored log record of either kind, as listed for the admin.
type Entry struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	Data      map[string]any `json:"data"`
}

func emergencyFromDocument(d docstore.Document) Emergency {
	return Emergency{
		ID:          d.ID,
		Type:        docstore.String(d.Data, "tipo"),
		DriverName:  docstore.String(d.Data, "motorista"),
		Badge:       docstore.String(d.Data, "matricula"),
		BusPlate:    docstore.String(d.Data, "onibus"),
		RouteName:   docstore.String(d.Data, "rota"),
		Description: docstore.String(d.Data, "descricao"),
		Status:      docstore.String(d.Data, "status"),
		CreatedAt:   docstore.Time(d.Data, "timestamp"),
	}
}

func noticeFromDocument(d docstore.Document) Notice {
	n := Notice{
		ID:        d.ID,
		Title:     docstore.String(d.Data, "titulo"),
		Message:   docstore.String(d.Data, "mensagem"),
		Audience:  docstore.String(d.Data, "destino"),
		SentBy:    docstore.String(d.Data, "enviadoPor"),
		CreatedAt: docstore.Time(d.Data, "timestamp"),
	}
	n.Active, _ = docstore.Bool(d.Data, "ativo")
	if n.Audience == "" {
		n.Audience = AudienceAll
	}
	return n
}

func entryFromDocument(d docstore.Document) Entry {
	return Entry{
		ID:        d.ID,
		Status:    docstore.String(d.Data, "status"),
		CreatedAt: docstore.Time(d.Data, "timestamp"),
		Data:      d.Data,
	}
}
