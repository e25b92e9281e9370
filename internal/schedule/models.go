// Package schedule keeps the weekly driver rosters of the escalas collection.
package schedule

import (
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
)

const Collection = "escalas"

var Weekdays = []string{"Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado", "Domingo"}

var Shifts = map[string]bool{
	"06:00 - 14:00": true,
	"14:00 - 22:00": true,
	"22:00 - 06:00": true,
}

type Day struct {
	Day   string `json:"dia"`
	Route string `json:"rota"`
	Shift string `json:"horario"`
}

type Schedule struct {
	ID         string    `json:"id"`
	DriverName string    `json:"motorista"`
	Badge      string    `json:"matricula"`
	Period     string    `json:"periodo"`
	Days       []Day     `json:"dias"`
	CreatedAt  time.Time `json:"created_at"`
}

type Request struct {
	DriverName string `json:"motorista"`
	Badge      string `json:"matricula"`
	Period     string `json:"periodo"`
	Days       []Day  `json:"dias"`
}

func dayFields(days []Day) []any {
	out := make([]any, 0, len(days))
	for _, d := range days {
		out = append(out, map[string]any{"dia": d.Day, "rota": d.Route, "horario": d.Shift})
	}
	return out
}

func fromDocument(d docstore.Document) Schedule {
	s := Schedule{
		ID:         d.ID,
		DriverName: docstore.String(d.Data, "motorista"),
		Badge:      docstore.String(d.Data, "matricula"),
		Period:     docstore.String(d.Data, "periodo"),
		CreatedAt:  docstore.Time(d.Data, "timestamp"),
		Days:       []Day{},
	}
	raw, _ := d.Data["dias"].([]any)
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		s.Days = append(s.Days, Day{
			Day:   docstore.String(m, "dia"),
			Route: docstore.String(m, "rota"),
			Shift: docstore.String(m, "horario"),
		})
	}
	return s
}
