package presence

import (
	"encoding/json"
	"log"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Topic is the hub topic presence snapshots are broadcast on.
const Topic = "presence"

// Broadcast forwards every snapshot of m to the hub.
func Broadcast(m *Monitor, hub *stream.Hub) func() {
	return m.OnUpdate(func(s Snapshot) {
		payload, err := json.Marshal(s)
		if err != nil {
			log.Printf("presence: encode snapshot: %v", err)
			return
		}
		hub.Broadcast(Topic, payload)
	})
}

func RegisterRoutes(r fiber.Router, m *Monitor, hub *stream.Hub, adminMiddleware ...fiber.Handler) {
	chain := func(h ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, adminMiddleware...), h...)
	}

	r.Get("/presence", chain(func(c *fiber.Ctx) error {
		if snap, ok := m.Latest(); ok {
			return c.JSON(snap)
		}
		snap, err := m.Reconcile(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.JSON(snap)
	})...)

	r.Get("/presence/ws", chain(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(Topic)
		if snap, ok := m.Latest(); ok {
			if payload, err := json.Marshal(snap); err == nil {
				select {
				case client.Send <- payload:
				default:
				}
			}
		}
		stream.Pump(c, client.Send, func() { hub.Unregister(client) }, nil)
	}))...)
}
