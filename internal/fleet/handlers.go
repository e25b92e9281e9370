package fleet

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/livetrip"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const wsBuffer = 4

type focusRequest struct {
	Focus string `json:"focus"`
}

type focusMessage struct {
	Type     string  `json:"type"`
	DriverID string  `json:"driver_id"`
	Camera   *Camera `json:"camera"`
}

// RegisterRoutes mounts the passenger view.
func RegisterRoutes(r fiber.Router, sub *Subscriber) {
	mount(r, ViewPassenger, sub, "/trips", nil)
}

// RegisterAdminRoutes mounts the dashboard view behind adminMiddleware.
func RegisterAdminRoutes(r fiber.Router, sub *Subscriber, adminMiddleware ...fiber.Handler) {
	mount(r, ViewAdmin, sub, "/fleet", adminMiddleware)
}

func mount(r fiber.Router, view View, sub *Subscriber, path string, mw []fiber.Handler) {
	chain := func(h ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, mw...), h...)
	}

	r.Get(path, chain(func(c *fiber.Ctx) error {
		trips, err := sub.Snapshot(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.JSON(BuildSnapshot(view, trips))
	})...)

	r.Get(path+"/focus/:driverID", chain(func(c *fiber.Ctx) error {
		trips, err := sub.Snapshot(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		var ms MarkerSet
		if !Focus(&ms, trips, c.Params("driverID")) {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(focusMessage{Type: "focus", DriverID: c.Params("driverID"), Camera: ms.Camera})
	})...)

	wsPath := path + "/ws"
	if view == ViewPassenger {
		wsPath = "/ws"
	}
	upgrade := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
	r.Get(wsPath, chain(upgrade, websocket.New(func(c *websocket.Conn) {
		serveFeed(c, view, sub)
	}))...)
}

func serveFeed(c *websocket.Conn, view View, sub *Subscriber) {
	send := make(chan []byte, wsBuffer)
	var sendMu sync.Mutex
	// a full buffer drops its oldest message; snapshots are complete so only
	// the newest matters
	push := func(msg []byte) {
		sendMu.Lock()
		defer sendMu.Unlock()
		select {
		case send <- msg:
		default:
			select {
			case <-send:
			default:
			}
			send <- msg
		}
	}

	var mu sync.Mutex
	var latest []livetrip.LiveTrip
	unsub, err := sub.SubscribeActiveTrips(func(trips []livetrip.LiveTrip) {
		mu.Lock()
		latest = trips
		mu.Unlock()
		payload, err := json.Marshal(BuildSnapshot(view, trips))
		if err != nil {
			log.Printf("fleet: encode snapshot: %v", err)
			return
		}
		push(payload)
	})
	if err != nil {
		log.Printf("fleet: subscribe %s feed: %v", view, err)
		_ = c.Close()
		return
	}

	stop := func() {
		unsub()
		sendMu.Lock()
		close(send)
		sendMu.Unlock()
	}
	stream.Pump(c, send, stop, func(msg []byte) {
		var req focusRequest
		if err := json.Unmarshal(msg, &req); err != nil || req.Focus == "" {
			return
		}
		mu.Lock()
		trips := latest
		mu.Unlock()
		var ms MarkerSet
		if !Focus(&ms, trips, req.Focus) {
			return
		}
		payload, _ := json.Marshal(focusMessage{Type: "focus", DriverID: req.Focus, Camera: ms.Camera})
		push(payload)
	})
}
