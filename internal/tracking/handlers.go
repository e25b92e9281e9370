package tracking

import (
	"context"
	"log"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	RouteName string `json:"route_name"`
	// GPS is what the device knows about positioning: "", "ok", "denied" or "unavailable".
	GPS string `json:"gps"`
}

type errorReport struct {
	Code string `json:"code"`
}

type currentResponse struct {
	Trip        *Status `json:"trip"`
	ActiveRoute string  `json:"active_route,omitempty"`
}

var positionErrors = map[string]error{
	"":            nil,
	"ok":          nil,
	"denied":      apperrors.ErrPermissionDenied,
	"unavailable": apperrors.ErrPositionUnavailable,
	"timeout":     apperrors.ErrPositionTimeout,
}

// RegisterRoutes mounts the driver endpoints. authMiddleware must populate
// user_id and device_id locals.
func RegisterRoutes(r fiber.Router, trips *Trips, sessions *session.Registry, wakeLock func(deviceID string) WakeLock, authMiddleware ...fiber.Handler) {
	driver := func(c *fiber.Ctx) (*session.Manager, session.State, error) {
		userID, _ := c.Locals("user_id").(string)
		deviceID, _ := c.Locals("device_id").(string)
		if deviceID == "" {
			return nil, session.State{}, fiber.NewError(fiber.StatusUnauthorized, "token has no device")
		}
		m := sessions.Get(deviceID)
		st := m.State()
		if st.User == nil || st.User.ID != userID {
			return nil, st, fiber.NewError(fiber.StatusConflict, "session does not match token")
		}
		return m, st, nil
	}

	group := r.Group("", authMiddleware...)

	group.Post("/trips", func(c *fiber.Ctx) error {
		m, st, err := driver(c)
		if err != nil {
			return err
		}
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.RouteName == "" {
			req.RouteName = st.ActiveRoute
		}
		gpsErr, ok := positionErrors[req.GPS]
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown gps status")
		}

		var lock WakeLock
		if wakeLock != nil {
			lock = wakeLock(c.Locals("device_id").(string))
		}
		h, err := trips.Start(c.Context(), st, req.RouteName, gpsErr, lock)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}

		driverID := h.DriverID
		m.SetActiveRoute(h.RouteName)
		m.OnLogoutOnce("tracking", func() {
			if err := trips.Stop(context.Background(), driverID); err != nil {
				log.Printf("tracking: stop on logout driver=%s: %v", driverID, err)
			}
		})
		return c.Status(fiber.StatusCreated).JSON(h.Status())
	})

	group.Post("/fixes", func(c *fiber.Ctx) error {
		_, st, err := driver(c)
		if err != nil {
			return err
		}
		var fix Fix
		if err := c.BodyParser(&fix); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := trips.Push(st.User.ID, fix); err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	group.Post("/errors", func(c *fiber.Ctx) error {
		_, st, err := driver(c)
		if err != nil {
			return err
		}
		var req errorReport
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		cause, ok := positionErrors[req.Code]
		if !ok || cause == nil {
			return fiber.NewError(fiber.StatusBadRequest, "unknown error code")
		}
		if err := trips.Fail(st.User.ID, cause); err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	group.Delete("/trips", func(c *fiber.Ctx) error {
		m, st, err := driver(c)
		if err != nil {
			return err
		}
		m.ClearActiveRoute()
		if err := trips.Stop(c.Context(), st.User.ID); err != nil {
			// the trip is stopped locally but the record may still read active=true
			return c.JSON(fiber.Map{"warning": err.Error()})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	group.Get("/trips/current", func(c *fiber.Ctx) error {
		_, st, err := driver(c)
		if err != nil {
			return err
		}
		resp := currentResponse{ActiveRoute: st.ActiveRoute}
		if h, ok := trips.Current(st.User.ID); ok {
			s := h.Status()
			resp.Trip = &s
		}
		return c.JSON(resp)
	})
}
