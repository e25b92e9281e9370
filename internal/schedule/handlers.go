package schedule

import (
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the driver's own roster, found through the device session.
func RegisterRoutes(r fiber.Router, svc *Service, sessions *session.Registry) {
	r.Get("/schedule", func(c *fiber.Ctx) error {
		deviceID := c.Get(session.DeviceHeader)
		if deviceID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "X-Device-ID header required")
		}
		st := sessions.Get(deviceID).State()
		if st.User == nil || st.User.Role != session.RoleDriver {
			return fiber.NewError(fiber.StatusConflict, "no driver signed in")
		}
		sc, err := svc.ForBadge(c.Context(), st.User.ID)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(sc)
	})
}

func RegisterAdminRoutes(r fiber.Router, svc *Service, adminMiddleware ...fiber.Handler) {
	chain := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, adminMiddleware...), h)
	}

	r.Get("/schedules", chain(func(c *fiber.Ctx) error {
		list, err := svc.List(c.Context())
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(list)
	})...)

	r.Post("/schedules", chain(func(c *fiber.Ctx) error {
		var req Request
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sc, err := svc.Create(c.Context(), req)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(sc)
	})...)

	r.Delete("/schedules/:id", chain(func(c *fiber.Ctx) error {
		if err := svc.Remove(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})...)
}
