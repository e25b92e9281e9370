package events

import (
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/session"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the driver and passenger endpoints. authMiddleware
// must populate the user_id, role and device_id locals.
func RegisterRoutes(r fiber.Router, svc *Service, sessions *session.Registry, authMiddleware ...fiber.Handler) {
	state := func(c *fiber.Ctx) (session.State, error) {
		userID, _ := c.Locals("user_id").(string)
		deviceID, _ := c.Locals("device_id").(string)
		if deviceID == "" {
			return session.State{}, fiber.NewError(fiber.StatusUnauthorized, "token has no device")
		}
		st := sessions.Get(deviceID).State()
		if st.User == nil || st.User.ID != userID {
			return st, fiber.NewError(fiber.StatusConflict, "session does not match token")
		}
		return st, nil
	}

	group := r.Group("", authMiddleware...)

	group.Post("/emergencies", func(c *fiber.Ctx) error {
		st, err := state(c)
		if err != nil {
			return err
		}
		var req EmergencyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		e, err := svc.RaiseEmergency(c.Context(), st, req)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(e)
	})

	group.Post("/feedbacks", func(c *fiber.Ctx) error {
		st, err := state(c)
		if err != nil {
			return err
		}
		var req FeedbackRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		f, err := svc.SubmitFeedback(c.Context(), st, req)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(f)
	})

	group.Get("/notices", func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		notices, err := svc.ActiveNotices(c.Context(), session.Role(role))
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(notices)
	})
}

// RegisterAdminRoutes mounts the dashboard endpoints behind adminMiddleware.
func RegisterAdminRoutes(r fiber.Router, svc *Service, adminMiddleware ...fiber.Handler) {
	chain := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, adminMiddleware...), h)
	}

	r.Get("/events/:kind", chain(func(c *fiber.Ctx) error {
		kind := Kind(c.Params("kind"))
		if kind == KindEmergency {
			list, err := svc.PendingEmergencies(c.Context())
			if err != nil {
				return fiber.NewError(apperrors.Status(err), err.Error())
			}
			return c.JSON(list)
		}
		list, err := svc.Pending(c.Context(), kind)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(list)
	})...)

	r.Post("/events/:kind/:id/resolve", chain(func(c *fiber.Ctx) error {
		by, _ := c.Locals("user_name").(string)
		if err := svc.Resolve(c.Context(), Kind(c.Params("kind")), c.Params("id"), by); err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})...)

	r.Get("/notices", chain(func(c *fiber.Ctx) error {
		notices, err := svc.ActiveNotices(c.Context(), "")
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(notices)
	})...)

	r.Post("/notices", chain(func(c *fiber.Ctx) error {
		var req NoticeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		by, _ := c.Locals("user_name").(string)
		n, err := svc.PostNotice(c.Context(), by, req)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(n)
	})...)

	r.Delete("/notices/:id", chain(func(c *fiber.Ctx) error {
		if err := svc.RemoveNotice(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})...)
}
