package history

import (
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/gofiber/fiber/v2"
)

// RegisterAdminRoutes mounts the trip history endpoints behind adminMiddleware.
func RegisterAdminRoutes(r fiber.Router, svc *Service, adminMiddleware ...fiber.Handler) {
	chain := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, adminMiddleware...), h)
	}

	r.Get("/history/drivers/:driverID", chain(func(c *fiber.Ctx) error {
		sessions, err := svc.ByDriver(c.Context(), c.Params("driverID"), c.QueryInt("limit", defaultListLimit))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sessions)
	})...)

	r.Get("/history/sessions/:id/summary", chain(func(c *fiber.Ctx) error {
		summary, err := svc.Summary(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(summary)
	})...)

	r.Get("/history/sessions/:id/points", chain(func(c *fiber.Ctx) error {
		points, err := svc.Points(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(points)
	})...)

	r.Get("/history/sessions/:id/gpx", chain(func(c *fiber.Ctx) error {
		body, err := svc.GPX(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		c.Set(fiber.HeaderContentType, gpxContentType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+c.Params("id")+`.gpx"`)
		return c.Send(body)
	})...)
}
