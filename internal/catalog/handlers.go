package catalog

import (
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/buses", func(c *fiber.Ctx) error {
		return c.JSON(svc.Buses(c.Context()))
	})

	r.Get("/buses/:plate", func(c *fiber.Ctx) error {
		bus, err := svc.FindBus(c.Context(), c.Params("plate"))
		if err != nil {
			return fiber.NewError(apperrors.Status(err), "bus not found")
		}
		return c.JSON(bus)
	})

	r.Get("/routes", func(c *fiber.Ctx) error {
		return c.JSON(svc.Routes(c.Context()))
	})
}

// RegisterAdminRoutes mounts the fleet and route maintenance endpoints.
func RegisterAdminRoutes(r fiber.Router, svc *Service, adminMiddleware ...fiber.Handler) {
	chain := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, adminMiddleware...), h)
	}

	r.Post("/buses", chain(func(c *fiber.Ctx) error {
		var req Bus
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		bus, err := svc.AddBus(c.Context(), req)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(bus)
	})...)

	r.Put("/buses/:plate", chain(func(c *fiber.Ctx) error {
		var req Bus
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		bus, err := svc.UpdateBus(c.Context(), c.Params("plate"), req)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(bus)
	})...)

	r.Delete("/buses/:plate", chain(func(c *fiber.Ctx) error {
		if err := svc.RemoveBus(c.Context(), c.Params("plate")); err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})...)

	r.Post("/routes", chain(func(c *fiber.Ctx) error {
		var req Route
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		route, err := svc.AddRoute(c.Context(), req)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(route)
	})...)

	r.Put("/routes/:id", chain(func(c *fiber.Ctx) error {
		var req Route
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		route, err := svc.UpdateRoute(c.Context(), c.Params("id"), req)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(route)
	})...)

	r.Delete("/routes/:id", chain(func(c *fiber.Ctx) error {
		if err := svc.RemoveRoute(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})...)
}
