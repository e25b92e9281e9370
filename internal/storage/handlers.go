package storage

import "github.com/gofiber/fiber/v2"

// RegisterAdminRoutes lists the archived objects of a trip session.
func RegisterAdminRoutes(r fiber.Router, svc *Service, adminMiddleware ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, adminMiddleware...), func(c *fiber.Ctx) error {
		objects, err := svc.Objects(c.Context(), c.Params("owner"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(objects)
	})
	r.Get("/storage/:owner", handlers...)
}
