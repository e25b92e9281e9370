package session

import (
	"context"
	"errors"
	"log"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/auth"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/gofiber/fiber/v2"
)

const DeviceHeader = "X-Device-ID"

type TokenIssuer interface {
	GenerateTokens(ctx context.Context, id auth.Identity) (auth.TokenResponse, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

type BusFinder interface {
	FindBus(ctx context.Context, plate string) (catalog.Bus, error)
}

type loginResponse struct {
	User   User               `json:"user"`
	State  State              `json:"state"`
	Tokens auth.TokenResponse `json:"tokens"`
}

func RegisterRoutes(r fiber.Router, reg *Registry, buses BusFinder, tokens TokenIssuer) {
	device := func(c *fiber.Ctx) (*Manager, string, error) {
		id := c.Get(DeviceHeader)
		if id == "" {
			return nil, "", fiber.NewError(fiber.StatusBadRequest, "X-Device-ID header required")
		}
		return reg.Get(id), id, nil
	}

	issue := func(c *fiber.Ctx, m *Manager, deviceID string, user User) error {
		resp, err := tokens.GenerateTokens(c.Context(), auth.Identity{
			UserID:   user.ID,
			Name:     user.DisplayName,
			Role:     string(user.Role),
			DeviceID: deviceID,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(loginResponse{User: user, State: m.State(), Tokens: resp})
	}

	r.Get("/", func(c *fiber.Ctx) error {
		m, _, err := device(c)
		if err != nil {
			return err
		}
		return c.JSON(m.State())
	})

	r.Post("/enter", func(c *fiber.Ctx) error {
		m, _, err := device(c)
		if err != nil {
			return err
		}
		return c.JSON(m.Enter())
	})

	r.Post("/role", func(c *fiber.Ctx) error {
		m, id, err := device(c)
		if err != nil {
			return err
		}
		var body struct {
			Role Role `json:"role"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		state, err := m.ChooseRole(body.Role)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		if body.Role == RolePassenger && state.User != nil {
			return issue(c, m, id, *state.User)
		}
		return c.JSON(state)
	})

	r.Post("/driver", func(c *fiber.Ctx) error {
		m, id, err := device(c)
		if err != nil {
			return err
		}
		var body struct {
			Badge string `json:"badge"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		user, err := m.LoginDriver(c.Context(), body.Badge)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), driverLoginMessage(err))
		}
		return issue(c, m, id, user)
	})

	r.Post("/vehicle", func(c *fiber.Ctx) error {
		m, _, err := device(c)
		if err != nil {
			return err
		}
		var body struct {
			Plate string `json:"plate"`
		}
		if err := c.BodyParser(&body); err != nil || body.Plate == "" {
			return fiber.NewError(fiber.StatusBadRequest, "plate required")
		}
		bus, err := buses.FindBus(c.Context(), body.Plate)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), "bus not found")
		}
		state, err := m.SelectVehicle(bus)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), err.Error())
		}
		return c.JSON(state)
	})

	r.Post("/admin", func(c *fiber.Ctx) error {
		m, id, err := device(c)
		if err != nil {
			return err
		}
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		user, err := m.LoginAdmin(body.Email, body.Password)
		if err != nil {
			return fiber.NewError(apperrors.Status(err), "invalid credentials")
		}
		return issue(c, m, id, user)
	})

	r.Post("/logout", func(c *fiber.Ctx) error {
		m, id, err := device(c)
		if err != nil {
			return err
		}
		var body auth.RefreshRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if body.RefreshToken != "" {
			if err := tokens.RevokeRefreshToken(c.Context(), body.RefreshToken); err != nil {
				log.Printf("session: revoke refresh token device=%s: %v", id, err)
			}
		}
		m.Logout()
		return c.JSON(m.State())
	})
}

func driverLoginMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "badge not found"
	case errors.Is(err, apperrors.ErrInactive):
		return "collaborator inactive, contact the administrator"
	case errors.Is(err, apperrors.ErrConnectionFailed):
		return "connection failed, try again"
	}
	return err.Error()
}
