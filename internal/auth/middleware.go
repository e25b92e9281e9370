package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTMiddleware validates bearer tokens and stores user_id, role and
// device_id in locals. Browsers cannot set headers on websocket upgrades, so
// the token may also arrive as the access_token query parameter.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || !parsed.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_name", claims.Name)
		c.Locals("role", claims.Role)
		c.Locals("device_id", claims.DeviceID)
		return c.Next()
	}
}

// RequireRole must run after JWTMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "role not allowed")
	}
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
