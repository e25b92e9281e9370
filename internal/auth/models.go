package auth

import "github.com/golang-jwt/jwt/v5"

const refreshCollection = "refresh_tokens"

// Identity is what a token vouches for.
type Identity struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	DeviceID string `json:"device_id,omitempty"`
}

type Claims struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Name: c.Name, Role: c.Role, DeviceID: c.DeviceID}
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
