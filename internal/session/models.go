package session

import "github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"

type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleDriver || r == RolePassenger || r == RoleAdmin
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	Email       string `json:"email,omitempty"`
}

type Screen string

const (
	ScreenWelcome        Screen = "welcome"
	ScreenRoleChoice     Screen = "role_choice"
	ScreenDriverLogin    Screen = "driver_login"
	ScreenVehicleSelect  Screen = "vehicle_select"
	ScreenDriverHome     Screen = "driver_home"
	ScreenPassengerHome  Screen = "passenger_home"
	ScreenAdminLogin     Screen = "admin_login"
	ScreenAdminDashboard Screen = "admin_dashboard"
)

// State is a snapshot of one device's session.
type State struct {
	Screen      Screen       `json:"screen"`
	User        *User        `json:"user,omitempty"`
	Bus         *catalog.Bus `json:"bus,omitempty"`
	ActiveRoute string       `json:"active_route,omitempty"`
}

// Collaborator is a registered employee allowed to drive.
type Collaborator struct {
	Badge  string
	Name   string
	Email  string
	Active bool
}

// persisted keys
const (
	keyRole        = "role"
	keyUserID      = "user_id"
	keyUserName    = "user_name"
	keyUserEmail   = "user_email"
	keyBus         = "bus"
	keyActiveRoute = "active_route"
)

var allKeys = []string{keyRole, keyUserID, keyUserName, keyUserEmail, keyBus, keyActiveRoute}
