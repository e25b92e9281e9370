package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/localstate"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/google/uuid"
)

type AdminAuthenticator interface {
	AuthenticateAdmin(email, password string) error
}

// Manager owns the session of one device: who is signed in, which screen is
// shown and what trip state to resume.
type Manager struct {
	mu       sync.Mutex
	local    localstate.Store
	dir      Directory
	admin    AdminAuthenticator
	screen   Screen
	user     *User
	bus      *catalog.Bus
	route    string
	cleanups []func()
	keyed    map[string]bool
}

func NewManager(local localstate.Store, dir Directory, admin AdminAuthenticator) *Manager {
	return &Manager{local: local, dir: dir, admin: admin, screen: ScreenWelcome}
}

// NormalizeBadge trims and upper-cases a badge id.
func NormalizeBadge(badge string) string {
	return strings.ToUpper(strings.TrimSpace(badge))
}

// CheckSession rebuilds the identity from local state without touching the
// network. Missing or malformed state yields nil.
func (m *Manager) CheckSession() *User {
	m.mu.Lock()
	defer m.mu.Unlock()

	role, _ := m.local.Get(keyRole)
	id, _ := m.local.Get(keyUserID)
	if !Role(role).Valid() || id == "" {
		m.reset()
		return nil
	}
	name, _ := m.local.Get(keyUserName)
	email, _ := m.local.Get(keyUserEmail)
	m.user = &User{ID: id, DisplayName: name, Role: Role(role), Email: email}
	m.route, _ = m.local.Get(keyActiveRoute)
	m.bus = nil

	switch Role(role) {
	case RoleDriver:
		m.screen = ScreenVehicleSelect
		if raw, ok := m.local.Get(keyBus); ok {
			var bus catalog.Bus
			if err := json.Unmarshal([]byte(raw), &bus); err == nil && bus.Plate != "" {
				m.bus = &bus
				m.screen = ScreenDriverHome
			}
		}
	case RolePassenger:
		m.screen = ScreenPassengerHome
	case RoleAdmin:
		m.screen = ScreenAdminDashboard
	}
	u := *m.user
	return &u
}

func (m *Manager) Enter() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		m.screen = ScreenRoleChoice
	}
	return m.state()
}

// ChooseRole moves from the role choice to the role's login screen. Passengers
// need no credentials and land on their home screen directly.
func (m *Manager) ChooseRole(role Role) (State, error) {
	if role == RolePassenger {
		if _, err := m.LoginPassenger(); err != nil {
			return m.State(), err
		}
		return m.State(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil {
		return m.state(), fmt.Errorf("already signed in as %s: %w", m.user.Role, apperrors.ErrInvalidInput)
	}
	switch role {
	case RoleDriver:
		m.screen = ScreenDriverLogin
	case RoleAdmin:
		m.screen = ScreenAdminLogin
	default:
		return m.state(), fmt.Errorf("unknown role %q: %w", role, apperrors.ErrInvalidInput)
	}
	return m.state(), nil
}

func (m *Manager) LoginDriver(ctx context.Context, badge string) (User, error) {
	badge = NormalizeBadge(badge)
	if badge == "" {
		return User{}, fmt.Errorf("badge required: %w", apperrors.ErrInvalidInput)
	}

	collab, err := m.dir.FindCollaborator(ctx, badge)
	if err != nil {
		m.setScreen(ScreenDriverLogin)
		return User{}, err
	}
	if !collab.Active {
		m.setScreen(ScreenDriverLogin)
		return User{}, fmt.Errorf("badge %s: %w", badge, apperrors.ErrInactive)
	}

	user := User{ID: collab.Badge, DisplayName: collab.Name, Role: RoleDriver, Email: collab.Email}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
	m.bus = nil
	m.route = ""
	m.screen = ScreenVehicleSelect
	m.persistUser(user)
	m.forget(keyBus, keyActiveRoute)
	return user, nil
}

func (m *Manager) SelectVehicle(bus catalog.Bus) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.user.Role != RoleDriver {
		return m.state(), fmt.Errorf("vehicle selection needs a driver: %w", apperrors.ErrNotReady)
	}
	m.bus = &bus
	m.screen = ScreenDriverHome
	if raw, err := json.Marshal(bus); err == nil {
		m.save(keyBus, string(raw))
	}
	return m.state(), nil
}

func (m *Manager) LoginAdmin(email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, fmt.Errorf("email and password required: %w", apperrors.ErrInvalidCredentials)
	}
	if m.admin == nil {
		return User{}, apperrors.ErrInvalidCredentials
	}
	if err := m.admin.AuthenticateAdmin(email, password); err != nil {
		m.setScreen(ScreenAdminLogin)
		return User{}, err
	}

	user := User{ID: strings.ToLower(email), DisplayName: "Administrador", Role: RoleAdmin, Email: email}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
	m.bus = nil
	m.screen = ScreenAdminDashboard
	m.persistUser(user)
	return user, nil
}

func (m *Manager) LoginPassenger() (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil && m.user.Role == RolePassenger {
		return *m.user, nil
	}
	if m.user != nil {
		return User{}, fmt.Errorf("already signed in as %s: %w", m.user.Role, apperrors.ErrInvalidInput)
	}
	user := User{ID: "passenger-" + uuid.NewString(), DisplayName: "Passageiro", Role: RolePassenger}
	m.user = &user
	m.screen = ScreenPassengerHome
	m.persistUser(user)
	return user, nil
}

func (m *Manager) SetActiveRoute(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.route = name
	m.save(keyActiveRoute, name)
}

func (m *Manager) ClearActiveRoute() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.route = ""
	m.forget(keyActiveRoute)
}

// OnLogout registers cleanup run once at the next Logout, newest first.
func (m *Manager) OnLogout(cleanup func()) {
	m.mu.Lock()
	m.cleanups = append(m.cleanups, cleanup)
	m.mu.Unlock()
}

// OnLogoutOnce is OnLogout for cleanups that must be registered at most once
// per session; later calls with the same key are ignored until Logout.
func (m *Manager) OnLogoutOnce(key string, cleanup func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keyed[key] {
		return
	}
	if m.keyed == nil {
		m.keyed = make(map[string]bool)
	}
	m.keyed[key] = true
	m.cleanups = append(m.cleanups, cleanup)
}

// Logout runs registered cleanups and clears persisted identity. Calling it
// again is a no-op.
func (m *Manager) Logout() {
	m.mu.Lock()
	cleanups := m.cleanups
	m.cleanups = nil
	m.keyed = nil
	m.reset()
	m.forget(allKeys...)
	m.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

func (m *Manager) state() State {
	s := State{Screen: m.screen, ActiveRoute: m.route}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	if m.bus != nil {
		b := *m.bus
		s.Bus = &b
	}
	return s
}

func (m *Manager) setScreen(screen Screen) {
	m.mu.Lock()
	m.screen = screen
	m.mu.Unlock()
}

func (m *Manager) reset() {
	m.user = nil
	m.bus = nil
	m.route = ""
	m.screen = ScreenWelcome
}

func (m *Manager) persistUser(u User) {
	m.save(keyRole, string(u.Role))
	m.save(keyUserID, u.ID)
	m.save(keyUserName, u.DisplayName)
	m.save(keyUserEmail, u.Email)
}

// Local state only helps resume after reload, so write failures are logged.
func (m *Manager) save(key, value string) {
	if err := m.local.Set(key, value); err != nil {
		log.Printf("session: persist %s: %v", key, err)
	}
}

func (m *Manager) forget(keys ...string) {
	if err := m.local.Delete(keys...); err != nil {
		log.Printf("session: clear state: %v", err)
	}
}
