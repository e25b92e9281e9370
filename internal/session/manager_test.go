package session

import (
	"context"
	"errors"
	"testing"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/catalog"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/localstate"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
)

type fakeDirectory struct {
	calls   int
	lookups []string
	byBadge map[string]Collaborator
	err     error
}

func (f *fakeDirectory) FindCollaborator(_ context.Context, badge string) (Collaborator, error) {
	f.calls++
	f.lookups = append(f.lookups, badge)
	if f.err != nil {
		return Collaborator{}, f.err
	}
	c, ok := f.byBadge[badge]
	if !ok {
		return Collaborator{}, apperrors.ErrNotFound
	}
	return c, nil
}

type fakeAdmin struct{ password string }

func (f fakeAdmin) AuthenticateAdmin(_ string, password string) error {
	if password != f.password {
		return apperrors.ErrInvalidCredentials
	}
	return nil
}

func newTestManager(local localstate.Store, dir *fakeDirectory) *Manager {
	return NewManager(local, dir, fakeAdmin{password: "ok"})
}

func TestLoginDriverNormalizesBadge(t *testing.T) {
	dir := &fakeDirectory{byBadge: map[string]Collaborator{"AB12": {Badge: "AB12", Name: "Joao", Active: true}}}
	m := newTestManager(localstate.NewMemory(), dir)

	user, err := m.LoginDriver(context.Background(), " ab12 ")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if dir.lookups[0] != "AB12" || user.ID != "AB12" || user.Role != RoleDriver {
		t.Fatalf("unexpected lookup %v user %+v", dir.lookups, user)
	}
	if m.State().Screen != ScreenVehicleSelect {
		t.Fatalf("expected vehicle select, got %s", m.State().Screen)
	}
}

func TestLoginDriverErrorsStayOnLogin(t *testing.T) {
	cases := []struct {
		name string
		dir  *fakeDirectory
		want error
	}{
		{"not found", &fakeDirectory{}, apperrors.ErrNotFound},
		{"inactive", &fakeDirectory{byBadge: map[string]Collaborator{"X": {Badge: "X", Active: false}}}, apperrors.ErrInactive},
		{"connection", &fakeDirectory{err: apperrors.ErrConnectionFailed}, apperrors.ErrConnectionFailed},
	}
	for _, tc := range cases {
		local := localstate.NewMemory()
		m := newTestManager(local, tc.dir)
		m.Enter()
		_, _ = m.ChooseRole(RoleDriver)
		_, err := m.LoginDriver(context.Background(), "x")
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		st := m.State()
		if st.Screen != ScreenDriverLogin || st.User != nil {
			t.Fatalf("%s: unexpected state %+v", tc.name, st)
		}
		if _, ok := local.Get(keyRole); ok {
			t.Fatalf("%s: identity persisted on failure", tc.name)
		}
	}
}

func TestLoginDriverEmptyBadge(t *testing.T) {
	dir := &fakeDirectory{}
	m := newTestManager(localstate.NewMemory(), dir)
	if _, err := m.LoginDriver(context.Background(), "   "); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if dir.calls != 0 {
		t.Fatalf("expected no lookup")
	}
}

func TestCheckSessionResumesWithoutNetwork(t *testing.T) {
	local := localstate.NewMemory()
	_ = local.Set(keyRole, "driver")
	_ = local.Set(keyUserID, "X")
	dir := &fakeDirectory{}

	m := newTestManager(local, dir)
	user := m.CheckSession()
	if user == nil || user.Role != RoleDriver || user.ID != "X" {
		t.Fatalf("unexpected user %+v", user)
	}
	if dir.calls != 0 {
		t.Fatalf("expected no directory call")
	}
	if m.State().Screen != ScreenVehicleSelect {
		t.Fatalf("expected vehicle select without a bus, got %s", m.State().Screen)
	}
}

func TestCheckSessionResumesDriverHomeWithBus(t *testing.T) {
	dir := &fakeDirectory{byBadge: map[string]Collaborator{"AB12": {Badge: "AB12", Name: "Joao", Active: true}}}
	local := localstate.NewMemory()
	m := newTestManager(local, dir)
	_, _ = m.LoginDriver(context.Background(), "AB12")
	_, _ = m.SelectVehicle(catalog.Bus{Plate: "SJD5G38"})
	m.SetActiveRoute("ROTA 02")

	reloaded := newTestManager(local, dir)
	user := reloaded.CheckSession()
	st := reloaded.State()
	if user == nil || st.Screen != ScreenDriverHome || st.Bus == nil || st.Bus.Plate != "SJD5G38" {
		t.Fatalf("unexpected resumed state %+v", st)
	}
	if st.ActiveRoute != "ROTA 02" {
		t.Fatalf("expected active route resumed, got %q", st.ActiveRoute)
	}
}

func TestCheckSessionMalformed(t *testing.T) {
	local := localstate.NewMemory()
	_ = local.Set(keyRole, "pilot")
	_ = local.Set(keyUserID, "X")
	m := newTestManager(local, &fakeDirectory{})
	if m.CheckSession() != nil || m.State().Screen != ScreenWelcome {
		t.Fatalf("expected no session")
	}

	local = localstate.NewMemory()
	_ = local.Set(keyRole, "driver")
	_ = local.Set(keyUserID, "X")
	_ = local.Set(keyBus, "{not json")
	m = newTestManager(local, &fakeDirectory{})
	if m.CheckSession() == nil || m.State().Screen != ScreenVehicleSelect {
		t.Fatalf("expected driver without bus")
	}
}

func TestRoleChoiceFlow(t *testing.T) {
	m := newTestManager(localstate.NewMemory(), &fakeDirectory{})
	if st := m.Enter(); st.Screen != ScreenRoleChoice {
		t.Fatalf("expected role choice, got %s", st.Screen)
	}
	if st, _ := m.ChooseRole(RoleAdmin); st.Screen != ScreenAdminLogin {
		t.Fatalf("expected admin login, got %s", st.Screen)
	}
	if _, err := m.ChooseRole("pilot"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid role")
	}
	st, err := m.ChooseRole(RolePassenger)
	if err != nil || st.Screen != ScreenPassengerHome || st.User == nil || st.User.Role != RolePassenger {
		t.Fatalf("unexpected passenger state %+v %v", st, err)
	}
}

func TestSelectVehicleRequiresDriver(t *testing.T) {
	m := newTestManager(localstate.NewMemory(), &fakeDirectory{})
	if _, err := m.SelectVehicle(catalog.Bus{Plate: "X"}); !errors.Is(err, apperrors.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestLoginAdmin(t *testing.T) {
	local := localstate.NewMemory()
	m := newTestManager(local, &fakeDirectory{})

	if _, err := m.LoginAdmin("admin@acparceria.com", "bad"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := m.LoginAdmin("", ""); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for empty input")
	}
	user, err := m.LoginAdmin("Admin@AcParceria.com", "ok")
	if err != nil || user.Role != RoleAdmin || user.ID != "admin@acparceria.com" {
		t.Fatalf("admin login: %+v %v", user, err)
	}
	if m.State().Screen != ScreenAdminDashboard {
		t.Fatalf("expected dashboard")
	}
	if role, _ := local.Get(keyRole); role != "admin" {
		t.Fatalf("expected admin persisted")
	}
}

func TestLogoutRunsCleanupsOnceAndClears(t *testing.T) {
	local := localstate.NewMemory()
	dir := &fakeDirectory{byBadge: map[string]Collaborator{"AB12": {Badge: "AB12", Active: true}}}
	m := newTestManager(local, dir)
	_, _ = m.LoginDriver(context.Background(), "AB12")

	var order []string
	m.OnLogout(func() { order = append(order, "first") })
	m.OnLogout(func() { order = append(order, "second") })

	m.Logout()
	m.Logout()

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("unexpected cleanup order %v", order)
	}
	if _, ok := local.Get(keyUserID); ok {
		t.Fatalf("identity not cleared")
	}
	if st := m.State(); st.User != nil || st.Screen != ScreenWelcome {
		t.Fatalf("unexpected state after logout %+v", st)
	}
	if m.CheckSession() != nil {
		t.Fatalf("expected no session after logout")
	}
}

func TestRegistryResumesOnce(t *testing.T) {
	local := localstate.NewMemory()
	_ = local.Set(keyRole, "passenger")
	_ = local.Set(keyUserID, "p-1")
	reg := NewRegistry(func(string) localstate.Store { return local }, &fakeDirectory{}, nil)

	m := reg.Get("device-1")
	if m.State().Screen != ScreenPassengerHome {
		t.Fatalf("expected resumed passenger, got %s", m.State().Screen)
	}
	if reg.Get("device-1") != m {
		t.Fatalf("expected same manager")
	}
}

func TestOnLogoutOnceRegistersOncePerSession(t *testing.T) {
	local := localstate.NewMemory()
	dir := &fakeDirectory{byBadge: map[string]Collaborator{"AB12": {Badge: "AB12", Active: true}}}
	m := newTestManager(local, dir)
	_, _ = m.LoginDriver(context.Background(), "AB12")

	calls := 0
	for i := 0; i < 3; i++ {
		m.OnLogoutOnce("trip", func() { calls++ })
	}
	m.Logout()
	if calls != 1 {
		t.Fatalf("expected one cleanup, got %d", calls)
	}

	_, _ = m.LoginDriver(context.Background(), "AB12")
	m.OnLogoutOnce("trip", func() { calls++ })
	m.Logout()
	if calls != 2 {
		t.Fatalf("expected cleanup registered again after logout, got %d", calls)
	}
}
