package service_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/repository"
	"github.com/datifyy/datifyy-service/internal/service"
)

func seedAdmin(t *testing.T, admins *memAdmins, email string, level domain.AdminPermissionLevel) *domain.AdminUser {
	t.Helper()
	admin := &domain.AdminUser{
		Email:           email,
		FirstName:       "Seed",
		PermissionLevel: level,
		AccountStatus:   domain.AdminStatusActive,
		IsActive:        true,
		Timezone:        "UTC",
	}
	require.NoError(t, admins.Create(context.Background(), admin))
	return admin
}

func TestAdminCreateRespectsLevels(t *testing.T) {
	clk := newClock()
	admins := newMemAdmins()
	svc := service.NewAdminService(testAuthConfig(), service.AdminServiceDependencies{AdminRepo: admins, Now: clk.Now})
	ctx := context.Background()
	boss := seedAdmin(t, admins, "boss@datifyy.com", domain.AdminLevelSuperAdmin)

	created, err := svc.Create(ctx, boss, service.AdminCreateInput{
		Email:     "New.Mod@Datifyy.com",
		Password:  "twelve-chars-min",
		FirstName: "Mo",
	})
	require.NoError(t, err)
	require.Equal(t, "new.mod@datifyy.com", created.Email)
	require.Equal(t, domain.AdminLevelViewer, created.PermissionLevel)
	require.True(t, created.MustChangePassword)
	require.Equal(t, boss.ID, *created.CreatedBy)
	require.Equal(t, clk.Now().AddDate(0, 0, 90), *created.PasswordExpiryDate)

	_, err = svc.Create(ctx, boss, service.AdminCreateInput{Email: "new.mod@datifyy.com", Password: "twelve-chars-min", FirstName: "Mo"})
	require.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = svc.Create(ctx, boss, service.AdminCreateInput{Email: "x@datifyy.com", Password: "short", FirstName: "X"})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.Create(ctx, boss, service.AdminCreateInput{
		Email: "owner@datifyy.com", Password: "twelve-chars-min", FirstName: "O", PermissionLevel: domain.AdminLevelOwner,
	})
	require.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = svc.Create(ctx, boss, service.AdminCreateInput{
		Email: "perm@datifyy.com", Password: "twelve-chars-min", FirstName: "P", AdditionalPermissions: []string{"launch_rockets"},
	})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestAdminManagement(t *testing.T) {
	clk := newClock()
	admins := newMemAdmins()
	svc := service.NewAdminService(testAuthConfig(), service.AdminServiceDependencies{AdminRepo: admins, Now: clk.Now})
	ctx := context.Background()
	boss := seedAdmin(t, admins, "boss@datifyy.com", domain.AdminLevelSuperAdmin)
	viewer := seedAdmin(t, admins, "viewer@datifyy.com", domain.AdminLevelViewer)
	owner := seedAdmin(t, admins, "owner@datifyy.com", domain.AdminLevelOwner)

	_, err := svc.Lock(ctx, boss, boss.ID, time.Hour)
	require.Equal(t, http.StatusForbidden, statusOf(t, err), "self management is refused")

	_, err = svc.Lock(ctx, boss, owner.ID, time.Hour)
	require.Equal(t, http.StatusForbidden, statusOf(t, err))

	locked, err := svc.Lock(ctx, boss, viewer.ID, 0)
	require.NoError(t, err)
	require.True(t, locked.IsLocked(clk.Now()))
	require.Equal(t, clk.Now().Add(domain.DefaultAdminLockDuration), *locked.LockExpiresAt)

	unlocked, err := svc.Unlock(ctx, boss, viewer.ID)
	require.NoError(t, err)
	require.False(t, unlocked.IsLocked(clk.Now()))
	require.Equal(t, domain.AdminStatusActive, unlocked.AccountStatus)

	promoted, err := svc.UpdatePermission(ctx, boss, viewer.ID, domain.AdminLevelModerator, []string{string(domain.PermissionBanUsers)})
	require.NoError(t, err)
	require.Equal(t, domain.AdminLevelModerator, promoted.PermissionLevel)
	require.Equal(t, boss.ID, *promoted.UpdatedBy)

	_, err = svc.UpdatePermission(ctx, boss, viewer.ID, domain.AdminLevelOwner, nil)
	require.Equal(t, http.StatusForbidden, statusOf(t, err))

	require.NoError(t, svc.Deactivate(ctx, boss, viewer.ID))
	stored, err := svc.Get(ctx, viewer.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)

	active := true
	page, err := svc.List(ctx, service.AdminListFilter{Active: &active}, service.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	_, err = svc.Get(ctx, "missing")
	require.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestUserModeration(t *testing.T) {
	users := newMemUsers()
	svc := service.NewUserAdminService(users, nil)
	ctx := context.Background()
	user := users.add(domain.User{Email: "troll@example.com"})

	_, err := svc.Ban(ctx, "mod-1", user.ID, "  ")
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	suspended, err := svc.Suspend(ctx, "mod-1", user.ID, "spam")
	require.NoError(t, err)
	require.Equal(t, domain.UserStatusSuspended, suspended.Status)

	_, err = svc.Suspend(ctx, "mod-1", user.ID, "spam again")
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	banned, err := svc.Ban(ctx, "mod-1", user.ID, "harassment")
	require.NoError(t, err)
	require.False(t, banned.IsActive)

	_, err = svc.Ban(ctx, "mod-1", user.ID, "harassment")
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	restored, err := svc.Unban(ctx, "mod-2", user.ID, "")
	require.NoError(t, err)
	require.Equal(t, domain.UserStatusActive, restored.Status)

	detail, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 3)
	require.Equal(t, "mod-2", detail.History[2].AdminID)

	banStatus := domain.UserStatusBanned
	page, err := svc.List(ctx, service.UserListFilter{Status: &banStatus}, service.Pagination{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
}

func TestWaitlist(t *testing.T) {
	entries := newMemWaitlist()
	rec := &recorder{}
	svc := service.NewWaitlistService(service.WaitlistDependencies{WaitlistRepo: entries, Dispatcher: rec})
	ctx := context.Background()

	entry, err := svc.Join(ctx, service.WaitlistJoinInput{Name: " Ana ", Email: "Ana@Example.com", IPAddress: "1.2.3.4"})
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", entry.Email)
	require.Equal(t, domain.WaitlistStatusWaiting, entry.Status)
	require.Equal(t, "1.2.3.4", *entry.IPAddress)
	require.Nil(t, entry.UserAgent)

	_, err = svc.Join(ctx, service.WaitlistJoinInput{Name: "Ana", Email: "ana@example.com"})
	require.Equal(t, http.StatusConflict, statusOf(t, err))

	lat := 123.0
	_, err = svc.Join(ctx, service.WaitlistJoinInput{Name: "Geo", Email: "geo@example.com", Latitude: &lat})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.Join(ctx, service.WaitlistJoinInput{Email: "noname@example.com"})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	for i := 0; i < 3; i++ {
		_, err := svc.Join(ctx, service.WaitlistJoinInput{Name: "Guest", Email: fmt.Sprintf("guest%d@example.com", i)})
		require.NoError(t, err)
	}

	invited, err := svc.Invite(ctx, "admin-1", entry.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WaitlistStatusInvited, invited.Status)
	require.NotNil(t, invited.InvitedAt)
	require.Equal(t, []events.EventType{events.EventWaitlistEntryInvited}, rec.types())

	_, err = svc.Invite(ctx, "admin-1", entry.ID)
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, count)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 3, stats.ByStatus[domain.WaitlistStatusWaiting])
	require.Equal(t, 1, stats.ByStatus[domain.WaitlistStatusInvited])
	require.Zero(t, stats.ByStatus[domain.WaitlistStatusJoined])

	page, err := svc.List(ctx, nil, nil, service.Pagination{Page: 2, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, 4, page.Total)

	require.NoError(t, svc.Delete(ctx, entry.ID))
	err = svc.Delete(ctx, entry.ID)
	require.Equal(t, http.StatusNotFound, statusOf(t, err))
}

type memSchema struct {
	enums map[string][]string
}

func (m *memSchema) ListTables(context.Context) ([]string, error) { return nil, nil }

func (m *memSchema) ListEnums(context.Context) (map[string][]string, error) { return m.enums, nil }

func (m *memSchema) AddEnumValues(_ context.Context, enums map[string][]string) (map[string][]string, error) {
	added := map[string][]string{}
	for name, values := range enums {
		current, ok := m.enums[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", repository.ErrUnknownEnumType, name)
		}
		for _, v := range values {
			found := false
			for _, have := range current {
				found = found || have == v
			}
			if !found {
				m.enums[name] = append(m.enums[name], v)
				added[name] = append(added[name], v)
			}
		}
	}
	return added, nil
}

func TestSchemaEnumMaintenance(t *testing.T) {
	repo := &memSchema{enums: map[string][]string{"date_mode": {"online", "offline"}}}
	svc := service.NewSchemaService(repo, nil)
	ctx := context.Background()

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	require.NotNil(t, tables)

	_, err = svc.AddEnumValues(ctx, "admin-1", nil)
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.AddEnumValues(ctx, "admin-1", map[string][]string{"Date-Mode; DROP": {"x"}})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.AddEnumValues(ctx, "admin-1", map[string][]string{"date_mode": {""}})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	// 32 two-byte runes fit 63 characters but not 63 bytes
	_, err = svc.AddEnumValues(ctx, "admin-1", map[string][]string{"date_mode": {strings.Repeat("é", 32)}})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))
	_, err = svc.AddEnumValues(ctx, "admin-1", map[string][]string{"date_mode": {strings.Repeat("a", 64)}})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.AddEnumValues(ctx, "admin-1", map[string][]string{"no_such_type": {"x"}})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	added, err := svc.AddEnumValues(ctx, "admin-1", map[string][]string{"date_mode": {"online", "hybrid"}})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"date_mode": {"hybrid"}}, added)

	enums, err := svc.Enums(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"online", "offline", "hybrid"}, enums["date_mode"])
}
