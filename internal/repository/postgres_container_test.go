//go:build container

package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/persistence"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// startPostgres runs a throwaway Postgres with every migration applied.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "datifyy",
				"POSTGRES_PASSWORD": "datifyy",
				"POSTGRES_DB":       "datifyy",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://datifyy:datifyy@%s:%s/datifyy?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	// migrations must be re-runnable on every boot
	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	return pool
}

func TestPostgresRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	pool := startPostgres(t)
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		users := repository.NewUserRepository(pool)
		user := &domain.User{
			Email:        "ana@example.com",
			PasswordHash: "hash",
			FirstName:    "Ana",
			IsActive:     true,
			Status:       domain.UserStatusActive,
		}
		require.NoError(t, users.Create(ctx, user))
		require.NotEmpty(t, user.ID)

		found, err := users.GetByEmail(ctx, "ana@example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, found.ID)

		dup := *user
		err = users.Create(ctx, &dup)
		require.True(t, apperrors.IsUniqueViolation(err))

		_, err = users.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		require.True(t, apperrors.IsNotFound(err))
	})

	t.Run("waitlist", func(t *testing.T) {
		entries := repository.NewWaitlistRepository(pool)
		for i := 0; i < 3; i++ {
			require.NoError(t, entries.Create(ctx, &domain.WaitlistEntry{
				Name:   "Guest",
				Email:  fmt.Sprintf("guest%d@example.com", i),
				Status: domain.WaitlistStatusWaiting,
			}))
		}
		items, total, err := entries.List(ctx, repository.WaitlistFilter{Limit: 2})
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Len(t, items, 2)

		byStatus, err := entries.CountByStatus(ctx)
		require.NoError(t, err)
		require.Equal(t, 3, byStatus[domain.WaitlistStatusWaiting])
	})

	t.Run("schema enums", func(t *testing.T) {
		schema := repository.NewSchemaRepository(pool)
		tables, err := schema.ListTables(ctx)
		require.NoError(t, err)
		require.Contains(t, tables, "curated_dates")

		added, err := schema.AddEnumValues(ctx, map[string][]string{"user_gender": {"male", "prefer_not_to_say"}})
		require.NoError(t, err)
		require.Equal(t, []string{"prefer_not_to_say"}, added["user_gender"])

		_, err = schema.AddEnumValues(ctx, map[string][]string{"no_such_type": {"x"}})
		require.ErrorIs(t, err, repository.ErrUnknownEnumType)
	})

	t.Run("booking capacity", func(t *testing.T) {
		users := repository.NewUserRepository(pool)
		ids := make([]string, 3)
		for i := range ids {
			user := &domain.User{
				Email:        fmt.Sprintf("booking%d@example.com", i),
				PasswordHash: "hash",
				IsActive:     true,
				Status:       domain.UserStatusActive,
			}
			require.NoError(t, users.Create(ctx, user))
			ids[i] = user.ID
		}
		owner, first, second := ids[0], ids[1], ids[2]

		start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
		slots, err := repository.NewAvailabilityRepository(pool).CreateSeries(ctx, []domain.AvailabilitySlot{{
			UserID:             owner,
			StartsAt:           start,
			EndsAt:             start.Add(time.Hour),
			Timezone:           "UTC",
			DateType:           domain.DateModeOnline,
			Status:             domain.SlotStatusActive,
			Capacity:           1,
			Recurrence:         domain.RecurrenceNone,
			BufferMinutes:      30,
			PrepMinutes:        15,
			CancellationPolicy: domain.PolicyFlexible,
		}})
		require.NoError(t, err)
		slotID := slots[0].ID

		bookings := repository.NewBookingRepository(pool)
		book := func(booker string) error {
			return bookings.Create(ctx, &domain.AvailabilityBooking{
				SlotID:      slotID,
				SlotOwnerID: owner,
				BookerID:    booker,
				Status:      domain.BookingPending,
				Activity:    "coffee",
			}, 1)
		}
		require.NoError(t, book(first))
		require.ErrorIs(t, book(first), repository.ErrAlreadyBooked)
		require.ErrorIs(t, book(second), repository.ErrSlotFull)
	})

	t.Run("dashboard metrics", func(t *testing.T) {
		metrics := repository.NewMetricsRepository(pool)
		for _, key := range repository.MetricKeys() {
			_, err := metrics.Compute(ctx, key)
			require.NoError(t, err, key)
		}
		value, err := metrics.Compute(ctx, repository.MetricUsersTotal)
		require.NoError(t, err)
		require.Equal(t, 1.0, value)
	})
}
