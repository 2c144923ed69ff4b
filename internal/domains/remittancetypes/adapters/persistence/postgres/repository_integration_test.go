//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	typespostgres "github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/persistence/postgres"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/application"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/domain"
	"github.com/remesas/remittance-api/internal/domains/remittancetypes/ports"
	"github.com/remesas/remittance-api/internal/platform/migrations"
	platformpostgres "github.com/remesas/remittance-api/internal/platform/postgres"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("remittance_types_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := platformpostgres.Connect(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}
	return db, cleanup
}

func usdToCup() domain.Terms {
	return domain.Terms{
		Name:              "USD to CUP cash",
		SourceCurrency:    "USD",
		DeliveryCurrency:  "CUP",
		ExchangeRate:      decimal.RequireFromString("320"),
		CommissionPercent: decimal.RequireFromString("2.5"),
		CommissionFixed:   decimal.Zero,
		MinAmount:         decimal.NewFromInt(10),
		MaxAmount:         decimal.NewFromInt(1000),
		MaxDeliveryDays:   3,
		WarningDays:       2,
	}
}

func TestRepository_VersionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	svc := application.NewService(typespostgres.NewRepository(db))
	ctx := context.Background()

	v1, err := svc.CreateType(ctx, ports.CreateTypeInput{Code: "usd-cup", Terms: usdToCup(), ActorID: "admin-1"})
	require.NoError(t, err)

	_, err = svc.CreateType(ctx, ports.CreateTypeInput{Code: "usd-cup", Terms: usdToCup(), ActorID: "admin-1"})
	assert.ErrorIs(t, err, ports.ErrDuplicate)

	terms := usdToCup()
	terms.ExchangeRate = decimal.RequireFromString("335")
	v2, err := svc.ReviseType(ctx, ports.ReviseTypeInput{ID: v1.ID, Terms: terms, ActorID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.True(t, decimal.RequireFromString("335").Equal(v2.Terms.ExchangeRate))

	_, err = svc.ReviseType(ctx, ports.ReviseTypeInput{ID: v1.ID, Terms: terms, ActorID: "admin-1"})
	assert.ErrorIs(t, err, ports.ErrNotLatest)

	stored, err := svc.GetType(ctx, v1.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	active, err := svc.ListTypes(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, v2.ID, active[0].ID)

	all, err := svc.ListTypes(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.DeactivateType(ctx, v2.ID))
	_, err = svc.GetType(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
