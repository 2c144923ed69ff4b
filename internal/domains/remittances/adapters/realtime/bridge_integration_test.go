//go:build integration
// +build integration

package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	platformpostgres "github.com/remesas/remittance-api/internal/platform/postgres"
)

func TestPostgresBridge_CrossProcessDelivery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("realtime_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(context.Background())

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := platformpostgres.Connect(ctx, dsn)
	require.NoError(t, err)

	// Two bridges on separate hubs stand in for the scheduler and API processes.
	apiHub := NewHub()
	api := NewPostgresBridge(apiHub, db, dsn, "", nil)
	scheduler := NewPostgresBridge(NewHub(), db, dsn, "", nil)
	go func() { _ = api.Run(ctx) }()

	sub := api.Subscribe(domain.Filter{OwnerID: "alice"})
	defer sub.Close()

	var got domain.Event
	require.Eventually(t, func() bool {
		scheduler.Publish(alertEvent())
		select {
		case got = <-sub.Events():
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	assert.Equal(t, "evt-1", got.ID)
	require.NotNil(t, got.Alert)
	assert.Equal(t, domain.SeverityBreach, got.Alert.Severity)
}
