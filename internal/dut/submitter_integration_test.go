package dut

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDUT starts a disposable PostgreSQL container and returns a
// connected Submitter against it.
func setupTestDUT(ctx context.Context, t *testing.T) (*pgcontainer.PostgresContainer, *Submitter) {
	t.Helper()

	container, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("sqlsmith_test"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sub := NewSubmitter(dsn, time.Second, nil)
	require.NoError(t, sub.Open(ctx))

	return container, sub
}

func TestSubmitterTestSucceedsOnValidStatement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, sub := setupTestDUT(ctx, t)
	defer func() { _ = container.Terminate(ctx) }()
	defer func() { _ = sub.Close() }()

	result := sub.Test(ctx, "SELECT 1")
	require.True(t, result.OK)
}

func TestSubmitterTestClassifiesSyntaxError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, sub := setupTestDUT(ctx, t)
	defer func() { _ = container.Terminate(ctx) }()
	defer func() { _ = sub.Close() }()

	result := sub.Test(ctx, "SELEKT 1")
	require.False(t, result.OK)
	require.Equal(t, Syntax, result.Failure.Kind)
}

func TestSubmitterTestHonorsStatementTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("sqlsmith_test"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sub := NewSubmitter(dsn, 10*time.Millisecond, nil)
	require.NoError(t, sub.Open(ctx))
	defer func() { _ = sub.Close() }()

	result := sub.Test(ctx, "SELECT pg_sleep(1)")
	require.False(t, result.OK)
	require.Equal(t, Timeout, result.Failure.Kind)
}

func TestSubmitterReopenRestoresSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, sub := setupTestDUT(ctx, t)
	defer func() { _ = container.Terminate(ctx) }()
	defer func() { _ = sub.Close() }()

	require.NoError(t, sub.Reopen(ctx))

	result := sub.Test(ctx, "SELECT 1")
	require.True(t, result.OK)
}
