package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/perks-engine/store/postgres"
)

// Integration tests require a reachable PostgreSQL instance:
//
//	PERKS_TEST_POSTGRES_DSN="host=localhost user=postgres password=postgres dbname=perks_test sslmode=disable" go test ./store/postgres
//
// Without the variable the tests are skipped so the suite stays hermetic.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("PERKS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PERKS_TEST_POSTGRES_DSN not set")
	}

	s, err := postgres.New(context.Background(), dsn, postgres.DefaultOptions)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.ClearAll(context.Background())
		s.Close()
	})
	require.NoError(t, s.ClearAll(context.Background()))
	return s
}

func TestPostgres_RecordUsage_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.RecordUsage(ctx, "emp-1", "offer-1", "CODE-A")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.UsageCount)

	rec, err = s.RecordUsage(ctx, "emp-1", "offer-1", "CODE-B")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.UsageCount)
	assert.Equal(t, []string{"CODE-A", "CODE-B"}, rec.DiscountCodes)

	got, ok, err := s.Get(ctx, "emp-1", "offer-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.UsageCount)
	assert.Equal(t, []string{"CODE-A", "CODE-B"}, got.DiscountCodes)
}

func TestPostgres_ConcurrentRecordUsage_NoLostUpdates(t *testing.T) {
	const n = 100

	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.RecordUsage(ctx, "emp-1", "offer-1", fmt.Sprintf("CODE-%03d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	rec, ok, err := s.Get(ctx, "emp-1", "offer-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, n, rec.UsageCount)
	assert.Len(t, rec.DiscountCodes, n)
}
