package shared_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennislaw/svd-console/internal/shared"
)

func TestIdempotencyStoreRejectsRepeatedKey(t *testing.T) {
	mr := miniredis.RunT(t)
	store := shared.NewIdempotencyStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "k1", "banks"))
	assert.ErrorIs(t, store.CheckAndInsert(ctx, "k1", "banks"), shared.ErrIdempotencyConflict)
	assert.NoError(t, store.CheckAndInsert(ctx, "k1", "cases"), "keys are scoped per module")

	require.NoError(t, store.Release(ctx, "k1", "banks"))
	assert.NoError(t, store.CheckAndInsert(ctx, "k1", "banks"))

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, store.CheckAndInsert(ctx, "k1", "banks"))
}

func TestIdempotencyStoreRequiresKey(t *testing.T) {
	mr := miniredis.RunT(t)
	store := shared.NewIdempotencyStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	assert.Error(t, store.CheckAndInsert(context.Background(), "", "banks"))

	var missing *shared.IdempotencyStore
	assert.Error(t, missing.CheckAndInsert(context.Background(), "k", "banks"))
	assert.NoError(t, missing.Release(context.Background(), "k", "banks"))
}
