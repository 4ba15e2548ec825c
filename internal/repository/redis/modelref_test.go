package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/testsupport"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

func TestModelReferenceStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := testsupport.NewRedisClient(t, testsupport.GetConfig().Redis)
	store := NewModelReferenceStore(client)
	ctx := context.Background()

	t.Run("Active on empty store", func(t *testing.T) {
		_, err := store.Active(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNoActiveModel))
	})

	t.Run("SetActive roundtrip", func(t *testing.T) {
		require.NoError(t, store.SetActive(ctx, "v20260101-023000"))

		version, err := store.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v20260101-023000", version)
	})

	t.Run("Shadow slot is independent of production", func(t *testing.T) {
		_, ok, err := store.Shadow(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.SetShadow(ctx, "v20260201-023000"))

		candidate, ok, err := store.Shadow(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "v20260201-023000", candidate)

		version, err := store.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v20260101-023000", version, "installing a shadow leaves production alone")
	})

	t.Run("PromoteShadow swaps and clears", func(t *testing.T) {
		require.NoError(t, store.PromoteShadow(ctx))

		version, err := store.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v20260201-023000", version)

		_, ok, err := store.Shadow(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "promotion consumes the shadow slot")
	})

	t.Run("PromoteShadow with no candidate", func(t *testing.T) {
		err := store.PromoteShadow(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}
