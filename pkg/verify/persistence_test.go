package verify_test

import (
	"context"
	"testing"

	"github.com/kontext-run/kontext-core/pkg/storage"
	"github.com/kontext-run/kontext-core/pkg/tiers"
	"github.com/kontext-run/kontext-core/pkg/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistRestore_ReproducesTerminalDigest(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	opts := verify.Options{}

	c, err := verify.NewContext(opts)
	require.NoError(t, err)
	_, err = c.Verify(context.Background(), tiers.TierFree, cleanInput())
	require.NoError(t, err)

	require.NoError(t, verify.Persist(context.Background(), c, adapter))

	restored, err := verify.Restore(context.Background(), opts, adapter)
	require.NoError(t, err)

	assert.Equal(t, c.Chain().TerminalDigest(), restored.Chain().TerminalDigest())
	assert.Equal(t, c.Chain().Len(), restored.Chain().Len())
	assert.Len(t, restored.Store().AllTransactions(), 1)
}

func TestRestore_ColdStartWithoutPriorPersist(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	c, err := verify.Restore(context.Background(), verify.Options{}, adapter)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Chain().Len())
}
