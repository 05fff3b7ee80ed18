package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestDatabase_EmptyList(t *testing.T) {
	db := newTestDatabase(t)

	urls, err := db.ListWebhooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.NotNil(t, urls)
}

func TestDatabase_InsertAndListKeepsOrder(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.InsertWebhook(ctx, "http://one"))
	require.NoError(t, db.InsertWebhook(ctx, "http://two"))
	require.NoError(t, db.InsertWebhook(ctx, "http://three"))

	urls, err := db.ListWebhooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://one", "http://two", "http://three"}, urls)
}

func TestDatabase_InsertRequiresURL(t *testing.T) {
	db := newTestDatabase(t)
	assert.Error(t, db.InsertWebhook(context.Background(), ""))
}

func TestDatabase_DuplicateURLsAllowed(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.InsertWebhook(ctx, "http://same"))
	require.NoError(t, db.InsertWebhook(ctx, "http://same"))

	urls, err := db.ListWebhooks(ctx)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestDatabase_DeleteWebhookAt(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.InsertWebhook(ctx, "http://one"))
	require.NoError(t, db.InsertWebhook(ctx, "http://two"))
	require.NoError(t, db.InsertWebhook(ctx, "http://three"))

	require.NoError(t, db.DeleteWebhookAt(ctx, 1))

	urls, err := db.ListWebhooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://one", "http://three"}, urls)

	// Positions shift after a delete; index 1 now names the former third URL.
	require.NoError(t, db.DeleteWebhookAt(ctx, 1))
	urls, err = db.ListWebhooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://one"}, urls)
}

func TestDatabase_DeleteOutOfRangeIsNoOp(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.InsertWebhook(ctx, "http://one"))
	require.NoError(t, db.DeleteWebhookAt(ctx, 5))

	urls, err := db.ListWebhooks(ctx)
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestDatabase_DeleteNegativeIndexRejected(t *testing.T) {
	db := newTestDatabase(t)
	assert.Error(t, db.DeleteWebhookAt(context.Background(), -1))
}
