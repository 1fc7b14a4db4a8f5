package recordstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	zapAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/zaplogger/adapter"
)

func setupGormStore(t *testing.T) Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set; skipping postgres record store tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	store, err := NewGormStore(db, func() string { return uuid.New().String() }, 5*time.Second, zapAdapter.NewFromZap(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return store
}

func TestGormStoreRoundTrip(t *testing.T) {
	store := setupGormStore(t)
	ctx := context.Background()
	table := "Test_" + uuid.New().String()[:8]

	id, err := store.CreateRecord(ctx, table, Fields{"user_id": []string{"u1"}, "seat_numbers": "1,2"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateRecord(ctx, table, id, Fields{"status": "active"}))

	record, err := store.FindRecord(ctx, table, id)
	require.NoError(t, err)
	assert.Equal(t, "active", record.Fields["status"])
	assert.Equal(t, "1,2", record.Fields["seat_numbers"])

	byUser, err := store.FindRecordsBy(ctx, table, "user_id", "u1")
	require.NoError(t, err)
	require.Len(t, byUser, 1)

	all, err := ListAll(ctx, store, table, nil, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteRecords(ctx, table, []string{id}))
	_, err = store.FindRecord(ctx, table, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
