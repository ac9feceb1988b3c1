package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smsbridge/smsbridge/internal/domain"
	"github.com/smsbridge/smsbridge/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{"users", "deliveries"} {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- User store tests ---

func TestUserStore_GetMissing(t *testing.T) {
	us := NewSQLiteUserStore(testDB(t))

	u, err := us.GetUser(context.Background(), "twilio:+15551234567")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserStore_SaveAndGet(t *testing.T) {
	us := NewSQLiteUserStore(testDB(t))
	ctx := context.Background()

	err := us.SaveUser(ctx, "twilio:+15551234567", domain.User{
		FirstName: "Unknown",
		LastName:  "Unknown",
		Platform:  "twilio",
		Number:    "+15551234567",
	})
	require.NoError(t, err)

	u, err := us.GetUser(ctx, "twilio:+15551234567")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "twilio:+15551234567", u.ID)
	assert.Equal(t, "+15551234567", u.Number)
	assert.Equal(t, "twilio", u.Platform)
}

func TestUserStore_SaveConflictIsNoop(t *testing.T) {
	us := NewSQLiteUserStore(testDB(t))
	ctx := context.Background()

	first := domain.User{FirstName: "Unknown", Platform: "twilio", Number: "+15550001111"}
	require.NoError(t, us.SaveUser(ctx, "twilio:+15550001111", first))

	second := domain.User{FirstName: "Someone", Platform: "twilio", Number: "+15550001111"}
	require.NoError(t, us.SaveUser(ctx, "twilio:+15550001111", second))

	u, err := us.GetUser(ctx, "twilio:+15550001111")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Unknown", u.FirstName)

	var count int
	require.NoError(t, us.db.sql.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

// --- Delivery log tests ---

func TestDeliveryLog_RecordAndRecent(t *testing.T) {
	dl := NewSQLiteDeliveryLog(testDB(t))
	ctx := context.Background()

	require.NoError(t, dl.Record(ctx, Delivery{
		Recipient: "+15551234567",
		Body:      "hello",
		Routing:   "+15550001111",
		Status:    DeliverySent,
	}))
	require.NoError(t, dl.Record(ctx, Delivery{
		Recipient: "+15551234567",
		Body:      "again",
		Routing:   "+15550001111",
		Status:    DeliveryFailed,
		Error:     "timeout",
	}))

	recent, err := dl.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	for _, d := range recent {
		assert.NotEmpty(t, d.ID)
		assert.Equal(t, "+15551234567", d.Recipient)
	}
}

// --- Memory store parity ---

func TestMemoryUserStore_FirstWriteWins(t *testing.T) {
	us := NewMemoryUserStore()
	ctx := context.Background()

	require.NoError(t, us.SaveUser(ctx, "k", domain.User{FirstName: "Unknown"}))
	require.NoError(t, us.SaveUser(ctx, "k", domain.User{FirstName: "Other"}))

	u, err := us.GetUser(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Unknown", u.FirstName)
	assert.Equal(t, 1, us.Count())
}

func TestMemoryDeliveryLog_RecentNewestFirst(t *testing.T) {
	dl := NewMemoryDeliveryLog()
	ctx := context.Background()

	require.NoError(t, dl.Record(ctx, Delivery{Recipient: "a", Status: DeliverySent}))
	require.NoError(t, dl.Record(ctx, Delivery{Recipient: "b", Status: DeliverySent}))

	recent, err := dl.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].Recipient)
}
