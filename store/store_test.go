package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tablero/config"
)

// testStoreContract runs the behaviour every Store must share.
func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	session := "test-" + uuid.NewString()

	t.Run("reply miss then hit", func(t *testing.T) {
		key := uuid.NewString()
		_, ok, err := s.GetReply(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.PutReply(ctx, key, "**lunes**", time.Minute))
		reply, ok, err := s.GetReply(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "**lunes**", reply)
	})

	t.Run("zero ttl does not cache", func(t *testing.T) {
		key := uuid.NewString()
		require.NoError(t, s.PutReply(ctx, key, "x", 0))
		_, ok, err := s.GetReply(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("history newest first and trimmed", func(t *testing.T) {
		for i := 1; i <= 4; i++ {
			entry := HistoryEntry{ID: fmt.Sprintf("g%d", i), Mode: "chat", Input: "hola"}
			require.NoError(t, s.AppendHistory(ctx, session, entry, 3))
		}

		all, err := s.History(ctx, session, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "g4", all[0].ID)
		assert.Equal(t, "g2", all[2].ID)

		two, err := s.History(ctx, session, 2)
		require.NoError(t, err)
		assert.Len(t, two, 2)

		none, err := s.History(ctx, "unknown-"+session, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.PutReply(context.Background(), "k", "v", time.Minute))
	now = now.Add(59 * time.Second)
	_, ok, _ := s.GetReply(context.Background(), "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = s.GetReply(context.Background(), "k")
	assert.False(t, ok)
	assert.Empty(t, s.replies)
}

func TestMemoryStoreHistoryIsCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.AppendHistory(ctx, "a", HistoryEntry{ID: "1"}, 0))

	got, err := s.History(ctx, "a", 0)
	require.NoError(t, err)
	got[0].ID = "changed"

	again, _ := s.History(ctx, "a", 0)
	assert.Equal(t, "1", again[0].ID)
}

// Requires a live server: TABLERO_TEST_REDIS=localhost:6379
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TABLERO_TEST_REDIS")
	if addr == "" {
		t.Skip("TABLERO_TEST_REDIS not set")
	}

	s := NewRedisStore(NewRedisClient(config.RedisConfig{Addr: addr}), nil)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))

	testStoreContract(t, s)
}
