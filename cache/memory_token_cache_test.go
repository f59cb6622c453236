package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderepojon/authcore/domain"
)

func newEntry(ttl time.Duration) *Entry {
	return &Entry{
		TokenID:   "tok-1",
		UserID:    "u-1",
		Subject:   "alice",
		SessionID: "s-1",
		Kind:      domain.TokenKindAccess,
		Roles:     []string{domain.RoleUser},
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestMemoryTokenCache_SetGetDelete(t *testing.T) {
	c := NewMemoryTokenCache()
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	entry := newEntry(time.Minute)
	require.NoError(t, c.Set(ctx, "token-value", entry))

	got, err := c.Get(ctx, "token-value")
	require.NoError(t, err)
	assert.Equal(t, entry.Subject, got.Subject)
	assert.Equal(t, entry.SessionID, got.SessionID)

	require.NoError(t, c.Delete(ctx, "token-value"))
	_, err = c.Get(ctx, "token-value")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryTokenCache_MissOnUnknown(t *testing.T) {
	c := NewMemoryTokenCache()
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Get(context.Background(), "never-stored")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryTokenCache_ExpiredEntryNotStored(t *testing.T) {
	c := NewMemoryTokenCache()
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "stale", newEntry(-time.Minute)))
	_, err := c.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryTokenCache_EntryExpires(t *testing.T) {
	c := NewMemoryTokenCache()
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short-lived", newEntry(30*time.Millisecond)))
	time.Sleep(60 * time.Millisecond)

	_, err := c.Get(ctx, "short-lived")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryTokenCache_Clear(t *testing.T) {
	c := NewMemoryTokenCache()
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", newEntry(time.Minute)))
	require.NoError(t, c.Set(ctx, "b", newEntry(time.Minute)))
	require.NoError(t, c.Clear(ctx))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestHashToken(t *testing.T) {
	a := HashToken("credential-one")
	b := HashToken("credential-two")

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashToken("credential-one"), "hashing is deterministic")
}
