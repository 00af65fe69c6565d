package rdx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	d := NewTokenDenylist(NewClient(mr.Addr()))
	ctx := context.Background()

	revoked, err := d.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "abc", time.Minute))
	revoked, err = d.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = d.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "expired", 0))
	assert.False(t, mr.Exists(revokedPrefix+"expired"))
}

func TestActivityFeed(t *testing.T) {
	mr := miniredis.RunT(t)
	f := NewActivityFeed(NewClient(mr.Addr()))
	ctx := context.Background()

	for i := 0; i < activityLimit+5; i++ {
		require.NoError(t, f.Push(ctx, "u1", map[string]int{"n": i}))
	}

	items, err := f.Recent(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.JSONEq(t, `{"n":104}`, string(items[0]))

	all, err := f.Recent(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, activityLimit)
}

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	assert.NoError(t, Ping(context.Background(), NewClient(addr)))

	mr.Close()
	assert.Error(t, Ping(context.Background(), NewClient(addr)))
}
