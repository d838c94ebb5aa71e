package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionManager_LocalPresence(t *testing.T) {
	m := NewConnectionManager(nil, ConnectionManagerConfig{})
	ctx := context.Background()

	assert.False(t, m.IsOnline(ctx, 1))

	m.Register(ctx, 1)
	assert.True(t, m.IsOnline(ctx, 1))

	// second device keeps the user online after the first disconnects
	m.Register(ctx, 1)
	m.Unregister(ctx, 1)
	assert.True(t, m.IsOnline(ctx, 1))

	m.Unregister(ctx, 1)
	assert.False(t, m.IsOnline(ctx, 1))
}

func TestConnectionManager_OfflineGrace(t *testing.T) {
	m := NewConnectionManager(nil, ConnectionManagerConfig{})
	m.SetOfflineGracePeriod(20 * time.Millisecond)
	ctx := context.Background()

	offline := make(chan uint, 2)
	m.SetCallbacks(nil, func(userID uint) { offline <- userID })

	m.Register(ctx, 1)
	m.Unregister(ctx, 1)

	select {
	case id := <-offline:
		assert.EqualValues(t, 1, id)
	case <-time.After(time.Second):
		t.Fatal("offline callback never fired")
	}
}

func TestConnectionManager_ReconnectWithinGraceSuppressesOffline(t *testing.T) {
	m := NewConnectionManager(nil, ConnectionManagerConfig{})
	m.SetOfflineGracePeriod(50 * time.Millisecond)
	ctx := context.Background()

	offline := make(chan uint, 2)
	m.SetCallbacks(nil, func(userID uint) { offline <- userID })

	m.Register(ctx, 1)
	m.Unregister(ctx, 1)
	// a page refresh: the new socket arrives before the grace expires
	m.Register(ctx, 1)

	select {
	case <-offline:
		t.Fatal("offline fired despite reconnect within the grace window")
	case <-time.After(150 * time.Millisecond):
	}
	assert.True(t, m.IsOnline(ctx, 1))
}

func TestConnectionManager_RedisPresence(t *testing.T) {
	rdb := newTestRedis(t)
	m := NewConnectionManager(rdb, ConnectionManagerConfig{})
	t.Cleanup(m.Stop)
	ctx := context.Background()

	m.Register(ctx, 7)

	members, err := rdb.SMembers(ctx, presenceSetKey).Result()
	require.NoError(t, err)
	assert.Contains(t, members, "7")

	ids := m.GetOnlineUserIDs(ctx)
	assert.Contains(t, ids, uint(7))
}

func TestConnectionManager_ReapOnceDropsStaleEntries(t *testing.T) {
	rdb := newTestRedis(t)
	m := NewConnectionManager(rdb, ConnectionManagerConfig{})
	t.Cleanup(m.Stop)
	ctx := context.Background()

	// a member left behind by a crashed instance: in the online set but with
	// no last-seen key
	require.NoError(t, rdb.SAdd(ctx, presenceSetKey, "99").Err())

	m.reapOnce(ctx)

	members, err := rdb.SMembers(ctx, presenceSetKey).Result()
	require.NoError(t, err)
	assert.NotContains(t, members, "99")
}
