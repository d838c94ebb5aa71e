package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeChatEvent(t *testing.T, raw []byte) ChatEvent {
	t.Helper()
	var event ChatEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func TestChatHubRegister_SnapshotAndStatus(t *testing.T) {
	hub := NewChatHub()

	alice, err := hub.Register(1, nil)
	require.NoError(t, err)

	bob, err := hub.Register(2, nil)
	require.NoError(t, err)

	// the second arrival gets a snapshot of who was already connected
	snapshot := decodeChatEvent(t, readClientMessage(t, bob))
	assert.Equal(t, "connected_users", snapshot.Type)

	// and the first user is told the second came online
	status := decodeChatEvent(t, readClientMessage(t, alice))
	assert.Equal(t, "user_status", status.Type)
	assert.EqualValues(t, 2, status.UserID)
}

func TestChatHubBroadcastToMatch_OnlyJoinedUsers(t *testing.T) {
	hub := NewChatHub()

	alice, err := hub.Register(1, nil)
	require.NoError(t, err)
	bob, err := hub.Register(2, nil)
	require.NoError(t, err)
	carol, err := hub.Register(3, nil)
	require.NoError(t, err)

	// drain registration chatter
	readClientMessage(t, bob)
	readClientMessage(t, alice)
	readClientMessage(t, carol)
	readClientMessage(t, alice)
	readClientMessage(t, bob)

	hub.JoinMatch(1, 77)
	hub.JoinMatch(2, 77)
	assert.ElementsMatch(t, []uint{1, 2}, hub.GetActiveUsers(77))
	assert.True(t, hub.IsUserActive(1, 77))
	assert.False(t, hub.IsUserActive(3, 77))

	hub.BroadcastToMatch(77, ChatEvent{Type: "message", MatchID: 77, UserID: 1, Payload: "hi"})

	assert.Equal(t, "message", decodeChatEvent(t, readClientMessage(t, alice)).Type)
	assert.Equal(t, "message", decodeChatEvent(t, readClientMessage(t, bob)).Type)
	select {
	case msg := <-carol.Send:
		t.Fatalf("carol is not in match 77 but received: %s", msg)
	default:
	}
}

func TestChatHubLeaveMatch(t *testing.T) {
	hub := NewChatHub()

	_, err := hub.Register(1, nil)
	require.NoError(t, err)

	hub.JoinMatch(1, 5)
	require.True(t, hub.IsUserActive(1, 5))

	hub.LeaveMatch(1, 5)
	assert.False(t, hub.IsUserActive(1, 5))
	assert.Empty(t, hub.GetActiveUsers(5))
}

func TestChatHubJoinMatch_RequiresConnection(t *testing.T) {
	hub := NewChatHub()

	hub.JoinMatch(1, 5)
	assert.Empty(t, hub.GetActiveUsers(5))
}

func TestChatHubUnregister_CleansUpMatches(t *testing.T) {
	hub := NewChatHub()

	client, err := hub.Register(1, nil)
	require.NoError(t, err)
	hub.JoinMatch(1, 5)

	hub.UnregisterClient(client)
	assert.False(t, hub.IsUserOnline(1))
	assert.Empty(t, hub.GetActiveUsers(5))
}

func TestChatHubWiring_RoutesMatchChannels(t *testing.T) {
	rdb := newTestRedis(t)
	hub := NewChatHub()
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := hub.Register(1, nil)
	require.NoError(t, err)
	hub.JoinMatch(1, 12)

	require.NoError(t, hub.StartWiring(ctx, n))
	time.Sleep(50 * time.Millisecond)

	payload, err := json.Marshal(ChatEvent{Type: "message", UserID: 2, Payload: map[string]string{"body": "habari"}})
	require.NoError(t, err)
	require.NoError(t, n.PublishChatMessage(ctx, 12, string(payload)))

	event := decodeChatEvent(t, readClientMessage(t, client))
	assert.Equal(t, "message", event.Type)
	assert.EqualValues(t, 12, event.MatchID, "match ID is stamped from the channel name")

	require.NoError(t, n.PublishTypingIndicator(ctx, 12, 2, "Baraka", true))
	event = decodeChatEvent(t, readClientMessage(t, client))
	assert.Equal(t, "typing", event.Type)
	assert.EqualValues(t, 12, event.MatchID)
}
