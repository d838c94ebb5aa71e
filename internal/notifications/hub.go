// Package notifications provides realtime delivery: Redis pub/sub channels,
// websocket hubs and cross-instance presence.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// A user with phone, tablet and a few browser tabs stays well under this.
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

var (
	errServerConnLimit = errors.New("server connection limit reached")
	errUserConnLimit   = errors.New("user connection limit reached")
)

// Hub fans notification payloads out to every socket a user has open. It is
// the delivery end of the notifications:* Redis channels, so events published
// on any instance reach users connected to this one.
type Hub struct {
	mu       sync.RWMutex
	sockets  map[uint]map[*Client]struct{}
	nSockets int
	shutdown chan struct{}
	done     chan struct{}
	presence *ConnectionManager
}

// NewHub creates a hub. The optional Redis client enables cross-instance
// presence; without it presence is local only.
func NewHub(redisClients ...*redis.Client) *Hub {
	var rdb *redis.Client
	if len(redisClients) > 0 {
		rdb = redisClients[0]
	}
	return &Hub{
		sockets:  make(map[uint]map[*Client]struct{}),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		presence: NewConnectionManager(rdb, ConnectionManagerConfig{}),
	}
}

func (h *Hub) Name() string { return "notification hub" }

// addLocked enforces the caps and stores the client. Caller holds h.mu.
func (h *Hub) addLocked(client *Client) error {
	if h.nSockets >= maxTotalConns {
		return errServerConnLimit
	}
	set := h.sockets[client.UserID]
	if len(set) >= maxConnsPerUser {
		return errUserConnLimit
	}
	if set == nil {
		set = make(map[*Client]struct{})
		h.sockets[client.UserID] = set
	}
	set[client] = struct{}{}
	h.nSockets++
	return nil
}

// Register adds a socket for userID, enforcing the per-user and global caps.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	client := NewClient(h, conn, userID)
	client.OnActivity = func(uid uint) {
		if h.presence != nil {
			h.presence.Touch(context.Background(), uid)
		}
	}

	h.mu.Lock()
	err := h.addLocked(client)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if h.presence != nil {
		h.presence.Register(context.Background(), userID)
	}
	return client, nil
}

// UnregisterClient drops a socket and lets presence decide whether the user
// just went offline.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	set := h.sockets[client.UserID]
	_, removed := set[client]
	if removed {
		delete(set, client)
		h.nSockets--
		if len(set) == 0 {
			delete(h.sockets, client.UserID)
		}
	}
	h.mu.Unlock()

	if removed && h.presence != nil {
		h.presence.Unregister(context.Background(), client.UserID)
	}
}

func (h *Hub) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	if h.presence == nil {
		return
	}
	h.presence.SetCallbacks(onOnline, onOffline)
}

// Broadcast sends the message to every socket userID has open here.
func (h *Hub) Broadcast(userID uint, message string) {
	data := []byte(message)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sockets[userID] {
		c.TrySend(data)
	}
}

// BroadcastAll sends the message to every connected socket.
func (h *Hub) BroadcastAll(message string) {
	data := []byte(message)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.sockets {
		for c := range set {
			c.TrySend(data)
		}
	}
}

// IsOnline reports cluster-wide presence when Redis is configured, local
// sockets otherwise.
func (h *Hub) IsOnline(userID uint) bool {
	if h.presence != nil {
		return h.presence.IsOnline(context.Background(), userID)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sockets[userID]) > 0
}

// StartWiring subscribes to the notifications:* channels and routes payloads
// to the targeted user, or everyone for the broadcast channel.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == "notifications:broadcast" {
			h.BroadcastAll(payload)
			return
		}
		var userID uint
		if !strings.HasPrefix(channel, "notifications:user:") {
			log.Printf("invalid notification channel: %s", channel)
			return
		}
		if _, err := fmt.Sscanf(channel, "notifications:user:%d", &userID); err != nil {
			log.Printf("invalid notification channel: %s", channel)
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown sends close frames to every socket and stops presence tracking.
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	if h.presence != nil {
		h.presence.Stop()
	}

	goingAway := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")

	h.mu.Lock()
	for userID, set := range h.sockets {
		for client := range set {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage, goingAway); err != nil {
				log.Printf("failed to write close message for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}
	h.sockets = make(map[uint]map[*Client]struct{})
	h.nSockets = 0
	h.mu.Unlock()

	close(h.done)
	return nil
}
