package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// ChatHub manages WebSocket connections for match conversations.
// Unlike Hub (which is user-centric), ChatHub is match-centric: users join
// the conversation of a match they belong to and receive message, typing and
// read events scoped to that match.
type ChatHub struct {
	mu sync.RWMutex

	// matchID -> set of userIDs actively viewing the conversation
	matches map[uint]map[uint]struct{}

	// userID -> set of matchIDs they're actively viewing
	userActiveMatches map[uint]map[uint]struct{}

	// userID -> set of active Clients (multi-device support)
	userConns map[uint]map[*Client]bool
}

// Name returns a human-readable identifier for this hub.
func (h *ChatHub) Name() string { return "chat hub" }

// ChatEvent represents an event broadcast within a match conversation.
type ChatEvent struct {
	Type    string      `json:"type"` // "message", "typing", "read", "user_status", "connected_users"
	MatchID uint        `json:"match_id,omitempty"`
	UserID  uint        `json:"user_id,omitempty"`
	Name    string      `json:"name,omitempty"`
	Payload interface{} `json:"payload"`
}

// NewChatHub creates a new ChatHub instance
func NewChatHub() *ChatHub {
	return &ChatHub{
		matches:           make(map[uint]map[uint]struct{}),
		userActiveMatches: make(map[uint]map[uint]struct{}),
		userConns:         make(map[uint]map[*Client]bool),
	}
}

// Register registers a user's websocket connection. Returns Client or error if limits exceeded.
func (h *ChatHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]bool)
	}

	if len(h.userConns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, fmt.Errorf("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.userConns[userID][client] = true

	onlineIDs := make([]uint, 0, len(h.userConns))
	for id := range h.userConns {
		if id != userID {
			onlineIDs = append(onlineIDs, id)
		}
	}
	h.mu.Unlock()

	log.Printf("ChatHub: Registered user %d (Active clients: %d)", userID, len(h.userConns[userID]))

	// Send initial snapshot of who is online
	if len(onlineIDs) > 0 {
		snapshot := ChatEvent{
			Type:    "connected_users",
			Payload: map[string]interface{}{"user_ids": onlineIDs},
		}
		if jsonMsg, err := json.Marshal(snapshot); err == nil {
			client.TrySend(jsonMsg)
		}
	}

	h.BroadcastGlobalStatus(userID, "online")
	return client, nil
}

// UnregisterClient removes a user's websocket connection and cleans up all their match subscriptions
func (h *ChatHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	if clients, ok := h.userConns[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userConns, client.UserID)
		} else {
			// User still has other connections, just drop this one
			h.mu.Unlock()
			log.Printf("ChatHub: Unregistered client for user %d (Remaining clients: %d)", client.UserID, len(clients))
			return
		}
	} else {
		h.mu.Unlock()
		return
	}

	// All connections for this user are gone, drop their match subscriptions
	if ms, ok := h.userActiveMatches[client.UserID]; ok {
		for matchID := range ms {
			if users, ok := h.matches[matchID]; ok {
				delete(users, client.UserID)
				if len(users) == 0 {
					delete(h.matches, matchID)
				}
			}
		}
		delete(h.userActiveMatches, client.UserID)
	}

	h.mu.Unlock()

	log.Printf("ChatHub: Unregistered user %d (All connections closed)", client.UserID)

	h.BroadcastGlobalStatus(client.UserID, "offline")
}

// IsUserOnline returns true when the user has at least one active chat websocket client.
func (h *ChatHub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userConns[userID]
	return ok && len(clients) > 0
}

// JoinMatch subscribes a user to a match conversation's events
func (h *ChatHub) JoinMatch(userID, matchID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.userConns[userID]; !ok {
		log.Printf("ChatHub: User %d not connected, cannot join match %d", userID, matchID)
		return
	}

	if h.matches[matchID] == nil {
		h.matches[matchID] = make(map[uint]struct{})
	}
	h.matches[matchID][userID] = struct{}{}

	if h.userActiveMatches[userID] == nil {
		h.userActiveMatches[userID] = make(map[uint]struct{})
	}
	h.userActiveMatches[userID][matchID] = struct{}{}

	log.Printf("ChatHub: User %d joined match %d", userID, matchID)
}

// LeaveMatch unsubscribes a user from a match conversation
func (h *ChatHub) LeaveMatch(userID, matchID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if users, ok := h.matches[matchID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.matches, matchID)
		}
	}

	if ms, ok := h.userActiveMatches[userID]; ok {
		delete(ms, matchID)
	}

	log.Printf("ChatHub: User %d left match %d", userID, matchID)
}

// BroadcastToMatch sends an event to all users viewing a match conversation
func (h *ChatHub) BroadcastToMatch(matchID uint, event ChatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.matches[matchID]
	if !ok {
		return
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("ChatHub: Failed to marshal event: %v", err)
		return
	}

	for userID := range users {
		if clients, ok := h.userConns[userID]; ok {
			for client := range clients {
				client.TrySend(eventJSON)
			}
		}
	}
}

// GetActiveUsers returns the list of userIDs currently viewing a match conversation
func (h *ChatHub) GetActiveUsers(matchID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.matches[matchID]
	if !ok {
		return []uint{}
	}

	result := make([]uint, 0, len(users))
	for userID := range users {
		result = append(result, userID)
	}
	return result
}

// IsUserActive checks if a user is currently viewing a match conversation
func (h *ChatHub) IsUserActive(userID, matchID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ms, ok := h.userActiveMatches[userID]; ok {
		_, active := ms[matchID]
		return active
	}
	return false
}

// StartWiring connects the ChatHub to Redis pub/sub for match conversation events
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChatSubscriber(ctx, func(channel, payload string) {
		// channel format: chat:match:<id>, typing:match:<id> or read:match:<id>
		var matchID uint
		var eventType string

		if _, err := fmt.Sscanf(channel, "chat:match:%d", &matchID); err == nil {
			eventType = "message"
		} else if _, err := fmt.Sscanf(channel, "typing:match:%d", &matchID); err == nil {
			eventType = "typing"
		} else if _, err := fmt.Sscanf(channel, "read:match:%d", &matchID); err == nil {
			eventType = "read"
		} else {
			log.Printf("ChatHub: Invalid channel format: %s", channel)
			return
		}

		var event ChatEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Printf("ChatHub: Failed to parse event from channel %s: %v", channel, err)
			return
		}

		if event.Type == "" {
			event.Type = eventType
		}
		event.MatchID = matchID

		h.BroadcastToMatch(matchID, event)
	})
}

// BroadcastGlobalStatus sends a "user_status" event (online/offline) to ALL connected users
func (h *ChatHub) BroadcastGlobalStatus(userID uint, status string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event := ChatEvent{
		Type:    "user_status",
		UserID:  userID,
		Payload: map[string]interface{}{"status": status, "user_id": userID},
	}

	jsonMsg, err := json.Marshal(event)
	if err != nil {
		log.Printf("ChatHub: Failed to marshal status event: %v", err)
		return
	}

	for id, clients := range h.userConns {
		if id == userID {
			continue
		}
		for client := range clients {
			client.TrySend(jsonMsg)
		}
	}
}

// Shutdown gracefully closes all websocket connections
func (h *ChatHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			if err := client.Conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"server_shutdown","message":"Server is shutting down"}`)); err != nil {
				log.Printf("failed to write shutdown message for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}

	h.matches = make(map[uint]map[uint]struct{})
	h.userActiveMatches = make(map[uint]map[uint]struct{})
	h.userConns = make(map[uint]map[*Client]bool)

	return nil
}
