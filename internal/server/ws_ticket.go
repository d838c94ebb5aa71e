package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"pwani/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// wsTicketTTL bounds how long an issued ticket stays redeemable in Redis.
	wsTicketTTL = 30 * time.Second
	// consumedTicketGrace keeps a redeemed ticket valid in-process long enough
	// for the multi-pass websocket upgrade handshake to complete.
	consumedTicketGrace = 10 * time.Second
)

// consumedTicketEntry records a ticket already redeemed from Redis via GETDEL.
type consumedTicketEntry struct {
	userID    uint
	consumeAt time.Time
}

// IssueWSTicket handles POST /api/ws/ticket.
// It mints a short-lived single-use ticket the client passes as a query
// parameter when opening a websocket, so the JWT never appears in a URL.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fmt.Errorf("ticket store unavailable")))
	}

	ticket := uuid.New().String()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.Set(c.Context(), key, strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// redeemWSTicket atomically consumes a ticket from Redis. For websocket paths
// the redeemed ticket is cached in-process because Fiber runs the middleware
// chain again during the upgrade; the cached entry lets the second pass
// authenticate without the (already deleted) Redis key.
func (s *Server) redeemWSTicket(ctx context.Context, ticket string, isWSPath bool) (uint, bool) {
	// Second handshake pass: check the in-process cache first.
	s.consumedTicketsMu.Lock()
	if entry, ok := s.consumedTickets[ticket]; ok {
		if time.Since(entry.consumeAt) < consumedTicketGrace {
			s.consumedTicketsMu.Unlock()
			return entry.userID, true
		}
		delete(s.consumedTickets, ticket)
	}
	s.consumedTicketsMu.Unlock()

	key := fmt.Sprintf("ws_ticket:%s", ticket)
	userIDStr, err := s.redis.GetDel(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		return 0, false
	}

	if isWSPath {
		s.consumedTicketsMu.Lock()
		s.consumedTickets[ticket] = consumedTicketEntry{userID: uint(userID), consumeAt: time.Now()}
		s.pruneConsumedTicketsLocked()
		s.consumedTicketsMu.Unlock()
	}

	return uint(userID), true
}

// consumeWSTicket drops a redeemed ticket from the in-process cache once the
// websocket connection is established. Accepts the raw Locals value.
func (s *Server) consumeWSTicket(_ context.Context, ticketVal interface{}) {
	ticket, ok := ticketVal.(string)
	if !ok || ticket == "" {
		return
	}
	s.consumedTicketsMu.Lock()
	delete(s.consumedTickets, ticket)
	s.consumedTicketsMu.Unlock()
}

// pruneConsumedTicketsLocked evicts expired entries. Caller holds the mutex.
func (s *Server) pruneConsumedTicketsLocked() {
	now := time.Now()
	for t, entry := range s.consumedTickets {
		if now.Sub(entry.consumeAt) >= consumedTicketGrace {
			delete(s.consumedTickets, t)
		}
	}
}
