package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"pwani/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTicketTestServer wires a Server against a throwaway miniredis and mounts
// one websocket-shaped route and one plain API route behind AuthRequired.
func newTicketTestServer(t *testing.T) (*Server, *miniredis.Miniredis, *fiber.App) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := &Server{
		config:          &config.Config{JWTSecret: "ticket-test-secret"},
		redis:           rdb,
		consumedTickets: make(map[string]consumedTicketEntry),
	}

	app := fiber.New()
	app.Get("/api/ws/chat", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})
	app.Get("/api/matches", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})
	return s, mr, app
}

// seedTicket plants a redeemable ticket for the given user, the same shape
// IssueWSTicket writes.
func seedTicket(t *testing.T, mr *miniredis.Miniredis, ticket string, userID uint) {
	t.Helper()
	require.NoError(t, mr.Set("ws_ticket:"+ticket, fmt.Sprintf("%d", userID)))
	mr.SetTTL("ws_ticket:"+ticket, wsTicketTTL)
}

func TestIssueWSTicket(t *testing.T) {
	t.Run("mints a single-use ticket", func(t *testing.T) {
		s, mr, _ := newTicketTestServer(t)

		app := fiber.New()
		app.Post("/api/ws/ticket", func(c *fiber.Ctx) error {
			c.Locals("userID", uint(7))
			return s.IssueWSTicket(c)
		})

		resp, err := app.Test(httptest.NewRequest("POST", "/api/ws/ticket", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var body struct {
			Ticket    string `json:"ticket"`
			ExpiresIn int    `json:"expires_in"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotEmpty(t, body.Ticket)
		assert.Equal(t, int(wsTicketTTL.Seconds()), body.ExpiresIn)

		stored, err := mr.Get("ws_ticket:" + body.Ticket)
		require.NoError(t, err)
		assert.Equal(t, "7", stored)
		assert.Equal(t, wsTicketTTL, mr.TTL("ws_ticket:"+body.Ticket))
	})

	t.Run("unavailable without a ticket store", func(t *testing.T) {
		s := &Server{config: &config.Config{JWTSecret: "ticket-test-secret"}}

		app := fiber.New()
		app.Post("/api/ws/ticket", func(c *fiber.Ctx) error {
			c.Locals("userID", uint(7))
			return s.IssueWSTicket(c)
		})

		resp, err := app.Test(httptest.NewRequest("POST", "/api/ws/ticket", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestAuthRequired_TicketRedemption(t *testing.T) {
	t.Run("websocket path consumes the key but caches the ticket", func(t *testing.T) {
		s, mr, app := newTicketTestServer(t)
		seedTicket(t, mr, "tkt-ws", 42)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/ws/chat?ticket=tkt-ws", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		// GETDEL removed the Redis key.
		assert.False(t, mr.Exists("ws_ticket:tkt-ws"))

		// The upgrade handshake runs the middleware chain twice, so the
		// redeemed ticket must survive in process.
		s.consumedTicketsMu.Lock()
		entry, cached := s.consumedTickets["tkt-ws"]
		s.consumedTicketsMu.Unlock()
		require.True(t, cached)
		assert.Equal(t, uint(42), entry.userID)

		resp, err = app.Test(httptest.NewRequest("GET", "/api/ws/chat?ticket=tkt-ws", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("plain API path consumes without caching", func(t *testing.T) {
		s, mr, app := newTicketTestServer(t)
		seedTicket(t, mr, "tkt-api", 9)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/matches?ticket=tkt-api", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.False(t, mr.Exists("ws_ticket:tkt-api"))

		s.consumedTicketsMu.Lock()
		_, cached := s.consumedTickets["tkt-api"]
		s.consumedTicketsMu.Unlock()
		assert.False(t, cached)
	})

	t.Run("unknown ticket on a websocket path is rejected", func(t *testing.T) {
		_, _, app := newTicketTestServer(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/ws/chat?ticket=never-issued", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired cache entry does not authenticate", func(t *testing.T) {
		s, _, app := newTicketTestServer(t)
		s.consumedTickets["tkt-old"] = consumedTicketEntry{
			userID:    5,
			consumeAt: time.Now().Add(-consumedTicketGrace - time.Second),
		}

		resp, err := app.Test(httptest.NewRequest("GET", "/api/ws/chat?ticket=tkt-old", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestServer_ConsumeWSTicket(t *testing.T) {
	s := &Server{consumedTickets: map[string]consumedTicketEntry{
		"tkt-live": {userID: 3, consumeAt: time.Now()},
	}}

	// The Locals value can be absent or non-string; both are noops.
	s.consumeWSTicket(context.Background(), nil)
	s.consumeWSTicket(context.Background(), "")
	assert.Len(t, s.consumedTickets, 1)

	s.consumeWSTicket(context.Background(), "tkt-live")
	assert.Empty(t, s.consumedTickets)
}
