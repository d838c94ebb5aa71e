package server

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"pwani/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper has already written the HTTP
// response. Handlers that receive it must return nil so Fiber's ErrorHandler
// does not clobber the body.
var errResponseWritten = errors.New("response already written")

const maxPaginationLimit = 100

// Pagination carries the limit/offset pair every list endpoint accepts.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination reads limit and offset from the query string. Out-of-range
// values fall back to the defaults rather than erroring, and limit is capped
// at maxPaginationLimit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", defaultLimit),
		Offset: c.QueryInt("offset", 0),
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPaginationLimit {
		p.Limit = maxPaginationLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// parseID reads a positive uint route parameter. On failure it writes a 400
// whose message names the parameter ("userId" reads as "Invalid user ID") and
// returns errResponseWritten; the caller should then return nil.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns a camelCase route param into an error-message label:
// "id" becomes "ID", "matchId" becomes "match ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	stem, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}
	var b strings.Builder
	for i, r := range stem {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	b.WriteString(" ID")
	return b.String()
}

// nowUTC keeps event timestamps comparable across server instances.
func nowUTC() time.Time {
	return time.Now().UTC()
}
