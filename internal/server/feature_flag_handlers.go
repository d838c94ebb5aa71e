package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns configured flags plus their evaluated state for the
// caller, so the client can gate premium UI without re-implementing rollout
// logic. Flags that default to enabled are reported even when unconfigured.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)

	raw := map[string]string{}
	evaluated := map[string]bool{}
	if s.featureFlags != nil {
		raw = s.featureFlags.Raw()
		evaluated = s.featureFlags.Snapshot(userID)
	}
	if _, ok := evaluated["superlikes"]; !ok {
		evaluated["superlikes"] = s.featureFlags.EnabledOrDefault("superlikes", userID, true)
	}

	return c.JSON(fiber.Map{
		"raw":       raw,
		"evaluated": evaluated,
	})
}
