package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/nodeclient"
)

// AppTokenLocalKey holds the caller's application token after RequireAppToken.
const AppTokenLocalKey = "app_token"

// RequireNodeKey admits requests whose X-Node-Key equals key.
func RequireNodeKey(key string) fiber.Handler {
	want := []byte(key)
	return func(c *fiber.Ctx) error {
		got := []byte(c.Get(nodeclient.HeaderNodeKey))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			return deny(c, "INVALID_NODE_KEY", "node key is missing or wrong")
		}
		return c.Next()
	}
}

// RequireAppToken rejects requests without an X-App-Token header. The token itself is
// checked by the storage engine against the key-entity cache.
func RequireAppToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(nodeclient.HeaderAppToken)
		if token == "" {
			return deny(c, "INVALID_TOKEN", "application token is required")
		}
		c.Locals(AppTokenLocalKey, token)
		return c.Next()
	}
}

// AppTokenFrom returns the token stored by RequireAppToken.
func AppTokenFrom(c *fiber.Ctx) string {
	t, _ := c.Locals(AppTokenLocalKey).(string)
	return t
}

func deny(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"request_id": RequestIDFrom(c),
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}
