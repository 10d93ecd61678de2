package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campusloop/assess-api/internal/utils"
)

// JWTProtected validates bearer tokens issued by the campus identity service
// and exposes the authenticated user on the request context: `user_id` (uint)
// and `user_role` (student/teacher/admin, lowercased).
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		userID, ok := claimUserID(claims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "token carries no subject")
		}

		c.Locals("user_id", userID)
		if role := claimRole(claims); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authorization := c.Get("Authorization")
	if authorization == "" {
		return "", fmt.Errorf("authorization header missing")
	}

	const bearer = "bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
		return "", fmt.Errorf("invalid authorization header")
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	if token == "" {
		return "", fmt.Errorf("invalid token")
	}
	return token, nil
}

// claimUserID resolves the acting user's id. The identity service puts it in
// `sub`; older tokens used `user_id`.
func claimUserID(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			if v >= 0 {
				return uint(v), true
			}
		case string:
			if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
				return uint(parsed), true
			}
		}
	}
	return 0, false
}

// claimRole resolves the user's course role. Tokens carry either a single
// `role` string or a `roles` list, of which the first non-blank entry wins.
func claimRole(claims jwt.MapClaims) string {
	if value, ok := claims["role"]; ok {
		if role, ok := value.(string); ok {
			return strings.ToLower(strings.TrimSpace(role))
		}
	}

	if value, ok := claims["roles"]; ok {
		if list, ok := value.([]interface{}); ok {
			for _, item := range list {
				if role, ok := item.(string); ok && strings.TrimSpace(role) != "" {
					return strings.ToLower(strings.TrimSpace(role))
				}
			}
		}
	}

	return ""
}
