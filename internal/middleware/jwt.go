package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/pcos-screening-api/internal/utils"
)

// JWTProtected returns a middleware that validates JWT bearer tokens.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		claims, message := parseBearer(authorization, secret)
		if message != "" {
			return utils.SendError(c, fiber.StatusUnauthorized, message)
		}

		bindClaims(c, claims)
		return c.Next()
	}
}

// OptionalJWT attaches the user to the request when a bearer token is sent and
// lets anonymous requests through. A token that is present but invalid is
// still rejected.
func OptionalJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" || secret == "" {
			return c.Next()
		}

		claims, message := parseBearer(authorization, secret)
		if message != "" {
			return utils.SendError(c, fiber.StatusUnauthorized, message)
		}

		bindClaims(c, claims)
		return c.Next()
	}
}

func parseBearer(authorization, secret string) (jwt.MapClaims, string) {
	const bearer = "Bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
		return nil, "invalid authorization header"
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return nil, "invalid token"
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, "invalid token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "invalid token claims"
	}
	return claims, ""
}

func bindClaims(c *fiber.Ctx, claims jwt.MapClaims) {
	if userID := extractUserIDFromClaims(claims); userID != nil {
		c.Locals("user_id", *userID)
	}
	if role := extractUserRoleFromClaims(claims); role != "" {
		c.Locals("user_role", role)
	}
}

func extractUserIDFromClaims(claims jwt.MapClaims) *uint {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	default:
		return ""
	}
	return ""
}
