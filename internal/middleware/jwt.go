package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-essay-api/internal/utils"
)

// Locals keys populated by JWTProtected.
const (
	LocalUserPhone = "user_phone"
	LocalUserRole  = "user_role"
)

// JWTProtected validates HS256 bearer tokens and binds the reviewer phone and
// role to the request.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		phone := phoneFromClaims(claims)
		if phone == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token has no subject")
		}
		c.Locals(LocalUserPhone, phone)
		if role := roleFromClaims(claims); role != "" {
			c.Locals(LocalUserRole, role)
		}

		return c.Next()
	}
}

// UserPhone returns the authenticated reviewer's phone id.
func UserPhone(c *fiber.Ctx) string {
	if phone, ok := c.Locals(LocalUserPhone).(string); ok {
		return phone
	}
	return ""
}

// UserRole returns the authenticated reviewer's role, lower-cased.
func UserRole(c *fiber.Ctx) string {
	if role, ok := c.Locals(LocalUserRole).(string); ok {
		return role
	}
	return ""
}

func phoneFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"phone", "user_phone", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if v > 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func roleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if role := strings.ToLower(strings.TrimSpace(v)); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok {
					if role := strings.ToLower(strings.TrimSpace(str)); role != "" {
						return role
					}
				}
			}
		}
	}
	return ""
}
