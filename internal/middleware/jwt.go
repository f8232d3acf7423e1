package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strconv"  // parse the numeric subject claim
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// principalKey is the context key under which the authenticated caller
// is stored.  Handlers read it back through CurrentPrincipal.
const principalKey = "principal"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller as a model.Principal in the request context.  The
// provided secret must match the one used when issuing tokens.  Wrap
// protected routes with this so handlers can call CurrentPrincipal.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header is "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret.  The callback also pins the
			// algorithm so a token signed with anything else is rejected.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			p, ok := principalFromClaims(claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// principalFromClaims converts the token's sub and role claims into a
// Principal.  Both claims must be present and well-formed.
func principalFromClaims(claims jwt.MapClaims) (model.Principal, bool) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return model.Principal{}, false
	}
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || userID == 0 {
		return model.Principal{}, false
	}
	roleStr, ok := claims["role"].(string)
	if !ok {
		return model.Principal{}, false
	}
	role, err := model.ParseRole(roleStr)
	if err != nil {
		return model.Principal{}, false
	}
	return model.Principal{UserID: userID, Role: role}, true
}

// CurrentPrincipal returns the authenticated caller stored by JWTAuth.
// The second return is false on unauthenticated routes.
func CurrentPrincipal(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}

// BearerPrincipal parses an Authorization header on routes that do not
// run JWTAuth, for endpoints where a token is optional (logout).  It
// returns false on any parse or validation failure instead of erroring.
func BearerPrincipal(c echo.Context, secret string) (model.Principal, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return model.Principal{}, false
	}
	tok, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return model.Principal{}, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Principal{}, false
	}
	return principalFromClaims(claims)
}
