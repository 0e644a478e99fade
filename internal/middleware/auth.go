package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// TokenVerifier checks a Firebase ID token; *auth.Client implements it
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// RequireAdmin returns a middleware that accepts a Firebase ID token in the
// Authorization header and only lets allow-listed emails through
func RequireAdmin(verifier TokenVerifier, isAdmin func(email string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Check if Firebase is initialized
			if verifier == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "admin authentication is not configured")
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			decodedToken, err := verifier.VerifyIDToken(c.Request().Context(), strings.TrimSpace(token))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			email, _ := decodedToken.Claims["email"].(string)
			if email == "" || !isAdmin(email) {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}

			// Set user info in context for downstream handlers
			c.Set("userUID", decodedToken.UID)
			c.Set("userEmail", email)

			return next(c)
		}
	}
}
