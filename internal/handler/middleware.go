package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SecretAuth gates a route behind the scrape secret: the Authorization
// header must carry the configured secret verbatim. Comparison is
// constant time so the secret cannot be probed byte by byte.
func SecretAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if subtle.ConstantTimeCompare([]byte(header), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			return next(c)
		}
	}
}
