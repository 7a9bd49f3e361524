package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireType returns middleware that allows only the given user types.
func RequireType(types ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actual := UserTypeFromContext(c.Request().Context())
			for _, t := range types {
				if actual == t {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required account type: %s", strings.Join(types, " or ")))
		}
	}
}
