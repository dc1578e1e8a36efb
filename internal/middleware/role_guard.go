package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wholesaleconnect/backend/internal/domain/model"
)

// RequireRole は context の role が roles のどれかであることを確認する。
// AuthJWT の後に置く。
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(model.Role)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			for _, r := range roles {
				if r == role {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
		}
	}
}
