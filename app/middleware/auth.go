package middleware

import (
	"context"
	"net/http"
	"strings"

	httpdto "github.com/vibast-solutions/ms-go-hr-auth/app/dto/http"
	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
	"github.com/vibast-solutions/ms-go-hr-auth/app/service"
	"github.com/vibast-solutions/ms-go-hr-auth/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type sessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*entity.User, error)
}

type AuthMiddleware struct {
	sessions sessionValidator
}

func NewAuthMiddleware(sessions sessionValidator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireAuth admits requests carrying a valid session token for an account
// that still exists. The account is stored under types.ContextUserKey.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Message: "missing authorization header"})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Message: "invalid authorization header format"})
		}

		user, err := m.sessions.ValidateSession(c.Request().Context(), parts[1])
		if err != nil {
			if service.KindOf(err) == service.KindServer {
				logrus.WithError(err).Error("Session validation failed")
				return c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Message: "internal server error"})
			}
			logrus.Debug("Invalid or expired session token")
			return c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Message: service.PublicMessage(err)})
		}

		c.Set(types.ContextUserKey, user)
		c.Set(types.ContextUserIDKey, user.ID)

		return next(c)
	}
}
