package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/taskhub/internal/server/auth"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

const (
	contextKeyUser   = "auth_user"
	contextKeyClaims = "auth_claims"
)

// requireAuth resolves the Bearer token to an account and stores it on the
// request context. Requests without a usable token stop here with 401.
func requireAuth(users UserService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
			}
			parts := strings.Fields(header)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
			}

			user, claims, err := users.Authenticate(c.Request().Context(), parts[1])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
			}

			c.Set(contextKeyUser, user)
			c.Set(contextKeyClaims, claims)
			return next(c)
		}
	}
}

// userFrom returns the authenticated account stored by requireAuth.
func userFrom(c echo.Context) *models.User {
	if u, ok := c.Get(contextKeyUser).(*models.User); ok {
		return u
	}
	return nil
}

// claimsFrom returns the token claims stored by requireAuth.
func claimsFrom(c echo.Context) *auth.Claims {
	if cl, ok := c.Get(contextKeyClaims).(*auth.Claims); ok {
		return cl
	}
	return nil
}

// actorFrom builds the policy actor for the authenticated account.
func actorFrom(c echo.Context) models.Actor {
	if u := userFrom(c); u != nil {
		return models.ActorFor(u)
	}
	return models.Actor{}
}
