package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/logging"
)

// verifyEmailHandler consumes the signed link from the verification email.
// The route is public: the user clicking the link holds no bearer token yet.
func verifyEmailHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		changed, err := users.Verify(c.Request().Context(), c.Param("id"), c.QueryParam("token"))
		if err != nil {
			if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"message": "The verification link is invalid or has expired.",
				})
			}
			return writeError(c, logger, err)
		}
		if !changed {
			return c.JSON(http.StatusOK, echo.Map{"message": "Email already verified."})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Email verified successfully."})
	}
}

func resendVerificationHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := users.ResendVerification(c.Request().Context(), actorFrom(c).ID); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Verification email sent."})
	}
}

func registerVerificationRoutes(e *echo.Echo, logger logging.Logger, users UserService) {
	g := e.Group("/email")

	g.GET("/verify/:id", verifyEmailHandler(logger, users))
	g.GET("/resend", resendVerificationHandler(logger, users), requireAuth(users))
}
