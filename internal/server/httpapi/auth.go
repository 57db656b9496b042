package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/taskhub/internal/logging"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerHandler answers 201 with the same generic message whether or not
// the email was already taken, so registration cannot be used to probe for
// accounts.
func registerHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(registerRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
		}

		v := newValidator()
		v.checkName(req.Name)
		v.checkEmail(req.Email)
		v.checkPassword(req.Password)
		if v.hasErrors() {
			return writeError(c, logger, v.toError())
		}

		if err := users.Register(c.Request().Context(), req.Name, req.Email, req.Password); err != nil {
			return writeError(c, logger, err)
		}

		return c.JSON(http.StatusCreated, echo.Map{
			"message": "Registration successful. Please check your email to verify your account.",
		})
	}
}

func loginHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(loginRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
		}

		v := newValidator()
		v.checkCond(req.Email != "", "email", "must be provided")
		v.checkCond(req.Password != "", "password", "must be provided")
		if v.hasErrors() {
			return writeError(c, logger, v.toError())
		}

		user, token, err := users.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return writeError(c, logger, err)
		}

		return c.JSON(http.StatusOK, echo.Map{
			"user": user,
			"authorization": echo.Map{
				"token": token,
				"type":  "bearer",
			},
		})
	}
}

func refreshHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := users.Refresh(c.Request().Context(), claimsFrom(c))
		if err != nil {
			return writeError(c, logger, err)
		}

		return c.JSON(http.StatusOK, echo.Map{
			"user": userFrom(c),
			"authorization": echo.Map{
				"token": token,
				"type":  "bearer",
			},
		})
	}
}

func logoutHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := users.Logout(c.Request().Context(), claimsFrom(c)); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out."})
	}
}

func registerAuthRoutes(e *echo.Echo, logger logging.Logger, users UserService) {
	g := e.Group("/auth")

	// public
	g.POST("/register", registerHandler(logger, users))
	g.POST("/login", loginHandler(logger, users))

	// authenticated
	protected := g.Group("", requireAuth(users))
	protected.POST("/refresh", refreshHandler(logger, users))
	protected.POST("/logout", logoutHandler(logger, users))
}
