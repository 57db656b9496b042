package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/services"
)

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func listUsersHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := users.List(c.Request().Context(), actorFrom(c))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"data": out})
	}
}

func getUserHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := users.Get(c.Request().Context(), actorFrom(c), c.Param("id"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"data": user})
	}
}

func updateUserHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(updateUserRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
		}

		v := newValidator()
		if req.Name != nil {
			v.checkName(*req.Name)
		}
		if req.Email != nil {
			v.checkEmail(*req.Email)
		}
		if req.Password != nil {
			v.checkPassword(*req.Password)
		}
		if v.hasErrors() {
			return writeError(c, logger, v.toError())
		}

		user, verificationSent, err := users.Update(c.Request().Context(), actorFrom(c), c.Param("id"), services.UpdateUserParams{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return writeError(c, logger, err)
		}

		message := "User updated successfully."
		if verificationSent {
			message = "User updated successfully. A new verification email has been sent."
		}
		return c.JSON(http.StatusOK, echo.Map{"message": message, "data": user})
	}
}

func deleteUserHandler(logger logging.Logger, users UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := users.Delete(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully."})
	}
}

func registerUserRoutes(g *echo.Group, logger logging.Logger, users UserService) {
	u := g.Group("/users")

	u.GET("", listUsersHandler(logger, users))
	u.GET("/:id", getUserHandler(logger, users))
	u.PUT("/:id", updateUserHandler(logger, users))
	u.DELETE("/:id", deleteUserHandler(logger, users))
}
