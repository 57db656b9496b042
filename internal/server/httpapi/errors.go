package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/logging"
)

// writeError maps a service error to its transport status and JSON body.
func writeError(c echo.Context, logger logging.Logger, err error) error {
	var validationErr *common.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"message": "The given data was invalid.",
			"errors":  validationErr.Fields,
		})
	}

	var policyErr *common.PolicyError
	if errors.As(err, &policyErr) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": policyErr.Reason})
	}

	switch {
	case errors.Is(err, common.ErrorNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Resource not found."})

	case errors.Is(err, common.ErrDuplicateIdentity):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"message": "The given data was invalid.",
			"errors":  map[string]string{"email": "The email has already been taken."},
		})

	case errors.Is(err, common.ErrAssigneeNotFound):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"message": "The given data was invalid.",
			"errors":  map[string]string{"assigned_to": "The selected assignee is invalid."},
		})

	case errors.Is(err, common.ErrEmailNotVerified):
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Your email address is not verified."})

	case errors.Is(err, common.ErrAlreadyVerified):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Email already verified."})

	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked):
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
	}

	logger.Error(c.Request().Context(), "request failed", "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error."})
}
