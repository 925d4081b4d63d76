package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// statusOf maps an error kind to the HTTP status returned to clients.
func statusOf(err error) int {
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindAuthorization:
		return http.StatusForbidden
	case model.KindStateConflict:
		return http.StatusConflict
	case model.KindResourceExhausted:
		return http.StatusUnprocessableEntity
	case model.KindTransferFailure:
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": code, "message": text}.  Unclassified errors
// are logged and their text is not exposed.
func fail(c echo.Context, log *zap.Logger, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal", "message": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": model.CodeOf(err), "message": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}

var errNoCaller = errors.New("authenticated caller missing from context")
