package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/bib-pipeline/internal/api/middleware"
	apierrors "github.com/feral-file/bib-pipeline/internal/api/shared/errors"
	"github.com/feral-file/bib-pipeline/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondError maps an executor error onto a status code. Errors that are not API errors
// are logged and reported as internal errors with the given message.
func respondError(c *gin.Context, err error, message string) {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("request_id", c.GetString(middleware.REQUEST_ID_KEY)))
		c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
		return
	}

	status := apiErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("request_id", c.GetString(middleware.REQUEST_ID_KEY)))
	}
	c.JSON(status, apiErr)
}
