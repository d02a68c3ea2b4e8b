package errors_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apierrors "github.com/feral-file/bib-pipeline/internal/api/shared/errors"
)

func TestAPIError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err    *apierrors.APIError
		status int
	}{
		{apierrors.NewBadRequestError("bad"), http.StatusBadRequest},
		{apierrors.NewNotFoundError("missing"), http.StatusNotFound},
		{apierrors.NewValidationError("partition_date is required"), http.StatusUnprocessableEntity},
		{apierrors.NewUnauthorizedError("no credentials"), http.StatusUnauthorized},
		{apierrors.NewConflictError("run in progress"), http.StatusConflict},
		{apierrors.NewServiceError("temporal unavailable"), http.StatusBadGateway},
		{apierrors.NewDatabaseError("query failed"), http.StatusInternalServerError},
		{apierrors.NewInternalError("boom"), http.StatusInternalServerError},
		{&apierrors.APIError{Code: "unknown"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := apierrors.NewValidationError("page_size must be positive", "page_token is malformed")

	assert.Equal(t, "page_size must be positive, page_token is malformed", err.Details)
	assert.JSONEq(t, `{"code":"validation_failed","message":"Validation failed","details":"page_size must be positive, page_token is malformed"}`, err.Error())
}
