package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/internal/middleware"
)

var errUnauthenticated = errors.New("authentication required")

// classify maps an error onto its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, errBillingDisabled):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func toErrorResponse(err error) (int, errorResponse) {
	status, code := classify(err)
	resp := errorResponse{Code: code, Message: err.Error()}
	if field, ok := apperr.Field(err); ok {
		resp.Field = field
	}
	if status == http.StatusInternalServerError {
		resp.Message = "internal server error"
	}
	return status, resp
}

func writeError(c *gin.Context, err error) {
	status, resp := toErrorResponse(err)
	// The request logger reports private errors when the request completes.
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the body and reports malformed input as an invalid argument.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return apperr.Invalid("body", err.Error())
	}
	return nil
}

func pathID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Invalid("id", "must be a UUID")
	}
	return id, nil
}

func userID(c *gin.Context) (string, error) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		return "", errUnauthenticated
	}
	return id, nil
}
