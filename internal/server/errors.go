package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// statusFor maps a domain error to an HTTP status and an error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, internalerr.ErrOutOfRangeCF):
		return http.StatusBadRequest, "CF_OUT_OF_RANGE"
	case errors.Is(err, internalerr.ErrUnknownOperator):
		return http.StatusBadRequest, "UNKNOWN_OPERATOR"
	case errors.Is(err, internalerr.ErrInvalidCondition):
		return http.StatusBadRequest, "INVALID_CONDITION"
	case errors.Is(err, internalerr.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, internalerr.ErrStoreUnavailable):
		return http.StatusInternalServerError, "STORE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "INVALID_REQUEST"})
}
