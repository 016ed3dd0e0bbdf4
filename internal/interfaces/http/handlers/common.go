// Package handlers implements the gin handlers of the render API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BlackCockder/IBEX-Mapper/internal/interfaces/http/middleware"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an error to its HTTP status: bad input is 400, missing
// resources 404, duplicates 409 and everything else 500.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCode(err, errors.CodeFeatureDuplicate), errors.IsCode(err, errors.CodeConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError aborts c with the status and body for err. Server-side
// failures are masked; the full error is attached to the context for the
// access log.
func writeAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	resp := ErrorResponse{RequestID: middleware.GetRequestID(c)}

	var ae *errors.AppError
	if status < http.StatusInternalServerError && errors.As(err, &ae) {
		resp.Code = string(ae.Code)
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	} else {
		resp.Code = string(errors.CodeInternal)
		resp.Message = "internal server error"
	}
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the request body into dst, reporting failures as
// CodeInvalidParam.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeAppError(c, errors.Wrap(err, errors.CodeInvalidParam, "malformed JSON body"))
		return false
	}
	return true
}
