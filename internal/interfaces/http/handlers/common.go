// Package handlers adapts the search engine to HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError maps err to its HTTP status. Errors outside the application
// taxonomy become 500 with the original text in detail.
func writeAppError(c *gin.Context, err error) {
	_ = c.Error(err)

	if errors.Is(err, context.DeadlineExceeded) {
		err = apperrors.Wrap(err, apperrors.CodeTimeout, apperrors.DefaultMessageForCode(apperrors.CodeTimeout))
	}

	resp := ErrorResponse{Code: apperrors.CodeInternal.String()}
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		resp.Code = ae.Code.String()
		resp.Message = ae.Message
		resp.Detail = ae.Detail
		if ae.Cause != nil {
			if resp.Detail != "" {
				resp.Detail += ": "
			}
			resp.Detail += ae.Cause.Error()
		}
		c.JSON(apperrors.HTTPStatusForCode(ae.Code), resp)
		return
	}
	resp.Message = apperrors.DefaultMessageForCode(apperrors.CodeInternal)
	resp.Detail = err.Error()
	c.JSON(http.StatusInternalServerError, resp)
}

// bindJSON decodes the request body into dst, replying 422 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeAppError(c, apperrors.InvalidParam("malformed request body").WithCause(err))
		return false
	}
	return true
}
