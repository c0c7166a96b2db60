// Package response writes the JSON error body shared by every REST endpoint.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "user-crud-service/pkg/errors"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// timestampLayout is ISO 8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// internalMessage replaces the detail of 5xx storage and unclassified errors.
const internalMessage = "Internal server error"

// Abort writes the error body and stops the handler chain.
func Abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(timestampLayout),
		Path:       c.Request.URL.Path,
		Error:      kind,
		Message:    message,
	})
}

// AbortWithError classifies err and writes the matching error body. The
// message of a 500 never carries the underlying cause.
func AbortWithError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = internalMessage
	}
	Abort(c, status, apperrors.Kind(err), message)
}
