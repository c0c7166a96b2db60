package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "user-crud-service/pkg/errors"
)

func serve(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users/:id", func(c *gin.Context) { AbortWithError(c, err) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestAbortWithError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{"validation", apperrors.NewValidationError("email", "invalid email format"), 400, "ValidationError", "validation failed: email - invalid email format"},
		{"not found", apperrors.NewNotFoundError("user", "42"), 404, "NotFoundError", "user with id 42 not found"},
		{"conflict", apperrors.NewAlreadyExistsError("user", "email", "a@b.co"), 409, "AlreadyExistsError", "user with email a@b.co already exists"},
		{"network", apperrors.NewNetworkError("upstream down", nil), 503, "NetworkError", "upstream down"},
		{"storage", apperrors.NewStorageError("failed", errors.New("password=secret")), 500, "StorageError", internalMessage},
		{"storage wrapping corrupt record", apperrors.NewStorageError("corrupt user record 42", apperrors.NewValidationError("email", "invalid email format")), 500, "StorageError", internalMessage},
		{"unclassified", errors.New("nil pointer"), 500, "InternalServerError", internalMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serve(t, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status, body.StatusCode)
			assert.Equal(t, tt.kind, body.Error)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, "/users/42", body.Path)
			_, err := time.Parse(time.RFC3339, body.Timestamp)
			assert.NoError(t, err)
			assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, body.Timestamp)
		})
	}
}
