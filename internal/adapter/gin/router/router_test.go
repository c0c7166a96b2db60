package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"user-crud-service/internal/adapter/db/postgres"
	"user-crud-service/internal/adapter/gin/handler"
	"user-crud-service/internal/adapter/gin/response"
	"user-crud-service/internal/usecase/user"
	"user-crud-service/pkg/logger"
)

// RouterSuite drives the full REST stack against an in-memory SQLite store.
type RouterSuite struct {
	suite.Suite
	router *gin.Engine
	db     *gorm.DB
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(s.T())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.NewGormLogger(log, 0.2, "warn"),
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.T().Cleanup(func() { _ = sqlDB.Close() })
	s.Require().NoError(db.AutoMigrate(&postgres.UserSchema{}))
	s.db = db

	uc := user.New(postgres.NewUserRepoPG(db, log), log)
	s.router = SetupRouter(
		handler.NewUserHandler(uc, log),
		handler.NewHealthHandler("user-crud-service", nil, log),
		Options{AllowedOrigins: []string{"http://localhost:3000"}},
		log,
	)
}

func (s *RouterSuite) request(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestUserLifecycle() {
	w := s.request(http.MethodPost, "/users",
		`{"name":"  John Doe ","email":"john.doe@example.com","city":"New York","birthDate":"1990-05-15"}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created handler.UserResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.Equal("John Doe", created.Name)
	s.NotEmpty(created.ID)

	w = s.request(http.MethodGet, "/users/"+created.ID, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodPut, "/users/"+created.ID, `{"city":"Boston"}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated handler.UserResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &updated))
	s.Equal("Boston", *updated.City)
	s.Equal("John Doe", updated.Name)
	s.False(updated.UpdatedAt.Before(created.UpdatedAt))

	w = s.request(http.MethodGet, "/users", "")
	var list []handler.UserResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	s.Len(list, 1)

	w = s.request(http.MethodDelete, "/users/"+created.ID, "")
	s.Equal(http.StatusNoContent, w.Code)

	w = s.request(http.MethodGet, "/users/"+created.ID, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestDuplicateEmail() {
	body := `{"name":"Jane Smith","email":"jane.smith@example.com"}`
	s.Require().Equal(http.StatusCreated, s.request(http.MethodPost, "/users", body).Code)

	w := s.request(http.MethodPost, "/users", body)
	s.Equal(http.StatusConflict, w.Code)
	var errBody response.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &errBody))
	s.Equal("AlreadyExistsError", errBody.Error)
	s.Equal(http.StatusConflict, errBody.StatusCode)
}

func (s *RouterSuite) TestValidationError() {
	w := s.request(http.MethodPost, "/users", `{"name":"","email":"not-an-email"}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestHealth() {
	w := s.request(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"healthy"`)
}

func (s *RouterSuite) TestOpenAPIDocument() {
	w := s.request(http.MethodGet, "/openapi.json", "")
	s.Equal(http.StatusOK, w.Code)
	var doc map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &doc))
	s.Contains(doc["paths"], "/users/{id}")

	w = s.request(http.MethodGet, "/swagger/index.html", "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestRequestIDEchoed() {
	w := s.request(http.MethodGet, "/users", "", logger.RequestIDHeader, "trace-42")
	s.Equal("trace-42", w.Header().Get(logger.RequestIDHeader))
}

func (s *RouterSuite) TestCORSPreflight() {
	w := s.request(http.MethodOptions, "/users", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", http.MethodPost)
	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func (s *RouterSuite) TestCorruptStoredRowIsInternalError() {
	ts := time.Now().UTC()
	s.Require().NoError(s.db.Create(&postgres.UserSchema{
		ID: "legacy-1", Name: "Legacy", Email: "legacy-no-dot@localhost", CreatedAt: ts, UpdatedAt: ts,
	}).Error)

	w := s.request(http.MethodGet, "/users/legacy-1", "")

	s.Equal(http.StatusInternalServerError, w.Code)
	var errBody response.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &errBody))
	s.Equal("StorageError", errBody.Error)
	s.Equal("Internal server error", errBody.Message)
	s.NotContains(w.Body.String(), "legacy-no-dot")
}

func (s *RouterSuite) TestUnknownRouteUsesErrorBody() {
	w := s.request(http.MethodGet, "/nope", "")

	s.Equal(http.StatusNotFound, w.Code)
	var errBody response.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &errBody))
	s.Equal(http.StatusNotFound, errBody.StatusCode)
	s.Equal("NotFoundError", errBody.Error)
	s.Equal("/nope", errBody.Path)
}

func (s *RouterSuite) TestUnsupportedMethodUsesErrorBody() {
	w := s.request(http.MethodPatch, "/users", "")

	s.Equal(http.StatusMethodNotAllowed, w.Code)
	var errBody response.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &errBody))
	s.Equal(http.StatusMethodNotAllowed, errBody.StatusCode)
	s.Equal("/users", errBody.Path)
}
