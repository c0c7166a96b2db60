// Package remote implements the user repository as a client of the REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// UserRepository implements user.Repository over HTTP. Transport failures
// and unavailable servers are reported as *errors.NetworkError.
type UserRepository struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a repository talking to the API at baseURL,
// e.g. "http://localhost:8080".
func NewUserRepository(baseURL string, client *http.Client, log *zap.Logger) *UserRepository {
	return &UserRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     log,
	}
}

// writeRequest is the body of POST and PUT /users.
type writeRequest struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	City      *string    `json:"city,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
}

// errorResponse is the error body returned by the API.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// List returns every user.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var snaps []domain.Snapshot
	if err := r.do(ctx, http.MethodGet, "/users", nil, &snaps); err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(snaps))
	for _, s := range snaps {
		u, err := restore(s)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// GetByID returns (nil, nil) when the API answers 404.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var snap domain.Snapshot
	err := r.do(ctx, http.MethodGet, userPath(id), nil, &snap)
	var nfErr *apperrors.NotFoundError
	if errors.As(err, &nfErr) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return restore(snap)
}

// GetByEmail scans the user list; the API has no lookup by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, nil
}

// Create posts u. The server assigns the identifier and timestamps of the
// returned user. A 409 answer is reported as a storage error wrapping
// ErrDuplicateKey.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	var snap domain.Snapshot
	if err := r.do(ctx, http.MethodPost, "/users", toRequest(u, false), &snap); err != nil {
		return nil, err
	}
	return restore(snap)
}

// Update sends the full field set of u.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	var snap domain.Snapshot
	if err := r.do(ctx, http.MethodPut, userPath(u.ID()), toRequest(u, true), &snap); err != nil {
		return nil, err
	}
	return restore(snap)
}

// Delete removes a user by ID.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, userPath(id), nil, nil)
}

func userPath(id string) string {
	return "/users/" + url.PathEscape(id)
}

// toRequest builds the write body. On update an absent city is sent as ""
// so the server clears it.
func toRequest(u *domain.User, update bool) writeRequest {
	s := u.Snapshot()
	req := writeRequest{Name: s.Name, Email: s.Email, City: s.City, BirthDate: s.BirthDate}
	if update && req.City == nil {
		empty := ""
		req.City = &empty
	}
	return req
}

func restore(s domain.Snapshot) (*domain.User, error) {
	u, err := domain.Restore(s)
	if err != nil {
		return nil, apperrors.NewStorageError("invalid user in response", err)
	}
	return u, nil
}

// do performs one request and decodes a 2xx body into out.
func (r *UserRepository) do(ctx context.Context, method, path string, in, out any) error {
	log := logger.WithContext(ctx, r.log)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.GetRequestID(ctx); id != "" {
		req.Header.Set(logger.RequestIDHeader, id)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		log.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return apperrors.NewNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.NewNetworkError("decode response", err)
		}
		return nil
	}

	return r.statusError(method, path, resp)
}

// statusError maps a non-2xx answer back onto the error taxonomy.
func (r *UserRepository) statusError(method, path string, resp *http.Response) error {
	var e errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(raw))
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.NewValidationError("", e.Message)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewNotFoundError("user", strings.TrimPrefix(path, "/users/"))
	case resp.StatusCode == http.StatusConflict:
		return apperrors.NewStorageError(e.Message, apperrors.ErrDuplicateKey)
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return apperrors.NewNetworkError(fmt.Sprintf("%s %s: %d %s", method, path, resp.StatusCode, e.Message), nil)
	default:
		return apperrors.NewStorageError(fmt.Sprintf("%s %s: %d", method, path, resp.StatusCode), errors.New(e.Message))
	}
}
