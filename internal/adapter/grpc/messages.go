package grpc

import (
	"fmt"
	"time"

	domain "user-crud-service/internal/domain/user"
	apperrors "user-crud-service/pkg/errors"
)

// User is the wire form of a user.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	City      string    `json:"city,omitempty"`
	BirthDate string    `json:"birthDate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateUserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	City      string `json:"city,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
}

type CreateUserResponse struct {
	User *User `json:"user"`
}

type GetUserRequest struct {
	ID string `json:"id"`
}

type GetUserResponse struct {
	User *User `json:"user"`
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []*User `json:"users"`
}

// UpdateUserRequest changes only the fields that are set.
type UpdateUserRequest struct {
	ID        string  `json:"id"`
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	City      *string `json:"city,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
}

type UpdateUserResponse struct {
	User *User `json:"user"`
}

type DeleteUserRequest struct {
	ID string `json:"id"`
}

type DeleteUserResponse struct{}

func toWire(u *domain.User) *User {
	out := &User{
		ID:        u.ID(),
		Name:      u.Name(),
		Email:     u.Email(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
	if city, ok := u.City(); ok {
		out.City = city
	}
	if d, ok := u.BirthDate(); ok {
		out.BirthDate = d.Format(time.DateOnly)
	}
	return out
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty means unset.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError("birthDate", fmt.Sprintf("%q is not a YYYY-MM-DD or RFC 3339 date", s))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
