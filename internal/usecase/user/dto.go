package user

import "time"

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name      string  `validate:"required,max=255"`
	Email     string  `validate:"required,max=255"`
	City      *string `validate:"omitempty,max=255"`
	BirthDate *time.Time
}

// UpdateUserRequest represents a partial update of an existing user.
// A nil field is left unchanged.
type UpdateUserRequest struct {
	ID        string  `validate:"required"`
	Name      *string `validate:"omitempty,max=255"`
	Email     *string `validate:"omitempty,max=255"`
	City      *string `validate:"omitempty,max=255"`
	BirthDate *time.Time
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateUserRequest) IsEmpty() bool {
	return r.Name == nil && r.Email == nil && r.City == nil && r.BirthDate == nil
}
