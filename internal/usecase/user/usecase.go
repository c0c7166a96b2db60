package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, a remote HTTP API) to be used interchangeably.
//
// GetByID and GetByEmail return (nil, nil) when no user matches; callers
// decide whether absence is an error. Update and Delete return a
// *errors.NotFoundError when the identifier has no record.
type Repository interface {
	List(ctx context.Context) ([]*domain.User, error)                   // All users, insertion order
	GetByID(ctx context.Context, id string) (*domain.User, error)       // Retrieve user by ID
	GetByEmail(ctx context.Context, email string) (*domain.User, error) // Retrieve user by email
	Create(ctx context.Context, u *domain.User) (*domain.User, error)   // Persist a new user
	Update(ctx context.Context, u *domain.User) (*domain.User, error)   // Persist changes to an existing user
	Delete(ctx context.Context, id string) error                        // Delete user by ID
}

// Usecase implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Usecase struct {
	repo     Repository          // Repository for data access
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

// New creates a new instance of Usecase with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Usecase {
	return &Usecase{repo: r, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a ValidationError
// with a human-readable message.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var (
		messages []string
		field    string
	)
	for _, e := range validationErrors {
		if field == "" {
			field = strings.ToLower(e.Field())
		}
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	if len(validationErrors) > 1 {
		field = ""
	}
	return apperrors.NewValidationError(field, strings.Join(messages, ", "))
}

// CreateUser creates a new user after validating the request and checking email uniqueness.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*domain.User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user", zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	u, err := domain.New(in.Name, in.Email, in.City, in.BirthDate)
	if err != nil {
		log.Warn("user rejected by domain rules", zap.Error(err))
		return nil, err
	}

	existingUser, err := uc.repo.GetByEmail(ctx, u.Email())
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", u.Email()), zap.Error(err))
		return nil, err
	}
	if existingUser != nil {
		log.Warn("email already exists", zap.String("email", u.Email()))
		return nil, apperrors.NewAlreadyExistsError("user", "email", u.Email())
	}

	created, err := uc.repo.Create(ctx, u)
	if err != nil {
		// Another request took the email between the lookup and the insert.
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			log.Warn("email taken concurrently", zap.String("email", u.Email()))
			return nil, apperrors.NewAlreadyExistsError("user", "email", u.Email())
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	log.Info("user created", zap.String("id", created.ID()))
	return created, nil
}

// GetUserByID retrieves a user by ID.
func (uc *Usecase) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	log := logger.WithContext(ctx, uc.log)

	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		log.Error("failed to get user", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if u == nil {
		log.Debug("user not found", zap.String("id", id))
		return nil, apperrors.NewNotFoundError("user", id)
	}

	return u, nil
}

// GetAllUsers retrieves every user.
func (uc *Usecase) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	log := logger.WithContext(ctx, uc.log)

	users, err := uc.repo.List(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, err
	}

	log.Debug("listed users", zap.Int("count", len(users)))
	return users, nil
}

// UpdateUser applies a partial update to an existing user. Only the fields
// present in the request are changed.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*domain.User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("updating user", zap.String("id", in.ID))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	current, err := uc.GetUserByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return current, nil
	}

	// Mutate a copy so a rejected field leaves the stored user untouched.
	u, err := domain.Restore(current.Snapshot())
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if err := u.UpdateName(*in.Name); err != nil {
			log.Warn("name rejected", zap.String("id", in.ID), zap.Error(err))
			return nil, err
		}
	}
	if in.Email != nil {
		if err := u.UpdateEmail(*in.Email); err != nil {
			log.Warn("email rejected", zap.String("id", in.ID), zap.Error(err))
			return nil, err
		}

		existingUser, err := uc.repo.GetByEmail(ctx, u.Email())
		if err != nil {
			log.Error("failed to check existing email", zap.String("email", u.Email()), zap.Error(err))
			return nil, err
		}
		if existingUser != nil && existingUser.ID() != u.ID() {
			log.Warn("email already exists", zap.String("email", u.Email()), zap.String("existing_id", existingUser.ID()))
			return nil, apperrors.NewAlreadyExistsError("user", "email", u.Email())
		}
	}
	if in.City != nil {
		u.UpdateCity(*in.City)
	}
	if in.BirthDate != nil {
		u.UpdateBirthDate(*in.BirthDate)
	}

	updated, err := uc.repo.Update(ctx, u)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			return nil, apperrors.NewAlreadyExistsError("user", "email", u.Email())
		}
		log.Error("failed to update user", zap.String("id", in.ID), zap.Error(err))
		return nil, err
	}

	return updated, nil
}

// DeleteUser deletes an existing user.
func (uc *Usecase) DeleteUser(ctx context.Context, id string) error {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.String("id", id))

	if _, err := uc.GetUserByID(ctx, id); err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		log.Error("failed to delete user", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}
