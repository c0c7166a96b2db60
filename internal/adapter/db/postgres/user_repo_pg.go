package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// UserRepoPG implements the Repository interface using GORM. It runs against
// PostgreSQL in production and SQLite locally and in tests.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

var _ user.Repository = (*UserRepoPG)(nil)

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
// Timestamps are owned by the domain entity, not by GORM.
type UserSchema struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)"`
	Name      string     `gorm:"not null"`
	Email     string     `gorm:"not null;uniqueIndex"`
	City      *string    `gorm:"default:null"`
	BirthDate *time.Time `gorm:"type:date"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime:false"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func toSchema(u *domain.User) UserSchema {
	s := u.Snapshot()
	return UserSchema{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		City:      s.City,
		BirthDate: s.BirthDate,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (m UserSchema) toDomain() (*domain.User, error) {
	u, err := domain.Restore(domain.Snapshot{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		City:      m.City,
		BirthDate: m.BirthDate,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	})
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("corrupt user record %s", m.ID), err)
	}
	return u, nil
}

// isDuplicateKey reports whether err comes from a unique constraint.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// storageError wraps a driver error, tagging unique violations with
// ErrDuplicateKey.
func storageError(message string, err error) error {
	if isDuplicateKey(err) {
		return apperrors.NewStorageError(message, fmt.Errorf("%w: %v", apperrors.ErrDuplicateKey, err))
	}
	return apperrors.NewStorageError(message, err)
}

// List returns every user in insertion order.
func (r *UserRepoPG) List(ctx context.Context) ([]*domain.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		logger.WithContext(ctx, r.log).Error("failed to list users from db", zap.Error(err))
		return nil, storageError("failed to list users", err)
	}

	users := make([]*domain.User, 0, len(models))
	for _, m := range models {
		u, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// GetByID retrieves a user by ID. It returns (nil, nil) when no row matches.
func (r *UserRepoPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by email. It returns (nil, nil) when no row matches.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepoPG) findOne(ctx context.Context, cond string, arg string) (*domain.User, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Where(cond, arg).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.WithContext(ctx, r.log).Error("failed to get user from db", zap.String("where", cond), zap.Error(err))
		return nil, storageError("failed to get user", err)
	}
	return model.toDomain()
}

// Create inserts a new user.
func (r *UserRepoPG) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, apperrors.NewValidationError("", "user cannot be nil")
	}

	model := toSchema(u)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		logger.WithContext(ctx, r.log).Error("failed to create user in db", zap.String("id", model.ID), zap.Error(err))
		return nil, storageError("failed to create user", err)
	}

	logger.WithContext(ctx, r.log).Debug("user created in db", zap.String("id", model.ID))
	return model.toDomain()
}

// Update writes every mutable column of u. It returns a NotFoundError when
// the row no longer exists.
func (r *UserRepoPG) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, apperrors.NewValidationError("", "user cannot be nil")
	}

	model := toSchema(u)
	res := r.db.WithContext(ctx).
		Model(&UserSchema{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"name":       model.Name,
			"email":      model.Email,
			"city":       model.City,
			"birth_date": model.BirthDate,
			"updated_at": model.UpdatedAt,
		})
	if res.Error != nil {
		logger.WithContext(ctx, r.log).Error("failed to update user in db", zap.String("id", model.ID), zap.Error(res.Error))
		return nil, storageError("failed to update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewNotFoundError("user", model.ID)
	}

	logger.WithContext(ctx, r.log).Debug("user updated in db", zap.String("id", model.ID))
	return model.toDomain()
}

// Delete removes a user by ID. It returns a NotFoundError when no row matches.
func (r *UserRepoPG) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UserSchema{})
	if res.Error != nil {
		logger.WithContext(ctx, r.log).Error("failed to delete user in db", zap.String("id", id), zap.Error(res.Error))
		return storageError("failed to delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("user", id)
	}

	logger.WithContext(ctx, r.log).Debug("user deleted in db", zap.String("id", id))
	return nil
}
