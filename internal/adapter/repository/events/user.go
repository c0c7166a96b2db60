// Package events decorates a user repository so that successful writes
// publish lifecycle events.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
	"user-crud-service/pkg/logger"
)

// Event types.
const (
	TypeUserCreated = "user.created"
	TypeUserUpdated = "user.updated"
	TypeUserDeleted = "user.deleted"
)

// Event is the message body published for a user write.
type Event struct {
	Type       string           `json:"type"`
	UserID     string           `json:"userId"`
	OccurredAt time.Time        `json:"occurredAt"`
	User       *domain.Snapshot `json:"user,omitempty"`
}

// Publisher sends an event body to the broker.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserRepository implements user.Repository and publishes an Event after
// each successful Create, Update and Delete. Publish failures are logged and
// never fail the write.
type UserRepository struct {
	next user.Repository
	pub  Publisher
	log  *zap.Logger
	now  func() time.Time
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository wraps next with event publishing.
func NewUserRepository(next user.Repository, pub Publisher, log *zap.Logger) *UserRepository {
	return &UserRepository{
		next: next,
		pub:  pub,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	return r.next.List(ctx)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.next.GetByID(ctx, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.next.GetByEmail(ctx, email)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	created, err := r.next.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, TypeUserCreated, created.ID(), created)
	return created, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	updated, err := r.next.Update(ctx, u)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, TypeUserUpdated, updated.ID(), updated)
	return updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(ctx, TypeUserDeleted, id, nil)
	return nil
}

func (r *UserRepository) publish(ctx context.Context, eventType, id string, u *domain.User) {
	ev := Event{Type: eventType, UserID: id, OccurredAt: r.now()}
	if u != nil {
		snap := u.Snapshot()
		ev.User = &snap
	}

	if err := r.pub.PublishJSON(ctx, ev); err != nil {
		logger.WithContext(ctx, r.log).Warn("failed to publish user event",
			zap.String("type", eventType),
			zap.String("user_id", id),
			zap.Error(err),
		)
	}
}
