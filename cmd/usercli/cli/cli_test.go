package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
	apperrors "user-crud-service/pkg/errors"
)

// memRepository is an in-memory user.Repository.
type memRepository struct {
	mu    sync.Mutex
	users []*domain.User
}

func (r *memRepository) List(context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.User(nil), r.users...), nil
}

func (r *memRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID() == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memRepository) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, u)
	return u, nil
}

func (r *memRepository) Update(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.users {
		if existing.ID() == u.ID() {
			r.users[i] = u
			return u, nil
		}
	}
	return nil, apperrors.NewNotFoundError("user", u.ID())
}

func (r *memRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.ID() == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFoundError("user", id)
}

func newCLI(t *testing.T) (*CLI, *memRepository, *bytes.Buffer) {
	t.Helper()
	log := zaptest.NewLogger(t)
	repo := &memRepository{}
	out := &bytes.Buffer{}
	c := New(user.New(repo, log), out, log)
	c.now = func() time.Time { return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC) }
	return c, repo, out
}

func TestSeed_IsIdempotent(t *testing.T) {
	c, repo, out := newCLI(t)
	ctx := context.Background()

	require.NoError(t, c.Run(ctx, []string{"seed"}))
	assert.Len(t, repo.users, 2)
	assert.Contains(t, out.String(), "created")

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"seed"}))
	assert.Len(t, repo.users, 2)
	assert.Contains(t, out.String(), "skipped john.doe@example.com")
	assert.Contains(t, out.String(), "skipped jane.smith@example.com")
}

func TestCreateGetUpdateDelete(t *testing.T) {
	c, repo, out := newCLI(t)
	ctx := context.Background()

	require.NoError(t, c.Run(ctx, []string{
		"create", "--name", "John Doe", "--email", "john@example.com",
		"--city", "New York", "--birth-date", "1990-05-15",
	}))
	var created userView
	require.NoError(t, json.Unmarshal(out.Bytes(), &created))
	assert.Equal(t, "John Doe", created.Name)
	require.NotNil(t, created.Age)
	assert.Equal(t, 34, *created.Age)
	id := repo.users[0].ID()

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"update", id, "--city", "Boston"}))
	var updated userView
	require.NoError(t, json.Unmarshal(out.Bytes(), &updated))
	require.NotNil(t, updated.City)
	assert.Equal(t, "Boston", *updated.City)
	assert.Equal(t, "john@example.com", updated.Email)

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"get", id}))
	assert.Contains(t, out.String(), `"city": "Boston"`)

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"list"}))
	var list []userView
	require.NoError(t, json.Unmarshal(out.Bytes(), &list))
	assert.Len(t, list, 1)

	out.Reset()
	require.NoError(t, c.Run(ctx, []string{"delete", id}))
	assert.Equal(t, "deleted "+id+"\n", out.String())

	var notFound *apperrors.NotFoundError
	assert.ErrorAs(t, c.Run(ctx, []string{"get", id}), &notFound)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		usage bool
	}{
		{"no command", nil, true},
		{"unknown command", []string{"frobnicate"}, true},
		{"get without id", []string{"get"}, true},
		{"update without id", []string{"update", "--name", "x"}, true},
		{"unknown flag", []string{"create", "--nickname", "x"}, true},
		{"bad birth date", []string{"create", "--name", "x", "--email", "x@example.com", "--birth-date", "15/05/1990"}, false},
		{"invalid email", []string{"create", "--name", "x", "--email", "nope"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newCLI(t)
			err := c.Run(context.Background(), tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.usage, errors.Is(err, ErrUsage))
		})
	}
}
