package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"user-crud-service/internal/adapter/grpc/middleware"
	domain "user-crud-service/internal/domain/user"
	usecase "user-crud-service/internal/usecase/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

type MockUserUsecase struct {
	mock.Mock
}

func (m *MockUserUsecase) CreateUser(ctx context.Context, req usecase.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserUsecase) UpdateUser(ctx context.Context, req usecase.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// startServer serves the user service on an in-memory listener and returns a client.
func startServer(t *testing.T, uc usecase.UserUsecase, limiter *middleware.RateLimiter) *UserServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		logger.RequestIDInterceptor(),
		limiter.UnaryInterceptor(),
	))
	RegisterUserServiceServer(srv, NewUserServiceServer(uc, zaptest.NewLogger(t)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewUserServiceClient(conn)
}

func sampleUser(t *testing.T) *domain.User {
	t.Helper()
	city := "New York"
	birth := time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC)
	u, err := domain.New("John Doe", "john.doe@example.com", &city, &birth)
	require.NoError(t, err)
	return u
}

func TestUserService_CreateUser(t *testing.T) {
	uc := new(MockUserUsecase)
	client := startServer(t, uc, nil)
	u := sampleUser(t)
	birth := time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC)
	city := "New York"

	uc.On("CreateUser", mock.Anything, usecase.CreateUserRequest{
		Name:      "John Doe",
		Email:     "john.doe@example.com",
		City:      &city,
		BirthDate: &birth,
	}).Return(u, nil)

	resp, err := client.CreateUser(context.Background(), &CreateUserRequest{
		Name:      "John Doe",
		Email:     "john.doe@example.com",
		City:      "New York",
		BirthDate: "1990-05-15",
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID(), resp.User.ID)
	assert.Equal(t, "1990-05-15", resp.User.BirthDate)
	assert.True(t, u.CreatedAt().Equal(resp.User.CreatedAt))
	uc.AssertExpectations(t)
}

func TestUserService_CreateUserBadDate(t *testing.T) {
	uc := new(MockUserUsecase)
	client := startServer(t, uc, nil)

	_, err := client.CreateUser(context.Background(), &CreateUserRequest{
		Name: "John", Email: "john@example.com", BirthDate: "May 15",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	uc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestUserService_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", apperrors.NewValidationError("name", "user name cannot be empty"), codes.InvalidArgument},
		{"not found", apperrors.NewNotFoundError("user", "abc"), codes.NotFound},
		{"conflict", apperrors.NewAlreadyExistsError("user", "email", "a@b.co"), codes.AlreadyExists},
		{"network", apperrors.NewNetworkError("upstream unreachable", errors.New("dial")), codes.Unavailable},
		{"storage", apperrors.NewStorageError("failed to get user", errors.New("disk")), codes.Internal},
		{"unclassified", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockUserUsecase)
			client := startServer(t, uc, nil)
			uc.On("GetUserByID", mock.Anything, "abc").Return(nil, tt.err)

			_, err := client.GetUser(context.Background(), &GetUserRequest{ID: "abc"})
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestUserService_ListUpdateDelete(t *testing.T) {
	uc := new(MockUserUsecase)
	client := startServer(t, uc, nil)
	u := sampleUser(t)
	ctx := context.Background()

	uc.On("GetAllUsers", mock.Anything).Return([]*domain.User{u}, nil)
	list, err := client.ListUsers(ctx, &ListUsersRequest{})
	require.NoError(t, err)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "New York", list.Users[0].City)

	name := "Johnny"
	uc.On("UpdateUser", mock.Anything, usecase.UpdateUserRequest{ID: u.ID(), Name: &name}).
		Return(u, nil)
	_, err = client.UpdateUser(ctx, &UpdateUserRequest{ID: u.ID(), Name: &name})
	require.NoError(t, err)

	uc.On("DeleteUser", mock.Anything, u.ID()).Return(nil)
	_, err = client.DeleteUser(ctx, &DeleteUserRequest{ID: u.ID()})
	require.NoError(t, err)

	uc.AssertExpectations(t)
}

func TestUserService_RequestIDHeader(t *testing.T) {
	uc := new(MockUserUsecase)
	client := startServer(t, uc, nil)

	var seen string
	uc.On("GetAllUsers", mock.Anything).Run(func(args mock.Arguments) {
		seen = logger.GetRequestID(args.Get(0).(context.Context))
	}).Return([]*domain.User{}, nil)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "req-7")
	var header metadata.MD
	_, err := client.ListUsers(ctx, &ListUsersRequest{}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-7"}, header.Get("x-request-id"))
	assert.Equal(t, "req-7", seen)
}

func TestUserService_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	limiter := middleware.NewRateLimiter(rdb, middleware.RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstCapacity:     1,
	}, zaptest.NewLogger(t))

	uc := new(MockUserUsecase)
	client := startServer(t, uc, limiter)
	uc.On("GetAllUsers", mock.Anything).Return([]*domain.User{}, nil)

	_, err := client.ListUsers(context.Background(), &ListUsersRequest{})
	require.NoError(t, err)

	_, err = client.ListUsers(context.Background(), &ListUsersRequest{})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	uc.AssertNumberOfCalls(t, "GetAllUsers", 1)
}
