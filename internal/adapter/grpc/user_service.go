package grpc

import (
	"context"

	"go.uber.org/zap"

	"user-crud-service/internal/usecase/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// userServer implements UserServiceServer over the user use cases.
type userServer struct {
	uc  user.UserUsecase
	log *zap.Logger
}

// NewUserServiceServer creates a new gRPC user service server
func NewUserServiceServer(uc user.UserUsecase, log *zap.Logger) UserServiceServer {
	return &userServer{uc: uc, log: log}
}

// CreateUser handles gRPC CreateUser request
func (s *userServer) CreateUser(ctx context.Context, req *CreateUserRequest) (*CreateUserResponse, error) {
	birth, err := parseDate(req.BirthDate)
	if err != nil {
		return nil, s.toStatus(ctx, "CreateUser", err)
	}

	u, err := s.uc.CreateUser(ctx, user.CreateUserRequest{
		Name:      req.Name,
		Email:     req.Email,
		City:      optional(req.City),
		BirthDate: birth,
	})
	if err != nil {
		return nil, s.toStatus(ctx, "CreateUser", err)
	}
	return &CreateUserResponse{User: toWire(u)}, nil
}

// GetUser handles gRPC GetUser request
func (s *userServer) GetUser(ctx context.Context, req *GetUserRequest) (*GetUserResponse, error) {
	u, err := s.uc.GetUserByID(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, "GetUser", err)
	}
	return &GetUserResponse{User: toWire(u)}, nil
}

// ListUsers handles gRPC ListUsers request
func (s *userServer) ListUsers(ctx context.Context, _ *ListUsersRequest) (*ListUsersResponse, error) {
	users, err := s.uc.GetAllUsers(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, "ListUsers", err)
	}
	out := make([]*User, len(users))
	for i, u := range users {
		out[i] = toWire(u)
	}
	return &ListUsersResponse{Users: out}, nil
}

// UpdateUser handles gRPC UpdateUser request
func (s *userServer) UpdateUser(ctx context.Context, req *UpdateUserRequest) (*UpdateUserResponse, error) {
	in := user.UpdateUserRequest{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
		City:  req.City,
	}
	if req.BirthDate != nil {
		birth, err := parseDate(*req.BirthDate)
		if err != nil {
			return nil, s.toStatus(ctx, "UpdateUser", err)
		}
		in.BirthDate = birth
	}

	u, err := s.uc.UpdateUser(ctx, in)
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateUser", err)
	}
	return &UpdateUserResponse{User: toWire(u)}, nil
}

// DeleteUser handles gRPC DeleteUser request
func (s *userServer) DeleteUser(ctx context.Context, req *DeleteUserRequest) (*DeleteUserResponse, error) {
	if err := s.uc.DeleteUser(ctx, req.ID); err != nil {
		return nil, s.toStatus(ctx, "DeleteUser", err)
	}
	return &DeleteUserResponse{}, nil
}

func (s *userServer) toStatus(ctx context.Context, method string, err error) error {
	log := logger.WithContext(ctx, s.log)
	if apperrors.IsClientError(err) {
		log.Info("rpc rejected", zap.String("method", method), zap.Error(err))
	} else {
		log.Error("rpc failed", zap.String("method", method), zap.Error(err))
	}
	return apperrors.ToGRPCStatus(err).Err()
}
