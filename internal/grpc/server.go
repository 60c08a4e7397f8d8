// internal/grpc/server.go

package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/store"
)

// Server реализует CatalogInterServiceServer поверх хранилищ.
type Server struct {
	catalog store.CatalogStore
	users   store.UserStore
	logger  *slog.Logger
}

// NewServer создает новый экземпляр gRPC сервера каталога.
func NewServer(catalog store.CatalogStore, users store.UserStore, logger *slog.Logger) *Server {
	return &Server{
		catalog: catalog,
		users:   users,
		logger:  logger,
	}
}

// CheckTitleExists реализует gRPC метод CheckTitleExists.
func (s *Server) CheckTitleExists(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error) {
	s.logger.InfoContext(ctx, "gRPC CheckTitleExists called", slog.Int64("title_id", req.GetValue()))

	if req.GetValue() <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "title_id must be positive")
	}
	exists, err := s.catalog.TitleExists(ctx, req.GetValue())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to check title existence", slog.Int64("title_id", req.GetValue()), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to check title existence: %v", err)
	}
	return wrapperspb.Bool(exists), nil
}

// GetTitleInfo реализует gRPC метод GetTitleInfo.
func (s *Server) GetTitleInfo(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	s.logger.InfoContext(ctx, "gRPC GetTitleInfo called", slog.Int64("title_id", req.GetValue()))

	if req.GetValue() <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "title_id must be positive")
	}
	title, err := s.catalog.GetTitle(ctx, req.GetValue())
	if err != nil {
		if errors.Is(err, store.ErrTitleNotFound) {
			return nil, status.Errorf(codes.NotFound, "title not found with ID %d", req.GetValue())
		}
		s.logger.ErrorContext(ctx, "Failed to get title for GetTitleInfo", slog.Int64("title_id", req.GetValue()), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve title: %v", err)
	}

	info, err := structpb.NewStruct(titleToMap(title))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode title: %v", err)
	}
	return info, nil
}

// GetUser реализует gRPC метод GetUser (поиск по username).
func (s *Server) GetUser(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	s.logger.InfoContext(ctx, "gRPC GetUser called", slog.String("username", req.GetValue()))

	if req.GetValue() == "" {
		return nil, status.Errorf(codes.InvalidArgument, "username cannot be empty")
	}
	user, err := s.users.GetByUsername(ctx, req.GetValue())
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, status.Errorf(codes.NotFound, "user not found: %s", req.GetValue())
		}
		s.logger.ErrorContext(ctx, "Failed to get user for GetUser", slog.String("username", req.GetValue()), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve user: %v", err)
	}

	info, err := structpb.NewStruct(map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"is_admin": user.IsAdmin(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode user: %v", err)
	}
	return info, nil
}

func titleToMap(t *domain.Title) map[string]interface{} {
	m := map[string]interface{}{
		"id":     t.ID,
		"name":   t.Name,
		"year":   t.Year,
		"rating": nil,
	}
	if t.Rating != nil {
		m["rating"] = *t.Rating
	}
	if t.Category != nil {
		m["category"] = t.Category.Slug
	}
	genres := make([]interface{}, 0, len(t.Genres))
	for _, g := range t.Genres {
		genres = append(genres, g.Slug)
	}
	m["genres"] = genres
	return m
}
