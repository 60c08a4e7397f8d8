// internal/grpc/client.go

package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const callTimeout = 3 * time.Second

// TitleInfo краткая информация о произведении
type TitleInfo struct {
	ID       int64
	Name     string
	Year     int
	Rating   *int
	Category string
	Genres   []string
}

// UserInfo краткая информация о пользователе
type UserInfo struct {
	ID       int64
	Username string
	Role     string
	IsAdmin  bool
}

// Client клиент CatalogInterService для соседних сервисов.
// Реализует review.TitleChecker, поэтому движок отзывов может работать и с удаленным каталогом.
type Client struct {
	conn   *gogrpc.ClientConn
	logger *slog.Logger
}

// NewClient создает клиент для адреса addr (например, "localhost:9091").
// Дополнительные опции (например, собственный dialer в тестах) добавляются после стандартных.
func NewClient(addr string, logger *slog.Logger, opts ...gogrpc.DialOption) (*Client, error) {
	logger.Info("Creating CatalogInterService gRPC client", slog.String("address", addr))
	dialOpts := append([]gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()), // Для разработки; в продакшене используйте TLS
	}, opts...)
	conn, err := gogrpc.NewClient(addr, dialOpts...)
	if err != nil {
		logger.Error("Failed to create CatalogInterService client", slog.String("address", addr), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create catalog client for %s: %w", addr, err)
	}
	return &Client{conn: conn, logger: logger}, nil
}

// TitleExists вызывает CheckTitleExists.
func (c *Client) TitleExists(ctx context.Context, titleID int64) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.invoke(ctx, methodCheckTitleExists, wrapperspb.Int64(titleID), out); err != nil {
		return false, fmt.Errorf("grpc CheckTitleExists failed for title %d: %w", titleID, err)
	}
	return out.GetValue(), nil
}

// GetTitleInfo вызывает GetTitleInfo. Отсутствующее произведение возвращает ошибку с кодом NotFound.
func (c *Client) GetTitleInfo(ctx context.Context, titleID int64) (*TitleInfo, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, methodGetTitleInfo, wrapperspb.Int64(titleID), out); err != nil {
		return nil, fmt.Errorf("grpc GetTitleInfo failed for title %d: %w", titleID, err)
	}
	f := out.GetFields()
	info := &TitleInfo{
		ID:       int64(f["id"].GetNumberValue()),
		Name:     f["name"].GetStringValue(),
		Year:     int(f["year"].GetNumberValue()),
		Category: f["category"].GetStringValue(),
	}
	if v, ok := f["rating"]; ok {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			rating := int(v.GetNumberValue())
			info.Rating = &rating
		}
	}
	for _, g := range f["genres"].GetListValue().GetValues() {
		info.Genres = append(info.Genres, g.GetStringValue())
	}
	return info, nil
}

// GetUser вызывает GetUser.
func (c *Client) GetUser(ctx context.Context, username string) (*UserInfo, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, methodGetUser, wrapperspb.String(username), out); err != nil {
		return nil, fmt.Errorf("grpc GetUser failed for %s: %w", username, err)
	}
	f := out.GetFields()
	return &UserInfo{
		ID:       int64(f["id"].GetNumberValue()),
		Username: f["username"].GetStringValue(),
		Role:     f["role"].GetStringValue(),
		IsAdmin:  f["is_admin"].GetBoolValue(),
	}, nil
}

// Close закрывает gRPC соединение.
func (c *Client) Close() error {
	if c.conn != nil {
		c.logger.Info("Closing gRPC connection to CatalogInterService")
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout) // Таймаут на сам вызов
	defer cancel()

	if err := c.conn.Invoke(callCtx, method, in, out); err != nil {
		st, _ := status.FromError(err)
		level := slog.LevelError
		if st.Code() == codes.NotFound {
			level = slog.LevelWarn
		}
		c.logger.Log(ctx, level, "CatalogInterService call failed",
			slog.String("method", method),
			slog.String("code", st.Code().String()),
			slog.String("message", st.Message()))
		return err
	}
	return nil
}
