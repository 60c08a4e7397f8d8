// internal/grpc/service.go

// Package grpc внутренний gRPC API каталога для соседних сервисов:
// проверка существования произведения, краткая информация о нем и поиск пользователя.
//
// Сообщения описаны стандартными типами protobuf (wrapperspb, structpb),
// поэтому сервису не нужен сгенерированный код.
package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName полное имя gRPC сервиса
const ServiceName = "yamdb.v1.CatalogInterService"

const (
	methodCheckTitleExists = "/" + ServiceName + "/CheckTitleExists"
	methodGetTitleInfo     = "/" + ServiceName + "/GetTitleInfo"
	methodGetUser          = "/" + ServiceName + "/GetUser"
)

// CatalogInterServiceServer серверная часть сервиса.
type CatalogInterServiceServer interface {
	CheckTitleExists(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error)
	GetTitleInfo(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	GetUser(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterCatalogInterServiceServer регистрирует реализацию на gRPC сервере.
func RegisterCatalogInterServiceServer(s gogrpc.ServiceRegistrar, srv CatalogInterServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogInterServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{MethodName: "CheckTitleExists", Handler: checkTitleExistsHandler},
		{MethodName: "GetTitleInfo", Handler: getTitleInfoHandler},
		{MethodName: "GetUser", Handler: getUserHandler},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "yamdb/v1/catalog.proto",
}

func checkTitleExistsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor gogrpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogInterServiceServer).CheckTitleExists(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: methodCheckTitleExists}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogInterServiceServer).CheckTitleExists(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func getTitleInfoHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor gogrpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogInterServiceServer).GetTitleInfo(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: methodGetTitleInfo}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogInterServiceServer).GetTitleInfo(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func getUserHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor gogrpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogInterServiceServer).GetUser(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: methodGetUser}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogInterServiceServer).GetUser(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
