package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName — полное имя gRPC-сервиса проверки токенов.
	ServiceName = "agrichain.auth.v1.TokenValidator"
	// ValidateTokenMethod — полное имя метода для Invoke и интерсепторов.
	ValidateTokenMethod = "/" + ServiceName + "/ValidateToken"
)

// TokenValidatorServer — контракт сервиса. Сообщения — well-known типы protobuf:
// запрос StringValue с access-токеном, ответ Struct{valid, user_id, role, expires_at}.
type TokenValidatorServer interface {
	ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// TokenValidatorServiceDesc описывает сервис для grpc.Server.RegisterService.
var TokenValidatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TokenValidatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ValidateToken",
			Handler:    validateTokenHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agrichain/auth/v1/token_validator.proto",
}

// RegisterTokenValidatorServer регистрирует реализацию на сервере.
func RegisterTokenValidatorServer(s grpc.ServiceRegistrar, srv TokenValidatorServer) {
	s.RegisterService(&TokenValidatorServiceDesc, srv)
}

func validateTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(TokenValidatorServer).ValidateToken(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateTokenMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenValidatorServer).ValidateToken(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

// Client — клиент сервиса для других сервисов платформы.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ValidateToken вызывает удалённую проверку токена.
func (c *Client) ValidateToken(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateTokenMethod, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
