package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// VerificationServiceName は gRPC のサービス名です。
const VerificationServiceName = "kmsconnect.verification.v1.VerificationService"

// VerificationServiceServer はバックオフィス向け審査 API のサーバー実装です。
type VerificationServiceServer interface {
	GetProfile(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListPendingReview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ApproveProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RejectProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	BulkUpdateStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ReviewDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// VerificationServiceDesc は VerificationService の ServiceDesc です。
var VerificationServiceDesc = grpc.ServiceDesc{
	ServiceName: VerificationServiceName,
	HandlerType: (*VerificationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetProfile",
			Handler: unaryHandler("GetProfile", newInt64Value, func(s VerificationServiceServer, ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
				return s.GetProfile(ctx, req)
			}),
		},
		{
			MethodName: "ListPendingReview",
			Handler: unaryHandler("ListPendingReview", newStruct, func(s VerificationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.ListPendingReview(ctx, req)
			}),
		},
		{
			MethodName: "ApproveProfile",
			Handler: unaryHandler("ApproveProfile", newStruct, func(s VerificationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.ApproveProfile(ctx, req)
			}),
		},
		{
			MethodName: "RejectProfile",
			Handler: unaryHandler("RejectProfile", newStruct, func(s VerificationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.RejectProfile(ctx, req)
			}),
		},
		{
			MethodName: "BulkUpdateStatus",
			Handler: unaryHandler("BulkUpdateStatus", newStruct, func(s VerificationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.BulkUpdateStatus(ctx, req)
			}),
		},
		{
			MethodName: "ReviewDocument",
			Handler: unaryHandler("ReviewDocument", newStruct, func(s VerificationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.ReviewDocument(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kmsconnect/verification/v1/verification.proto",
}

// RegisterVerificationServiceServer はサーバー実装を登録します。
func RegisterVerificationServiceServer(r grpc.ServiceRegistrar, srv VerificationServiceServer) {
	r.RegisterService(&VerificationServiceDesc, srv)
}

func newInt64Value() *wrapperspb.Int64Value { return new(wrapperspb.Int64Value) }

func newStruct() *structpb.Struct { return new(structpb.Struct) }

func fullMethod(method string) string {
	return "/" + VerificationServiceName + "/" + method
}

// unaryHandler は生成コードの _Handler 関数と同じ手順でリクエストを復号し、インターセプタを通して呼び出します。
func unaryHandler[Req proto.Message, Resp proto.Message](
	method string,
	newReq func() Req,
	call func(VerificationServiceServer, context.Context, Req) (Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(VerificationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(VerificationServiceServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// VerificationServiceClient は VerificationService のクライアントです。
type VerificationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewVerificationServiceClient はクライアントを生成します。
func NewVerificationServiceClient(cc grpc.ClientConnInterface) *VerificationServiceClient {
	return &VerificationServiceClient{cc: cc}
}

func (c *VerificationServiceClient) invoke(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *VerificationServiceClient) GetProfile(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetProfile", in, opts...)
}

func (c *VerificationServiceClient) ListPendingReview(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListPendingReview", in, opts...)
}

func (c *VerificationServiceClient) ApproveProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ApproveProfile", in, opts...)
}

func (c *VerificationServiceClient) RejectProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RejectProfile", in, opts...)
}

func (c *VerificationServiceClient) BulkUpdateStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "BulkUpdateStatus", in, opts...)
}

func (c *VerificationServiceClient) ReviewDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ReviewDocument", in, opts...)
}
