// Package rpc exposes the validator as a gRPC service. Messages are
// well-known protobuf types: requests are a Struct with "name" and
// "source" fields and results are the JSON form of a validation result
// carried in a Struct.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// #region descriptor

const ServiceName = "aisp.verify.v1.Verifier"

const (
	validateMethod = "/" + ServiceName + "/Validate"
	tierMethod     = "/" + ServiceName + "/Tier"
)

// VerifierServer is the server API of the Verifier service.
type VerifierServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Tier(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

// ServiceDesc describes the Verifier service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VerifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
		{MethodName: "Tier", Handler: tierHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aisp/verify/v1/verifier.proto",
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerifierServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: validateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(VerifierServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func tierHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerifierServer).Tier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: tierMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(VerifierServer).Tier(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion descriptor

// #region messages

func newRequest(name string, src []byte) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"name": name, "source": string(src)})
}

func readRequest(req *structpb.Struct) (name string, src []byte, err error) {
	fields := req.GetFields()
	sv, ok := fields["source"]
	if !ok {
		return "", nil, fmt.Errorf("request has no source field")
	}
	if _, isString := sv.GetKind().(*structpb.Value_StringValue); !isString {
		return "", nil, fmt.Errorf("source must be a string")
	}
	return fields["name"].GetStringValue(), []byte(sv.GetStringValue()), nil
}

func encodeResult(res *validator.Result) (*structpb.Struct, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return out, nil
}

func decodeResult(s *structpb.Struct) (*validator.Result, error) {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	var res validator.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// #endregion messages
