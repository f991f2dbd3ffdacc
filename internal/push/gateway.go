/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package push

import (
	"context"
	"fmt"

	"chatd/internal/nlog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// The push gateway is a unary gRPC service carrying google.protobuf.Struct in both directions:
//
//	request:  {tokens: [string], title: string, body: string, data: {string: string}}
//	response: {successCount: number, failureCount: number}
const (
	gatewayServiceName  = "chatd.push.v1.PushGateway"
	sendMulticastMethod = "/" + gatewayServiceName + "/SendMulticast"
)

// GatewayServer is the server side of the push gateway.
type GatewayServer interface {
	SendMulticast(ctx context.Context, n Notification) (*BatchResult, error)
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: gatewayServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendMulticast", Handler: sendMulticastHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chatd/push/v1/gateway.proto",
}

func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&gatewayServiceDesc, srv)
}

func sendMulticastHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		n, err := notificationFromStruct(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		res, err := srv.(GatewayServer).SendMulticast(ctx, n)
		if err != nil {
			return nil, err
		}
		return res.toStruct()
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: sendMulticastMethod}
	return interceptor(ctx, in, info, call)
}

// GatewaySender is the Sender talking to a push gateway over gRPC.
type GatewaySender struct {
	conn   grpc.ClientConnInterface
	closer func() error
}

// DialGateway connects to the gateway at addr. The connection is established lazily.
func DialGateway(addr string, opts ...grpc.DialOption) (*GatewaySender, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("Could not create push gateway client for %s: %w", addr, err)
	}
	return &GatewaySender{conn: conn, closer: conn.Close}, nil
}

func NewGatewaySender(conn grpc.ClientConnInterface) *GatewaySender {
	return &GatewaySender{conn: conn}
}

func (g *GatewaySender) SendMulticast(ctx context.Context, n Notification) (*BatchResult, error) {
	req, err := n.toStruct()
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := g.conn.Invoke(ctx, sendMulticastMethod, req, resp); err != nil {
		return nil, err
	}
	return batchResultFromStruct(resp), nil
}

func (g *GatewaySender) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

// LogSender accepts every batch and only logs it. It serves both as the Sender used when no
// gateway is configured and as the development gateway behind `chatd push-gateway`.
type LogSender struct {
	logger nlog.Logger
}

func NewLogSender(logger nlog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) SendMulticast(_ context.Context, n Notification) (*BatchResult, error) {
	l.logger.Logf("Push %q to %d devices: %s", n.Title, len(n.Tokens), n.Body)
	return &BatchResult{SuccessCount: len(n.Tokens)}, nil
}

func (n Notification) toStruct() (*structpb.Struct, error) {
	tokens := make([]any, len(n.Tokens))
	for i, t := range n.Tokens {
		tokens[i] = t
	}
	data := make(map[string]any, len(n.Data))
	for k, v := range n.Data {
		data[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"tokens": tokens,
		"title":  n.Title,
		"body":   n.Body,
		"data":   data,
	})
}

func notificationFromStruct(s *structpb.Struct) (Notification, error) {
	fields := s.GetFields()
	n := Notification{
		Title: fields["title"].GetStringValue(),
		Body:  fields["body"].GetStringValue(),
		Data:  map[string]string{},
	}
	for _, v := range fields["tokens"].GetListValue().GetValues() {
		if t := v.GetStringValue(); t != "" {
			n.Tokens = append(n.Tokens, t)
		}
	}
	if len(n.Tokens) == 0 {
		return n, fmt.Errorf("no device tokens in request")
	}
	for k, v := range fields["data"].GetStructValue().GetFields() {
		n.Data[k] = v.GetStringValue()
	}
	return n, nil
}

func (r *BatchResult) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"successCount": r.SuccessCount,
		"failureCount": r.FailureCount,
	})
}

func batchResultFromStruct(s *structpb.Struct) *BatchResult {
	fields := s.GetFields()
	return &BatchResult{
		SuccessCount: int(fields["successCount"].GetNumberValue()),
		FailureCount: int(fields["failureCount"].GetNumberValue()),
	}
}
