// Package grpcadapter reports failed and panicking gRPC server calls.
//
//	srv := grpc.NewServer(
//		grpc.ChainUnaryInterceptor(grpcadapter.UnaryServerInterceptor(tracker)),
//		grpc.ChainStreamInterceptor(grpcadapter.StreamServerInterceptor(tracker)),
//	)
package grpcadapter

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

// FrameworkTag is the value of the "framework" tag on every event.
const FrameworkTag = "grpc"

// DefaultReportedCodes are the status codes that indicate a server fault.
var DefaultReportedCodes = []codes.Code{codes.Unknown, codes.Internal, codes.DataLoss, codes.Unavailable}

// Option configures the interceptors.
type Option func(*interceptor)

// WithReportedCodes replaces the set of status codes that are captured.
func WithReportedCodes(cs ...codes.Code) Option {
	return func(i *interceptor) {
		i.reported = make(map[codes.Code]bool, len(cs))
		for _, c := range cs {
			i.reported[c] = true
		}
	}
}

// WithRepanic re-raises recovered panics after capture instead of returning
// codes.Internal.
func WithRepanic(repanic bool) Option {
	return func(i *interceptor) {
		i.repanic = repanic
	}
}

type interceptor struct {
	capturer xrayradar.Capturer
	reported map[codes.Code]bool
	repanic  bool
}

func newInterceptor(c xrayradar.Capturer, opts []Option) *interceptor {
	i := &interceptor{capturer: c}
	WithReportedCodes(DefaultReportedCodes...)(i)
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// UnaryServerInterceptor captures unary handler errors and panics.
func UnaryServerInterceptor(c xrayradar.Capturer, opts ...Option) grpc.UnaryServerInterceptor {
	i := newInterceptor(c, opts)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		ctx = withRequest(ctx, info.FullMethod)
		defer func() {
			if r := recover(); r != nil {
				err = i.recovered(ctx, info.FullMethod, r)
			}
		}()

		resp, err = handler(ctx, req)
		i.report(ctx, info.FullMethod, err)
		return resp, err
	}
}

// StreamServerInterceptor captures stream handler errors and panics.
func StreamServerInterceptor(c xrayradar.Capturer, opts ...Option) grpc.StreamServerInterceptor {
	i := newInterceptor(c, opts)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		ctx := withRequest(ss.Context(), info.FullMethod)
		defer func() {
			if r := recover(); r != nil {
				err = i.recovered(ctx, info.FullMethod, r)
			}
		}()

		err = handler(srv, &contextStream{ServerStream: ss, ctx: ctx})
		i.report(ctx, info.FullMethod, err)
		return err
	}
}

func (i *interceptor) report(ctx context.Context, method string, err error) {
	if err == nil {
		return
	}
	code := status.Code(err)
	if !i.reported[code] {
		return
	}
	i.capturer.CaptureException(ctx, err, tags(method, code)...)
}

func (i *interceptor) recovered(ctx context.Context, method string, r any) error {
	err, ok := r.(error)
	if !ok {
		err = errors.New(fmt.Sprint(r))
	}
	opts := append(tags(method, codes.Internal), xrayradar.WithLevel(xrayradar.LevelFatal))
	i.capturer.CaptureException(ctx, fmt.Errorf("panic: %w", err), opts...)
	if i.repanic {
		panic(r)
	}
	return status.Error(codes.Internal, "internal error")
}

func tags(method string, code codes.Code) []xrayradar.CaptureOption {
	return []xrayradar.CaptureOption{
		xrayradar.WithTag("framework", FrameworkTag),
		xrayradar.WithTag("operation", method),
		xrayradar.WithTag("grpc_code", code.String()),
	}
}

// withRequest attaches a snapshot built from incoming metadata and the peer.
func withRequest(ctx context.Context, method string) context.Context {
	return xrayradar.ContextWithRequest(ctx, xrayradar.NewRequestSnapshot(callSource{ctx: ctx, method: method}))
}

// callSource exposes an incoming call as a xrayradar.RequestSource.
type callSource struct {
	ctx    context.Context
	method string
}

func (s callSource) Method() string { return "POST" }

func (s callSource) URL() string {
	if md, ok := metadata.FromIncomingContext(s.ctx); ok {
		if auth := md.Get(":authority"); len(auth) > 0 {
			return "grpc://" + auth[0] + s.method
		}
	}
	return s.method
}

func (s callSource) Headers() map[string][]string {
	md, ok := metadata.FromIncomingContext(s.ctx)
	if !ok {
		return nil
	}
	return md
}

func (s callSource) RemoteAddr() string {
	if p, ok := peer.FromContext(s.ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// contextStream overrides Context so handlers see the request snapshot.
type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context {
	return s.ctx
}
