package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cwrk-planet/poker-service/pkg/logger"
)

// DefaultCallTimeout bounds unary calls that arrive without a deadline.
const DefaultCallTimeout = 10 * time.Second

// UnaryServerInterceptor logs each call, turns panics into codes.Internal and
// applies DefaultCallTimeout when the caller set no deadline.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
			defer cancel()
		}
		l := logger.FromContext(ctx).With("method", info.FullMethod)
		ctx = logger.WithContext(ctx, l)

		defer func() {
			if r := recover(); r != nil {
				l.Error("grpc unary panic",
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			l.Log(ctx, levelFor(err), "grpc unary",
				"code", status.Code(err).String(),
				"dur_ms", time.Since(start).Milliseconds(),
				"err", errString(err))
		}()

		return handler(ctx, req)
	}
}

func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		l := logger.FromContext(ss.Context()).With("method", info.FullMethod)

		defer func() {
			if r := recover(); r != nil {
				l.Error("grpc stream panic",
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			l.Log(ss.Context(), levelFor(err), "grpc stream",
				"code", status.Code(err).String(),
				"dur_ms", time.Since(start).Milliseconds(),
				"err", errString(err))
		}()

		return handler(srv, ss)
	}
}

func levelFor(err error) slog.Level {
	switch status.Code(err) {
	case codes.OK, codes.Canceled, codes.NotFound:
		return slog.LevelInfo
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
