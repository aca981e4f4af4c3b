package api

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor creates a gRPC unary interceptor that logs every call.
// Read-only calls and heartbeats log at debug level, other calls at info.
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		event := logger.Debug()
		if err != nil {
			event = logger.Warn().Err(err)
		} else if !isQuietMethod(info.FullMethod) {
			event = logger.Info()
		}
		event.
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC call")

		return resp, err
	}
}

// isQuietMethod reports whether calls to method are logged at debug level
func isQuietMethod(method string) bool {
	// Extract method name from full path (e.g., "/burrow.Registry/ListWorkers" -> "ListWorkers")
	parts := strings.Split(method, "/")
	if len(parts) < 2 {
		return false
	}
	methodName := parts[len(parts)-1]

	readOnlyPrefixes := []string{
		"List",
		"Get",
		"Check",
		"Watch",
	}

	for _, prefix := range readOnlyPrefixes {
		if strings.HasPrefix(methodName, prefix) {
			return true
		}
	}

	// Heartbeats arrive every few seconds per worker
	return methodName == "Heartbeat"
}
