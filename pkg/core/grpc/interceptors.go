package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/msto63/bankprobe/pkg/core/logging"
)

var interceptorLogger = logging.New("grpc")

// Context keys for request metadata
type contextKey string

const (
	RequestIDKey    contextKey = "request_id"
	RequestIDHeader string     = "x-request-id"

	// DefaultIdentityKey is the metadata key the bank API reads the calling
	// institution from
	DefaultIdentityKey = "token-bank-id"
)

// Identity is the caller-identity entry attached to every outgoing call
type Identity struct {
	Key   string
	Value string
}

// NewIdentity returns an identity for bankID under the default key
func NewIdentity(bankID string) Identity {
	return Identity{Key: DefaultIdentityKey, Value: bankID}
}

// HeaderObserver receives the response headers of one call
type HeaderObserver func(method string, header metadata.MD)

// LogHeaders is the default HeaderObserver
func LogHeaders(method string, header metadata.MD) {
	interceptorLogger.Debug("Headers received from server", "method", method, "headers", header)
}

// withIdentity sets id on the outgoing metadata, replacing any existing
// values for the key
func withIdentity(ctx context.Context, id Identity) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	md.Set(id.Key, id.Value)
	return metadata.NewOutgoingContext(ctx, md)
}

// ClientIdentityInterceptor attaches the caller identity to every unary call
// and hands the response headers to observer. The invoker's error is
// returned as is.
func ClientIdentityInterceptor(id Identity, observer HeaderObserver) grpc.UnaryClientInterceptor {
	if id.Key == "" {
		id.Key = DefaultIdentityKey
	}
	if observer == nil {
		observer = LogHeaders
	}
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var header metadata.MD
		opts = append(opts, grpc.Header(&header))

		err := invoker(withIdentity(ctx, id), method, req, reply, cc, opts...)

		observer(method, header)
		return err
	}
}

// ClientStreamIdentityInterceptor is the streaming counterpart of
// ClientIdentityInterceptor. Headers are observed once the stream delivers
// them.
func ClientStreamIdentityInterceptor(id Identity, observer HeaderObserver) grpc.StreamClientInterceptor {
	if id.Key == "" {
		id.Key = DefaultIdentityKey
	}
	if observer == nil {
		observer = LogHeaders
	}
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		stream, err := streamer(withIdentity(ctx, id), desc, cc, method, opts...)
		if err != nil {
			return nil, err
		}
		return &headerStream{ClientStream: stream, method: method, observer: observer}, nil
	}
}

type headerStream struct {
	grpc.ClientStream
	method   string
	observer HeaderObserver
	seen     bool
}

func (s *headerStream) RecvMsg(m interface{}) error {
	err := s.ClientStream.RecvMsg(m)
	if !s.seen {
		s.seen = true
		if header, herr := s.ClientStream.Header(); herr == nil {
			s.observer(s.method, header)
		}
	}
	return err
}

// RecoveryInterceptor recovers from panics in gRPC handlers
func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				interceptorLogger.Error("gRPC panic recovered", "panic", r, "stack", string(stack))
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs gRPC requests together with the calling
// institution
func LoggingInterceptor(identityKey string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		requestID := GetRequestID(ctx)

		resp, err := handler(ctx, req)

		interceptorLogger.Info("gRPC request",
			"request_id", requestID,
			"method", info.FullMethod,
			"institution", IncomingValue(ctx, identityKey),
			"status", status.Code(err).String(),
			"duration", time.Since(start),
		)

		return resp, err
	}
}

// RequestIDInterceptor adds a request ID to the context
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := IncomingValue(ctx, RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx = context.WithValue(ctx, RequestIDKey, requestID)
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			interceptorLogger.Debug("Could not set request id header", "error", err)
		}

		return handler(ctx, req)
	}
}

// ClientRequestIDInterceptor propagates request ID to outgoing requests
func ClientRequestIDInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		requestID := GetRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, requestID)

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// ClientLoggingInterceptor logs outgoing gRPC requests
func ClientLoggingInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()

		err := invoker(ctx, method, req, reply, cc, opts...)

		interceptorLogger.Debug("gRPC client request",
			"method", method,
			"status", status.Code(err).String(),
			"duration", time.Since(start),
		)

		return err
	}
}

// CallRecorder receives one observation per finished client call
type CallRecorder interface {
	ObserveCall(method string, code codes.Code, duration time.Duration)
}

// ClientMetricsInterceptor reports every unary call to rec
func ClientMetricsInterceptor(rec CallRecorder) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		rec.ObserveCall(method, status.Code(err), time.Since(start))
		return err
	}
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return IncomingValue(ctx, RequestIDHeader)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// IncomingValue returns the first value of key in the incoming metadata
func IncomingValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(key)
	if len(values) > 0 {
		return values[0]
	}
	return ""
}
