package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// Intercepted is a connection whose calls pass through a fixed interceptor
// chain. It has the same invocation surface as the connection it wraps.
type Intercepted struct {
	next   grpc.ClientConnInterface
	unary  []grpc.UnaryClientInterceptor
	stream []grpc.StreamClientInterceptor
}

// Intercept wraps cc so that every unary call runs through interceptors, the
// first one outermost. Wrapping an Intercepted connection extends its chain.
func Intercept(cc grpc.ClientConnInterface, interceptors ...grpc.UnaryClientInterceptor) *Intercepted {
	if ic, ok := cc.(*Intercepted); ok {
		return &Intercepted{
			next:   ic.next,
			unary:  append(append([]grpc.UnaryClientInterceptor{}, ic.unary...), interceptors...),
			stream: ic.stream,
		}
	}
	return &Intercepted{next: cc, unary: interceptors}
}

// WithStream returns a copy of ic that also runs stream calls through
// interceptors
func (ic *Intercepted) WithStream(interceptors ...grpc.StreamClientInterceptor) *Intercepted {
	return &Intercepted{
		next:   ic.next,
		unary:  ic.unary,
		stream: append(append([]grpc.StreamClientInterceptor{}, ic.stream...), interceptors...),
	}
}

// Invoke implements grpc.ClientConnInterface
func (ic *Intercepted) Invoke(ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error {
	return ic.invokeAt(0, ctx, method, args, reply, opts...)
}

func (ic *Intercepted) invokeAt(i int, ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error {
	if i == len(ic.unary) {
		return ic.next.Invoke(ctx, method, args, reply, opts...)
	}
	invoker := func(ctx context.Context, method string, args, reply interface{}, _ *grpc.ClientConn, opts ...grpc.CallOption) error {
		return ic.invokeAt(i+1, ctx, method, args, reply, opts...)
	}
	return ic.unary[i](ctx, method, args, reply, ic.conn(), invoker, opts...)
}

// NewStream implements grpc.ClientConnInterface
func (ic *Intercepted) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return ic.streamAt(0, ctx, desc, method, opts...)
}

func (ic *Intercepted) streamAt(i int, ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	if i == len(ic.stream) {
		return ic.next.NewStream(ctx, desc, method, opts...)
	}
	streamer := func(ctx context.Context, desc *grpc.StreamDesc, _ *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return ic.streamAt(i+1, ctx, desc, method, opts...)
	}
	return ic.stream[i](ctx, desc, ic.conn(), method, streamer, opts...)
}

// conn returns the concrete connection handed to interceptors, or nil when
// the wrapped connection is not backed by one
func (ic *Intercepted) conn() *grpc.ClientConn {
	switch c := ic.next.(type) {
	case *grpc.ClientConn:
		return c
	case *Channel:
		return c.Conn()
	}
	return nil
}
