package grpc_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/msto63/bankprobe/internal/bankapi"
	"github.com/msto63/bankprobe/internal/catalog"
	"github.com/msto63/bankprobe/internal/fakebank"
	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
)

type headerLog struct {
	mu      sync.Mutex
	methods []string
	headers []metadata.MD
}

func (h *headerLog) observe(method string, md metadata.MD) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.methods = append(h.methods, method)
	h.headers = append(h.headers, md)
}

func TestIdentityInterceptor_EveryCatalogCall(t *testing.T) {
	bank := fakebank.New(fakebank.Script{
		Fail: map[string]codes.Code{
			catalog.OpGetAccount: codes.Unavailable,
			catalog.OpTransfer:   codes.PermissionDenied,
		},
	})
	local := fakebank.StartLocal(bank, nil)
	defer local.Stop()

	ch := openLocal(t, local)
	defer ch.Close(time.Second)

	var headers headerLog
	conn := coregrpc.Intercept(ch, coregrpc.ClientIdentityInterceptor(coregrpc.Identity{Key: "institution-id", Value: "bank-x"}, headers.observe))

	cat := catalog.Default(catalog.Fixtures{BankID: "bank-x"})
	for _, op := range cat.Operations() {
		_, _ = op.Invoke(context.Background(), conn, op.NewRequest())
	}

	ids := bank.Identities("institution-id")
	require.Len(t, ids, 7)
	for i, id := range ids {
		assert.Equal(t, "bank-x", id, "call %d", i)
	}
	assert.Len(t, headers.methods, 7)
	assert.Equal(t, bankapi.HealthCheckMethod, headers.methods[0])
}

func TestIdentityInterceptor_OverwritesExistingValue(t *testing.T) {
	bank := fakebank.New(fakebank.Script{})
	local := fakebank.StartLocal(bank, nil)
	defer local.Stop()

	ch := openLocal(t, local)
	defer ch.Close(time.Second)

	conn := coregrpc.Intercept(ch, coregrpc.ClientIdentityInterceptor(coregrpc.NewIdentity("bank-x"), nil))

	ctx := metadata.AppendToOutgoingContext(context.Background(), coregrpc.DefaultIdentityKey, "someone-else")
	_, err := bankapi.NewHealthCheckServiceClient(conn).HealthCheck(ctx, &bankapi.HealthCheckRequest{})
	require.NoError(t, err)

	calls := bank.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"bank-x"}, calls[0].Metadata.Get(coregrpc.DefaultIdentityKey))
}

func TestIdentityInterceptor_ReturnsErrorVerbatim(t *testing.T) {
	want := errors.New("boom")
	var seen metadata.MD
	interceptor := coregrpc.ClientIdentityInterceptor(coregrpc.NewIdentity("bank-x"), func(_ string, md metadata.MD) { seen = md })

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, ok := metadata.FromOutgoingContext(ctx)
		require.True(t, ok)
		assert.Equal(t, []string{"bank-x"}, md.Get(coregrpc.DefaultIdentityKey))
		return want
	}

	err := interceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	assert.Same(t, want, err)
	assert.Nil(t, seen)
}

func TestRequestIDRoundTrip(t *testing.T) {
	local := fakebank.StartLocal(fakebank.New(fakebank.Script{}), nil)
	defer local.Stop()

	ch := openLocal(t, local)
	defer ch.Close(time.Second)

	var headers headerLog
	conn := coregrpc.Intercept(ch,
		coregrpc.ClientIdentityInterceptor(coregrpc.NewIdentity("bank-x"), headers.observe),
		coregrpc.ClientRequestIDInterceptor(),
		coregrpc.ClientLoggingInterceptor(),
	)

	ctx := coregrpc.WithRequestID(context.Background(), "req-42")
	_, err := bankapi.NewHealthCheckServiceClient(conn).HealthCheck(ctx, &bankapi.HealthCheckRequest{})
	require.NoError(t, err)

	require.Len(t, headers.headers, 1)
	assert.Equal(t, []string{"req-42"}, headers.headers[0].Get(coregrpc.RequestIDHeader))
}

// watchServer serves the standard health service and records the incoming
// metadata of every stream
type watchServer struct {
	health *grpchealth.Server
	lis    *bufconn.Listener
	srv    *grpc.Server

	mu       sync.Mutex
	incoming []metadata.MD
}

func startWatchServer(t *testing.T) *watchServer {
	t.Helper()
	w := &watchServer{health: grpchealth.NewServer(), lis: bufconn.Listen(1 << 20)}
	w.srv = grpc.NewServer(grpc.StreamInterceptor(func(srv interface{}, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		md, _ := metadata.FromIncomingContext(ss.Context())
		w.mu.Lock()
		w.incoming = append(w.incoming, md)
		w.mu.Unlock()
		if err := ss.SetHeader(metadata.Pairs("x-bank", "fake")); err != nil {
			return err
		}
		return handler(srv, ss)
	}))
	healthpb.RegisterHealthServer(w.srv, w.health)
	go func() { _ = w.srv.Serve(w.lis) }()
	t.Cleanup(w.srv.Stop)
	return w
}

func (w *watchServer) open(t *testing.T) *coregrpc.Channel {
	t.Helper()
	ch, err := coregrpc.OpenInsecure(coregrpc.DefaultClientConfig("passthrough:///bufnet"),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return w.lis.DialContext(ctx) }),
	)
	require.NoError(t, err)
	return ch
}

func TestStreamIdentityInterceptor_Watch(t *testing.T) {
	w := startWatchServer(t)
	ch := w.open(t)
	defer ch.Close(time.Second)

	var headers headerLog
	conn := coregrpc.Intercept(ch).WithStream(
		coregrpc.ClientStreamIdentityInterceptor(coregrpc.NewIdentity("bank-x"), headers.observe))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := healthpb.NewHealthClient(conn).Watch(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	resp, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	w.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	resp, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	w.mu.Lock()
	require.Len(t, w.incoming, 1)
	assert.Equal(t, []string{"bank-x"}, w.incoming[0].Get(coregrpc.DefaultIdentityKey))
	w.mu.Unlock()

	headers.mu.Lock()
	defer headers.mu.Unlock()
	require.Len(t, headers.methods, 1, "headers are observed once per stream")
	assert.Equal(t, "/grpc.health.v1.Health/Watch", headers.methods[0])
	assert.Equal(t, []string{"fake"}, headers.headers[0].Get("x-bank"))
}

func TestChannelClose_CancelsOpenStream(t *testing.T) {
	w := startWatchServer(t)
	ch := w.open(t)

	conn := coregrpc.Intercept(ch).WithStream(
		coregrpc.ClientStreamIdentityInterceptor(coregrpc.NewIdentity("bank-x"), func(string, metadata.MD) {}))

	stream, err := healthpb.NewHealthClient(conn).Watch(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	start := time.Now()
	err = ch.Close(50 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, coreerrors.IsTransport(err), "got %T", err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	_, err = stream.Recv()
	require.Error(t, err)
	assert.Equal(t, codes.Canceled, status.Code(err))

	// a closed channel refuses new streams
	_, err = healthpb.NewHealthClient(conn).Watch(context.Background(), &healthpb.HealthCheckRequest{})
	assert.True(t, coreerrors.IsTransport(err), "got %v", err)
}

type recorder struct {
	methods []string
	codes   []codes.Code
}

func (r *recorder) ObserveCall(method string, code codes.Code, _ time.Duration) {
	r.methods = append(r.methods, method)
	r.codes = append(r.codes, code)
}

func TestMetricsInterceptor(t *testing.T) {
	bank := fakebank.New(fakebank.Script{Fail: map[string]codes.Code{catalog.OpGetAccount: codes.NotFound}})
	local := fakebank.StartLocal(bank, nil)
	defer local.Stop()

	ch := openLocal(t, local)
	defer ch.Close(time.Second)

	rec := &recorder{}
	conn := coregrpc.Intercept(ch, coregrpc.ClientMetricsInterceptor(rec))
	client := bankapi.NewAccountServiceClient(conn)

	_, err := client.GetBalance(context.Background(), &bankapi.GetBalanceRequest{Account: &bankapi.BankAccount{}})
	require.NoError(t, err)
	_, err = client.GetAccount(context.Background(), &bankapi.GetAccountRequest{Account: &bankapi.BankAccount{}})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))

	assert.Equal(t, []string{bankapi.GetBalanceMethod, bankapi.GetAccountMethod}, rec.methods)
	assert.Equal(t, []codes.Code{codes.OK, codes.NotFound}, rec.codes)
}

func TestIntercept_Order(t *testing.T) {
	var order []string
	tag := func(name string) grpc.UnaryClientInterceptor {
		return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			order = append(order, name)
			return invoker(ctx, method, req, reply, cc, opts...)
		}
	}

	base := &stubConn{}
	conn := coregrpc.Intercept(coregrpc.Intercept(base, tag("outer")), tag("inner"))
	require.NoError(t, conn.Invoke(context.Background(), "/svc/M", nil, nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, 1, base.calls)
}

type stubConn struct{ calls int }

func (s *stubConn) Invoke(context.Context, string, interface{}, interface{}, ...grpc.CallOption) error {
	s.calls++
	return nil
}

func (s *stubConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, status.Error(codes.Unimplemented, "no streams")
}
