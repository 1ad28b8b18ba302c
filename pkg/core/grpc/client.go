package grpc

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
	"github.com/msto63/bankprobe/pkg/core/logging"
)

var channelLogger = logging.New("channel")

// ClientConfig holds gRPC client configuration
type ClientConfig struct {
	Target            string
	MaxRecvMsgSize    int
	MaxSendMsgSize    int
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
	ShutdownGrace     time.Duration
	CallTimeout       time.Duration
}

// DefaultClientConfig returns a default client configuration
func DefaultClientConfig(target string) ClientConfig {
	return ClientConfig{
		Target:            target,
		MaxRecvMsgSize:    16 * 1024 * 1024, // 16MB
		MaxSendMsgSize:    16 * 1024 * 1024, // 16MB
		KeepaliveInterval: 50 * time.Second,
		KeepaliveTimeout:  20 * time.Second,
		ShutdownGrace:     5 * time.Second,
		CallTimeout:       30 * time.Second,
	}
}

// Channel is one long-lived connection to a single remote endpoint. It
// implements grpc.ClientConnInterface so service clients can be built on it.
//
// The connection is established lazily on the first call; gRPC retries the
// handshake transparently. Close drains in-flight calls for a bounded grace
// period before cancelling them.
type Channel struct {
	conn   *grpc.ClientConn
	target string

	// calls derive from ctx so Close can cancel whatever is still in flight
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	active   int
	inflight sync.WaitGroup
	closeErr error
	done     chan struct{}
}

// Open creates a channel to cfg.Target using creds for mutual TLS. A nil
// creds is rejected; use OpenInsecure for plaintext test endpoints.
func Open(cfg ClientConfig, creds *Credentials, opts ...grpc.DialOption) (*Channel, error) {
	if creds == nil {
		return nil, coreerrors.NewTransportError("open", cfg.Target, "no transport credentials", nil)
	}
	return open(cfg, creds.TransportCredentials(), opts...)
}

// OpenInsecure creates a plaintext channel. It exists for local fakes only.
func OpenInsecure(cfg ClientConfig, opts ...grpc.DialOption) (*Channel, error) {
	return open(cfg, insecure.NewCredentials(), opts...)
}

func open(cfg ClientConfig, tc credentials.TransportCredentials, opts ...grpc.DialOption) (*Channel, error) {
	if err := validateClientConfig(cfg); err != nil {
		return nil, err
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(tc),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(cfg.MaxSendMsgSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveInterval,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		WithJSONCodec(),
	}

	// Append custom options
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(cfg.Target, dialOpts...)
	if err != nil {
		return nil, coreerrors.NewTransportError("open", cfg.Target, "failed to create client", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	channelLogger.Info("Opening channel", "target", cfg.Target, "keepalive", cfg.KeepaliveInterval)

	return &Channel{
		conn:   conn,
		target: cfg.Target,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

func validateClientConfig(cfg ClientConfig) error {
	target := strings.TrimSpace(cfg.Target)
	if target == "" {
		return coreerrors.NewTransportError("open", cfg.Target, "target address is empty", nil)
	}
	if !strings.Contains(target, "://") && !strings.HasPrefix(target, "passthrough:") {
		if _, _, err := net.SplitHostPort(target); err != nil {
			return coreerrors.NewTransportError("open", cfg.Target, "target is not host:port", err)
		}
	}
	if cfg.KeepaliveInterval <= 0 {
		return coreerrors.NewTransportError("open", cfg.Target, "keepalive interval must be positive", nil)
	}
	if cfg.KeepaliveTimeout < 0 {
		return coreerrors.NewTransportError("open", cfg.Target, "keepalive timeout must not be negative", nil)
	}
	return nil
}

// Target returns the remote address
func (c *Channel) Target() string {
	return c.target
}

// State returns the connectivity state of the underlying connection
func (c *Channel) State() connectivity.State {
	return c.conn.GetState()
}

// Conn exposes the underlying connection, e.g. for the standard health client
func (c *Channel) Conn() *grpc.ClientConn {
	return c.conn
}

// Invoke implements grpc.ClientConnInterface
func (c *Channel) Invoke(ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error {
	ctx, release, err := c.acquire(ctx, method)
	if err != nil {
		return err
	}
	defer release()
	return c.conn.Invoke(ctx, method, args, reply, opts...)
}

// NewStream implements grpc.ClientConnInterface. The stream counts as in
// flight until its context ends.
func (c *Channel) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	ctx, release, err := c.acquire(ctx, method)
	if err != nil {
		return nil, err
	}
	stream, err := c.conn.NewStream(ctx, desc, method, opts...)
	if err != nil {
		release()
		return nil, err
	}
	go func() {
		<-stream.Context().Done()
		release()
	}()
	return stream, nil
}

// acquire registers one in-flight call. The returned context is cancelled
// when either the caller's context ends or Close gives up waiting.
func (c *Channel) acquire(ctx context.Context, method string) (context.Context, func(), error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, coreerrors.NewTransportError("invoke", c.target, "channel is closed: "+method, nil)
	}
	c.active++
	c.inflight.Add(1)
	c.mu.Unlock()

	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)

	var once sync.Once
	release := func() {
		once.Do(func() {
			stop()
			cancel()
			c.mu.Lock()
			c.active--
			c.mu.Unlock()
			c.inflight.Done()
		})
	}
	return callCtx, release, nil
}

// Close stops accepting calls and waits up to grace for in-flight calls to
// finish. Calls still running after grace are cancelled and a TransportError
// is returned. Close returns immediately when nothing is in flight and is
// safe to call more than once.
func (c *Channel) Close(grace time.Duration) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return c.closeErr
	}
	c.closed = true
	c.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(drained)
	}()

	var err error
	if grace < 0 {
		grace = 0
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-drained:
	case <-timer.C:
		if n := c.pending(); n > 0 {
			c.cancel()
			err = coreerrors.NewTransportError("close", c.target, fmt.Sprintf("%d in-flight call(s) did not finish within %s; cancelled", n, grace), nil)
		}
		<-drained
	}
	c.cancel()

	if cerr := c.conn.Close(); cerr != nil && err == nil {
		err = coreerrors.NewTransportError("close", c.target, "failed to close connection", cerr)
	}

	if err != nil {
		channelLogger.Warn("Channel closed with pending calls", "target", c.target, "error", err)
	} else {
		channelLogger.Info("Channel closed", "target", c.target)
	}

	c.closeErr = err
	close(c.done)
	return err
}

// pending returns the number of calls currently in flight
func (c *Channel) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
