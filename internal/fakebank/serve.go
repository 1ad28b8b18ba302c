package fakebank

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
)

const bufSize = 1024 * 1024

// Local is a bank served over an in-memory listener
type Local struct {
	Bank   *Bank
	Server *coregrpc.Server
	lis    *bufconn.Listener
	done   <-chan error
}

// StartLocal serves bank on a bufconn listener. creds nil serves plaintext.
func StartLocal(bank *Bank, creds *coregrpc.Credentials) *Local {
	cfg := coregrpc.DefaultServerConfig()
	cfg.EnableReflection = false

	srv := coregrpc.NewServer(cfg, creds)
	bank.Register(srv.GRPCServer())

	lis := bufconn.Listen(bufSize)
	// a non-nil listener never fails to start
	done, _ := srv.StartAsync(lis)
	return &Local{
		Bank:   bank,
		Server: srv,
		lis:    lis,
		done:   done,
	}
}

// Target is the address clients should dial together with DialOption
func (l *Local) Target() string {
	return "passthrough:///bufnet"
}

// DialOption routes connections to the in-memory listener
func (l *Local) DialOption() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return l.lis.DialContext(ctx)
	})
}

// Stop stops the server without waiting for pending calls
func (l *Local) Stop() {
	l.Server.Stop()
	<-l.done
}

// Serve runs bank on a real listener until ctx is cancelled, then stops
// gracefully within grace
func Serve(ctx context.Context, cfg coregrpc.ServerConfig, creds *coregrpc.Credentials, bank *Bank, grace time.Duration) error {
	srv := coregrpc.NewServer(cfg, creds)
	bank.Register(srv.GRPCServer())

	if err := srv.Listen(); err != nil {
		return err
	}
	logger.Info("Fake bank started", "address", srv.Address(), "mtls", creds != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(nil)
	})
	g.Go(func() error {
		<-gctx.Done()
		bank.Shutdown()

		stopCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		srv.StopWithTimeout(stopCtx)
		logger.Info("Fake bank stopped", "address", srv.Address())
		return nil
	})
	return g.Wait()
}
