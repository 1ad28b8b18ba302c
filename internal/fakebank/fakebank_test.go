package fakebank

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/msto63/bankprobe/internal/bankapi"
	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
)

func dial(t *testing.T, l *Local) *coregrpc.Channel {
	t.Helper()
	ch, err := coregrpc.OpenInsecure(coregrpc.DefaultClientConfig(l.Target()), l.DialOption())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close(time.Second) })
	return ch
}

func TestBank_RecordsMetadata(t *testing.T) {
	bank := New(Script{})
	l := StartLocal(bank, nil)
	defer l.Stop()
	ch := dial(t, l)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "institution-id", "bank-x")
	_, err := bankapi.NewHealthCheckServiceClient(ch).HealthCheck(ctx, &bankapi.HealthCheckRequest{BankID: "bank-x"})
	require.NoError(t, err)

	calls := bank.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "HealthCheck", calls[0].Operation)
	assert.Equal(t, []string{"bank-x"}, bank.Identities("institution-id"))
	assert.Equal(t, []string{""}, bank.Identities("missing"))
}

func TestBank_ScriptedFailure(t *testing.T) {
	bank := New(Script{Fail: map[string]codes.Code{"GetAccount": codes.Unavailable}})
	l := StartLocal(bank, nil)
	defer l.Stop()
	ch := dial(t, l)

	_, err := bankapi.NewAccountServiceClient(ch).GetAccount(context.Background(), &bankapi.GetAccountRequest{Account: &bankapi.BankAccount{}})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestBank_TransferStatus(t *testing.T) {
	l := StartLocal(New(Script{}), nil)
	defer l.Stop()
	client := bankapi.NewTransferServiceClient(dial(t, l))

	_, err := client.GetTransferStatus(context.Background(), &bankapi.GetTransferStatusRequest{TransferID: "t:1"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err := client.Transfer(context.Background(), &bankapi.TransferRequest{TransferID: "t:1"})
	require.NoError(t, err)
	assert.Equal(t, bankapi.TransferStatusProcessing, resp.Status)

	st, err := client.GetTransferStatus(context.Background(), &bankapi.GetTransferStatusRequest{TransferID: "t:1"})
	require.NoError(t, err)
	assert.Equal(t, bankapi.TransferStatusProcessing, st.Status)

	bulk, err := client.CreateBulkTransfer(context.Background(), &bankapi.CreateBulkTransferRequest{
		Payload: &bankapi.BulkTransferBody{Transfers: []*bankapi.BulkTransfer{{RefID: "1"}, {RefID: "2"}}},
	})
	require.NoError(t, err)
	require.Len(t, bulk.Transactions, 2)
	assert.Equal(t, "2", bulk.Transactions[1].RefID)
}

func TestBank_StandardHealth(t *testing.T) {
	bank := New(Script{})
	l := StartLocal(bank, nil)
	defer l.Stop()
	ch := dial(t, l)

	resp, err := healthpb.NewHealthClient(ch).Check(context.Background(), &healthpb.HealthCheckRequest{Service: bankapi.AccountServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	bank.Shutdown()
	resp, err = healthpb.NewHealthClient(ch).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := coregrpc.DefaultServerConfig()
	cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, nil, New(Script{}), time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ListenError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	cfg := coregrpc.DefaultServerConfig()
	cfg.Port = lis.Addr().(*net.TCPAddr).Port

	err = Serve(context.Background(), cfg, nil, New(Script{}), time.Second)
	assert.Error(t, err)
}
