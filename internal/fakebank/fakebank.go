// Package fakebank is an in-memory bank API used by tests and by the
// fakebank command. Each operation can be scripted to fail or stall, and
// every call's metadata is recorded for assertions.
package fakebank

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/msto63/bankprobe/internal/bankapi"
	"github.com/msto63/bankprobe/internal/catalog"
	"github.com/msto63/bankprobe/pkg/core/logging"
)

var logger = logging.New("fakebank")

// Script controls how the bank answers
type Script struct {
	// Fail maps an operation name to the status code it fails with
	Fail map[string]codes.Code
	// Delay maps an operation name to how long it stalls before answering
	Delay map[string]time.Duration
	// Balance is returned by GetBalance; defaults to 12.50 GBP
	Balance *bankapi.Money
}

// Call is one recorded invocation
type Call struct {
	Operation string
	Metadata  metadata.MD
}

// Bank implements the three bank API services
type Bank struct {
	mu        sync.Mutex
	script    Script
	calls     []Call
	transfers map[string]bankapi.TransferStatus

	health *health.Server
}

// New creates a bank that follows script
func New(script Script) *Bank {
	if script.Balance == nil {
		script.Balance = &bankapi.Money{Currency: "GBP", Value: "12.50"}
	}
	return &Bank{
		script:    script,
		transfers: make(map[string]bankapi.TransferStatus),
		health:    health.NewServer(),
	}
}

// Register adds the bank services and the standard health service to s
func (b *Bank) Register(s grpc.ServiceRegistrar) {
	bankapi.RegisterHealthCheckServiceServer(s, healthCheckServer{b})
	bankapi.RegisterAccountServiceServer(s, accountServer{b})
	bankapi.RegisterTransferServiceServer(s, transferServer{b})
	healthpb.RegisterHealthServer(s, b.health)

	for _, svc := range []string{"", bankapi.HealthCheckServiceName, bankapi.AccountServiceName, bankapi.TransferServiceName} {
		b.health.SetServingStatus(svc, healthpb.HealthCheckResponse_SERVING)
	}
}

// Shutdown marks every service as not serving
func (b *Bank) Shutdown() {
	b.health.Shutdown()
}

// Calls returns the recorded calls in arrival order
func (b *Bank) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Identities returns the value of key carried by each recorded call
func (b *Bank) Identities(key string) []string {
	calls := b.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		if v := c.Metadata.Get(key); len(v) > 0 {
			out[i] = v[0]
		}
	}
	return out
}

// enter records the call and applies the scripted delay and failure
func (b *Bank) enter(ctx context.Context, op string) error {
	md, _ := metadata.FromIncomingContext(ctx)

	b.mu.Lock()
	b.calls = append(b.calls, Call{Operation: op, Metadata: md.Copy()})
	delay := b.script.Delay[op]
	code, fail := b.script.Fail[op]
	b.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		}
	}

	if fail && code != codes.OK {
		logger.Debug("Scripted failure", "operation", op, "code", code.String())
		return status.Error(code, fmt.Sprintf("%s: scripted failure", op))
	}
	return nil
}

type healthCheckServer struct{ b *Bank }

func (s healthCheckServer) HealthCheck(ctx context.Context, req *bankapi.HealthCheckRequest) (*bankapi.HealthCheckResponse, error) {
	if err := s.b.enter(ctx, catalog.OpHealthCheck); err != nil {
		return nil, err
	}
	return &bankapi.HealthCheckResponse{Status: bankapi.HealthStatusServing}, nil
}

type accountServer struct{ b *Bank }

func (s accountServer) GetBalance(ctx context.Context, req *bankapi.GetBalanceRequest) (*bankapi.GetBalanceResponse, error) {
	if err := s.b.enter(ctx, catalog.OpGetBalance); err != nil {
		return nil, err
	}
	if req.Account == nil {
		return nil, status.Error(codes.InvalidArgument, "account is required")
	}
	balance := *s.b.script.Balance
	return &bankapi.GetBalanceResponse{
		Available:   &balance,
		Current:     &balance,
		UpdatedAtMs: time.Now().UnixMilli(),
	}, nil
}

func (s accountServer) GetAccount(ctx context.Context, req *bankapi.GetAccountRequest) (*bankapi.GetAccountResponse, error) {
	if err := s.b.enter(ctx, catalog.OpGetAccount); err != nil {
		return nil, err
	}
	if req.Account == nil {
		return nil, status.Error(codes.InvalidArgument, "account is required")
	}
	return &bankapi.GetAccountResponse{
		Name:        "Current Account",
		Type:        "CHECKING",
		Currency:    s.b.script.Balance.Currency,
		BankAccount: req.Account,
	}, nil
}

func (s accountServer) GetTransactions(ctx context.Context, req *bankapi.GetTransactionsRequest) (*bankapi.GetTransactionsResponse, error) {
	if err := s.b.enter(ctx, catalog.OpGetTransactions); err != nil {
		return nil, err
	}
	limit := int(req.Limit)
	if limit <= 0 || limit > 3 {
		limit = 3
	}
	now := time.Now()
	txs := make([]*bankapi.Transaction, limit)
	for i := range txs {
		txs[i] = &bankapi.Transaction{
			ID:          fmt.Sprintf("tx-%d", i+1),
			Type:        "DEBIT",
			Status:      bankapi.TransferStatusSuccess,
			Amount:      &bankapi.Money{Currency: s.b.script.Balance.Currency, Value: "1.00"},
			Description: "fake transaction",
			CreatedAtMs: now.Add(-time.Duration(i) * time.Hour).UnixMilli(),
		}
	}
	return &bankapi.GetTransactionsResponse{Transactions: txs}, nil
}

type transferServer struct{ b *Bank }

func (s transferServer) Transfer(ctx context.Context, req *bankapi.TransferRequest) (*bankapi.TransferResponse, error) {
	if err := s.b.enter(ctx, catalog.OpTransfer); err != nil {
		return nil, err
	}
	if req.TransferID == "" {
		return nil, status.Error(codes.InvalidArgument, "transfer id is required")
	}
	s.b.record(req.TransferID, bankapi.TransferStatusProcessing)
	return &bankapi.TransferResponse{TransactionID: req.TransferID, Status: bankapi.TransferStatusProcessing}, nil
}

func (s transferServer) CreateBulkTransfer(ctx context.Context, req *bankapi.CreateBulkTransferRequest) (*bankapi.CreateBulkTransferResponse, error) {
	if err := s.b.enter(ctx, catalog.OpCreateBulkTransfer); err != nil {
		return nil, err
	}
	if req.Payload == nil || len(req.Payload.Transfers) == 0 {
		return nil, status.Error(codes.InvalidArgument, "bulk transfer has no transfers")
	}
	resp := &bankapi.CreateBulkTransferResponse{}
	for _, t := range req.Payload.Transfers {
		id := uuid.NewString()
		s.b.record(id, bankapi.TransferStatusPending)
		resp.Transactions = append(resp.Transactions, &bankapi.BulkTransactionResult{
			RefID:         t.RefID,
			TransactionID: id,
			Status:        bankapi.TransferStatusPending,
		})
	}
	return resp, nil
}

func (s transferServer) GetTransferStatus(ctx context.Context, req *bankapi.GetTransferStatusRequest) (*bankapi.GetTransferStatusResponse, error) {
	if err := s.b.enter(ctx, catalog.OpGetTransferStatus); err != nil {
		return nil, err
	}
	id := req.TransferID
	if id == "" {
		id = req.TransactionID
	}
	s.b.mu.Lock()
	st, ok := s.b.transfers[id]
	s.b.mu.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "transfer %q not found", id)
	}
	return &bankapi.GetTransferStatusResponse{TransactionID: id, Status: st}, nil
}

func (b *Bank) record(id string, st bankapi.TransferStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transfers[id] = st
}
