// Package catalog holds the fixed table of bank API operations the harness
// exercises. Each entry pairs a request builder with a typed invocation over
// any grpc.ClientConnInterface, so callers never touch service stubs.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"

	"github.com/msto63/bankprobe/internal/bankapi"
	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
)

// Operation names in catalog order
const (
	OpHealthCheck        = "HealthCheck"
	OpGetBalance         = "GetBalance"
	OpGetAccount         = "GetAccount"
	OpGetTransactions    = "GetTransactions"
	OpTransfer           = "Transfer"
	OpCreateBulkTransfer = "CreateBulkTransfer"
	OpGetTransferStatus  = "GetTransferStatus"
)

// InvokeFunc calls one operation with req over cc
type InvokeFunc func(ctx context.Context, cc grpc.ClientConnInterface, req any) (any, error)

// Descriptor describes one remote operation
type Descriptor struct {
	Name    string
	Service string
	Method  string

	// NewRequest builds the canonical request for this run
	NewRequest func() any
	// Invoke returns either a response or a normalized error
	Invoke InvokeFunc
}

// Catalog is an ordered, closed set of descriptors
type Catalog struct {
	ops []Descriptor
}

// New builds a catalog from descriptors in the given order. Names must be
// unique.
func New(ops ...Descriptor) (*Catalog, error) {
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		if op.Name == "" || op.Invoke == nil || op.NewRequest == nil {
			return nil, fmt.Errorf("catalog: incomplete descriptor %q", op.Name)
		}
		if seen[op.Name] {
			return nil, fmt.Errorf("catalog: duplicate operation %q", op.Name)
		}
		seen[op.Name] = true
	}
	return &Catalog{ops: append([]Descriptor(nil), ops...)}, nil
}

// Default returns the seven bank API operations in their declared order
func Default(f Fixtures) *Catalog {
	f = f.withDefaults()
	return &Catalog{ops: []Descriptor{
		describe(OpHealthCheck, bankapi.HealthCheckServiceName, bankapi.HealthCheckMethod, f.HealthCheck,
			func(ctx context.Context, cc grpc.ClientConnInterface, req *bankapi.HealthCheckRequest) (*bankapi.HealthCheckResponse, error) {
				return bankapi.NewHealthCheckServiceClient(cc).HealthCheck(ctx, req)
			}),
		describe(OpGetBalance, bankapi.AccountServiceName, bankapi.GetBalanceMethod, f.GetBalance,
			func(ctx context.Context, cc grpc.ClientConnInterface, req *bankapi.GetBalanceRequest) (*bankapi.GetBalanceResponse, error) {
				return bankapi.NewAccountServiceClient(cc).GetBalance(ctx, req)
			}),
		describe(OpGetAccount, bankapi.AccountServiceName, bankapi.GetAccountMethod, f.GetAccount,
			func(ctx context.Context, cc grpc.ClientConnInterface, req *bankapi.GetAccountRequest) (*bankapi.GetAccountResponse, error) {
				return bankapi.NewAccountServiceClient(cc).GetAccount(ctx, req)
			}),
		describe(OpGetTransactions, bankapi.AccountServiceName, bankapi.GetTransactionsMethod, f.GetTransactions,
			func(ctx context.Context, cc grpc.ClientConnInterface, req *bankapi.GetTransactionsRequest) (*bankapi.GetTransactionsResponse, error) {
				return bankapi.NewAccountServiceClient(cc).GetTransactions(ctx, req)
			}),
		describe(OpTransfer, bankapi.TransferServiceName, bankapi.TransferMethod, f.Transfer,
			func(ctx context.Context, cc grpc.ClientConnInterface, req *bankapi.TransferRequest) (*bankapi.TransferResponse, error) {
				return bankapi.NewTransferServiceClient(cc).Transfer(ctx, req)
			}),
		describe(OpCreateBulkTransfer, bankapi.TransferServiceName, bankapi.CreateBulkTransferMethod, f.CreateBulkTransfer,
			func(ctx context.Context, cc grpc.ClientConnInterface, req *bankapi.CreateBulkTransferRequest) (*bankapi.CreateBulkTransferResponse, error) {
				return bankapi.NewTransferServiceClient(cc).CreateBulkTransfer(ctx, req)
			}),
		describe(OpGetTransferStatus, bankapi.TransferServiceName, bankapi.GetTransferStatusMethod, f.GetTransferStatus,
			func(ctx context.Context, cc grpc.ClientConnInterface, req *bankapi.GetTransferStatusRequest) (*bankapi.GetTransferStatusResponse, error) {
				return bankapi.NewTransferServiceClient(cc).GetTransferStatus(ctx, req)
			}),
	}}
}

// describe builds a Descriptor from a typed request builder and call
func describe[Req, Resp any](name, service, method string, build func() *Req, call func(context.Context, grpc.ClientConnInterface, *Req) (*Resp, error)) Descriptor {
	return Descriptor{
		Name:       name,
		Service:    service,
		Method:     method,
		NewRequest: func() any { return build() },
		Invoke: func(ctx context.Context, cc grpc.ClientConnInterface, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("%s: unexpected request type %T", name, req)
			}
			resp, err := call(ctx, cc, typed)
			if err != nil {
				return nil, coreerrors.FromRPC(name, err)
			}
			return resp, nil
		},
	}
}

// Len returns the number of operations
func (c *Catalog) Len() int {
	return len(c.ops)
}

// Operations returns the descriptors in catalog order
func (c *Catalog) Operations() []Descriptor {
	return append([]Descriptor(nil), c.ops...)
}

// Names returns the operation names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.ops))
	for i, op := range c.ops {
		names[i] = op.Name
	}
	return names
}

// Lookup finds an operation by name, ignoring case
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	for _, op := range c.ops {
		if strings.EqualFold(op.Name, name) {
			return op, true
		}
	}
	return Descriptor{}, false
}

// Select returns a catalog restricted to names. Catalog order is kept
// regardless of the order of names. No names, or only blank ones, selects
// everything.
func (c *Catalog) Select(names ...string) (*Catalog, error) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		op, ok := c.Lookup(name)
		if !ok {
			return nil, coreerrors.NewConfigurationError("bank.operations",
				fmt.Sprintf("unknown operation %q (known: %s)", name, strings.Join(c.Names(), ", ")), nil)
		}
		wanted[op.Name] = true
	}
	if len(wanted) == 0 {
		return c, nil
	}

	var ops []Descriptor
	for _, op := range c.ops {
		if wanted[op.Name] {
			ops = append(ops, op)
		}
	}
	return &Catalog{ops: ops}, nil
}
