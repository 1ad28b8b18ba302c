package bankapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Full service names as registered on the wire
const (
	HealthCheckServiceName = "bankapi.HealthCheckService"
	AccountServiceName     = "bankapi.AccountService"
	TransferServiceName    = "bankapi.TransferService"
)

// Full method names
const (
	HealthCheckMethod        = "/" + HealthCheckServiceName + "/HealthCheck"
	GetBalanceMethod         = "/" + AccountServiceName + "/GetBalance"
	GetAccountMethod         = "/" + AccountServiceName + "/GetAccount"
	GetTransactionsMethod    = "/" + AccountServiceName + "/GetTransactions"
	TransferMethod           = "/" + TransferServiceName + "/Transfer"
	CreateBulkTransferMethod = "/" + TransferServiceName + "/CreateBulkTransfer"
	GetTransferStatusMethod  = "/" + TransferServiceName + "/GetTransferStatus"
)

// invoke performs one unary call and returns the decoded response
func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// methodHandler has the shape of grpc.MethodDesc.Handler
type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

// handler adapts a typed server method to a method handler
func handler[S any, Req any, Resp any](fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		h := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(S), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, h)
	}
}

// HealthCheckServiceClient is the client API for HealthCheckService
type HealthCheckServiceClient interface {
	HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error)
}

type healthCheckServiceClient struct{ cc grpc.ClientConnInterface }

func NewHealthCheckServiceClient(cc grpc.ClientConnInterface) HealthCheckServiceClient {
	return &healthCheckServiceClient{cc: cc}
}

func (c *healthCheckServiceClient) HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	return invoke[HealthCheckResponse](ctx, c.cc, HealthCheckMethod, in, opts...)
}

// HealthCheckServiceServer is the server API for HealthCheckService
type HealthCheckServiceServer interface {
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
}

// UnimplementedHealthCheckServiceServer can be embedded to have forward compatible implementations
type UnimplementedHealthCheckServiceServer struct{}

func (UnimplementedHealthCheckServiceServer) HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method HealthCheck not implemented")
}

// RegisterHealthCheckServiceServer registers the service on a gRPC server
func RegisterHealthCheckServiceServer(s grpc.ServiceRegistrar, srv HealthCheckServiceServer) {
	s.RegisterService(&HealthCheckService_ServiceDesc, srv)
}

// HealthCheckService_ServiceDesc is the grpc.ServiceDesc for HealthCheckService
var HealthCheckService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: HealthCheckServiceName,
	HandlerType: (*HealthCheckServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "HealthCheck", Handler: handler(HealthCheckMethod, HealthCheckServiceServer.HealthCheck)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bankapi.proto",
}

// AccountServiceClient is the client API for AccountService
type AccountServiceClient interface {
	GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error)
	GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*GetAccountResponse, error)
	GetTransactions(ctx context.Context, in *GetTransactionsRequest, opts ...grpc.CallOption) (*GetTransactionsResponse, error)
}

type accountServiceClient struct{ cc grpc.ClientConnInterface }

func NewAccountServiceClient(cc grpc.ClientConnInterface) AccountServiceClient {
	return &accountServiceClient{cc: cc}
}

func (c *accountServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	return invoke[GetBalanceResponse](ctx, c.cc, GetBalanceMethod, in, opts...)
}

func (c *accountServiceClient) GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*GetAccountResponse, error) {
	return invoke[GetAccountResponse](ctx, c.cc, GetAccountMethod, in, opts...)
}

func (c *accountServiceClient) GetTransactions(ctx context.Context, in *GetTransactionsRequest, opts ...grpc.CallOption) (*GetTransactionsResponse, error) {
	return invoke[GetTransactionsResponse](ctx, c.cc, GetTransactionsMethod, in, opts...)
}

// AccountServiceServer is the server API for AccountService
type AccountServiceServer interface {
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	GetAccount(context.Context, *GetAccountRequest) (*GetAccountResponse, error)
	GetTransactions(context.Context, *GetTransactionsRequest) (*GetTransactionsResponse, error)
}

// UnimplementedAccountServiceServer can be embedded to have forward compatible implementations
type UnimplementedAccountServiceServer struct{}

func (UnimplementedAccountServiceServer) GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBalance not implemented")
}
func (UnimplementedAccountServiceServer) GetAccount(context.Context, *GetAccountRequest) (*GetAccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAccount not implemented")
}
func (UnimplementedAccountServiceServer) GetTransactions(context.Context, *GetTransactionsRequest) (*GetTransactionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTransactions not implemented")
}

// RegisterAccountServiceServer registers the service on a gRPC server
func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountService_ServiceDesc, srv)
}

// AccountService_ServiceDesc is the grpc.ServiceDesc for AccountService
var AccountService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: AccountServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalance", Handler: handler(GetBalanceMethod, AccountServiceServer.GetBalance)},
		{MethodName: "GetAccount", Handler: handler(GetAccountMethod, AccountServiceServer.GetAccount)},
		{MethodName: "GetTransactions", Handler: handler(GetTransactionsMethod, AccountServiceServer.GetTransactions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bankapi.proto",
}

// TransferServiceClient is the client API for TransferService
type TransferServiceClient interface {
	Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error)
	CreateBulkTransfer(ctx context.Context, in *CreateBulkTransferRequest, opts ...grpc.CallOption) (*CreateBulkTransferResponse, error)
	GetTransferStatus(ctx context.Context, in *GetTransferStatusRequest, opts ...grpc.CallOption) (*GetTransferStatusResponse, error)
}

type transferServiceClient struct{ cc grpc.ClientConnInterface }

func NewTransferServiceClient(cc grpc.ClientConnInterface) TransferServiceClient {
	return &transferServiceClient{cc: cc}
}

func (c *transferServiceClient) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	return invoke[TransferResponse](ctx, c.cc, TransferMethod, in, opts...)
}

func (c *transferServiceClient) CreateBulkTransfer(ctx context.Context, in *CreateBulkTransferRequest, opts ...grpc.CallOption) (*CreateBulkTransferResponse, error) {
	return invoke[CreateBulkTransferResponse](ctx, c.cc, CreateBulkTransferMethod, in, opts...)
}

func (c *transferServiceClient) GetTransferStatus(ctx context.Context, in *GetTransferStatusRequest, opts ...grpc.CallOption) (*GetTransferStatusResponse, error) {
	return invoke[GetTransferStatusResponse](ctx, c.cc, GetTransferStatusMethod, in, opts...)
}

// TransferServiceServer is the server API for TransferService
type TransferServiceServer interface {
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	CreateBulkTransfer(context.Context, *CreateBulkTransferRequest) (*CreateBulkTransferResponse, error)
	GetTransferStatus(context.Context, *GetTransferStatusRequest) (*GetTransferStatusResponse, error)
}

// UnimplementedTransferServiceServer can be embedded to have forward compatible implementations
type UnimplementedTransferServiceServer struct{}

func (UnimplementedTransferServiceServer) Transfer(context.Context, *TransferRequest) (*TransferResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Transfer not implemented")
}
func (UnimplementedTransferServiceServer) CreateBulkTransfer(context.Context, *CreateBulkTransferRequest) (*CreateBulkTransferResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateBulkTransfer not implemented")
}
func (UnimplementedTransferServiceServer) GetTransferStatus(context.Context, *GetTransferStatusRequest) (*GetTransferStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTransferStatus not implemented")
}

// RegisterTransferServiceServer registers the service on a gRPC server
func RegisterTransferServiceServer(s grpc.ServiceRegistrar, srv TransferServiceServer) {
	s.RegisterService(&TransferService_ServiceDesc, srv)
}

// TransferService_ServiceDesc is the grpc.ServiceDesc for TransferService
var TransferService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TransferServiceName,
	HandlerType: (*TransferServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Transfer", Handler: handler(TransferMethod, TransferServiceServer.Transfer)},
		{MethodName: "CreateBulkTransfer", Handler: handler(CreateBulkTransferMethod, TransferServiceServer.CreateBulkTransfer)},
		{MethodName: "GetTransferStatus", Handler: handler(GetTransferStatusMethod, TransferServiceServer.GetTransferStatus)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bankapi.proto",
}
