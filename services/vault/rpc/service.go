package vaultrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "stakevault.vault.v1.VaultService"

const (
	VaultService_Instantiate_FullMethodName = "/" + ServiceName + "/Instantiate"
	VaultService_Execute_FullMethodName     = "/" + ServiceName + "/Execute"
	VaultService_Info_FullMethodName        = "/" + ServiceName + "/Info"
	VaultService_ListVaults_FullMethodName  = "/" + ServiceName + "/ListVaults"
	VaultService_Balances_FullMethodName    = "/" + ServiceName + "/Balances"
	VaultService_Delegations_FullMethodName = "/" + ServiceName + "/Delegations"
	VaultService_Params_FullMethodName      = "/" + ServiceName + "/Params"
	VaultService_Fund_FullMethodName        = "/" + ServiceName + "/Fund"
)

// VaultServiceServer is the server API for the vault service.
type VaultServiceServer interface {
	Instantiate(context.Context, *InstantiateRequest) (*InstantiateResponse, error)
	Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error)
	Info(context.Context, *InfoRequest) (*InfoResponse, error)
	ListVaults(context.Context, *ListVaultsRequest) (*ListVaultsResponse, error)
	Balances(context.Context, *BalancesRequest) (*BalancesResponse, error)
	Delegations(context.Context, *DelegationsRequest) (*DelegationsResponse, error)
	Params(context.Context, *ParamsRequest) (*ParamsResponse, error)
	Fund(context.Context, *FundRequest) (*FundResponse, error)
}

// UnimplementedVaultServiceServer can be embedded to have forward compatible
// implementations.
type UnimplementedVaultServiceServer struct{}

func (UnimplementedVaultServiceServer) Instantiate(context.Context, *InstantiateRequest) (*InstantiateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Instantiate not implemented")
}
func (UnimplementedVaultServiceServer) Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Execute not implemented")
}
func (UnimplementedVaultServiceServer) Info(context.Context, *InfoRequest) (*InfoResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Info not implemented")
}
func (UnimplementedVaultServiceServer) ListVaults(context.Context, *ListVaultsRequest) (*ListVaultsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListVaults not implemented")
}
func (UnimplementedVaultServiceServer) Balances(context.Context, *BalancesRequest) (*BalancesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Balances not implemented")
}
func (UnimplementedVaultServiceServer) Delegations(context.Context, *DelegationsRequest) (*DelegationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Delegations not implemented")
}
func (UnimplementedVaultServiceServer) Params(context.Context, *ParamsRequest) (*ParamsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Params not implemented")
}
func (UnimplementedVaultServiceServer) Fund(context.Context, *FundRequest) (*FundResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Fund not implemented")
}

// RegisterVaultServiceServer registers srv on s.
func RegisterVaultServiceServer(s grpc.ServiceRegistrar, srv VaultServiceServer) {
	s.RegisterService(&VaultService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(VaultServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(VaultServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(VaultServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// VaultService_ServiceDesc is the grpc.ServiceDesc for the vault service.
var VaultService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Instantiate", Handler: unaryHandler(VaultService_Instantiate_FullMethodName, VaultServiceServer.Instantiate)},
		{MethodName: "Execute", Handler: unaryHandler(VaultService_Execute_FullMethodName, VaultServiceServer.Execute)},
		{MethodName: "Info", Handler: unaryHandler(VaultService_Info_FullMethodName, VaultServiceServer.Info)},
		{MethodName: "ListVaults", Handler: unaryHandler(VaultService_ListVaults_FullMethodName, VaultServiceServer.ListVaults)},
		{MethodName: "Balances", Handler: unaryHandler(VaultService_Balances_FullMethodName, VaultServiceServer.Balances)},
		{MethodName: "Delegations", Handler: unaryHandler(VaultService_Delegations_FullMethodName, VaultServiceServer.Delegations)},
		{MethodName: "Params", Handler: unaryHandler(VaultService_Params_FullMethodName, VaultServiceServer.Params)},
		{MethodName: "Fund", Handler: unaryHandler(VaultService_Fund_FullMethodName, VaultServiceServer.Fund)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stakevault/vault/v1/vault.json",
}

// VaultServiceClient is the client API for the vault service.
type VaultServiceClient interface {
	Instantiate(ctx context.Context, in *InstantiateRequest, opts ...grpc.CallOption) (*InstantiateResponse, error)
	Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error)
	Info(ctx context.Context, in *InfoRequest, opts ...grpc.CallOption) (*InfoResponse, error)
	ListVaults(ctx context.Context, in *ListVaultsRequest, opts ...grpc.CallOption) (*ListVaultsResponse, error)
	Balances(ctx context.Context, in *BalancesRequest, opts ...grpc.CallOption) (*BalancesResponse, error)
	Delegations(ctx context.Context, in *DelegationsRequest, opts ...grpc.CallOption) (*DelegationsResponse, error)
	Params(ctx context.Context, in *ParamsRequest, opts ...grpc.CallOption) (*ParamsResponse, error)
	Fund(ctx context.Context, in *FundRequest, opts ...grpc.CallOption) (*FundResponse, error)
}

type vaultServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewVaultServiceClient wraps cc. Calls are sent with the JSON content subtype.
func NewVaultServiceClient(cc grpc.ClientConnInterface) VaultServiceClient {
	return &vaultServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *vaultServiceClient) Instantiate(ctx context.Context, in *InstantiateRequest, opts ...grpc.CallOption) (*InstantiateResponse, error) {
	return invoke[InstantiateResponse](ctx, c.cc, VaultService_Instantiate_FullMethodName, in, opts)
}

func (c *vaultServiceClient) Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error) {
	return invoke[ExecuteResponse](ctx, c.cc, VaultService_Execute_FullMethodName, in, opts)
}

func (c *vaultServiceClient) Info(ctx context.Context, in *InfoRequest, opts ...grpc.CallOption) (*InfoResponse, error) {
	return invoke[InfoResponse](ctx, c.cc, VaultService_Info_FullMethodName, in, opts)
}

func (c *vaultServiceClient) ListVaults(ctx context.Context, in *ListVaultsRequest, opts ...grpc.CallOption) (*ListVaultsResponse, error) {
	return invoke[ListVaultsResponse](ctx, c.cc, VaultService_ListVaults_FullMethodName, in, opts)
}

func (c *vaultServiceClient) Balances(ctx context.Context, in *BalancesRequest, opts ...grpc.CallOption) (*BalancesResponse, error) {
	return invoke[BalancesResponse](ctx, c.cc, VaultService_Balances_FullMethodName, in, opts)
}

func (c *vaultServiceClient) Delegations(ctx context.Context, in *DelegationsRequest, opts ...grpc.CallOption) (*DelegationsResponse, error) {
	return invoke[DelegationsResponse](ctx, c.cc, VaultService_Delegations_FullMethodName, in, opts)
}

func (c *vaultServiceClient) Params(ctx context.Context, in *ParamsRequest, opts ...grpc.CallOption) (*ParamsResponse, error) {
	return invoke[ParamsResponse](ctx, c.cc, VaultService_Params_FullMethodName, in, opts)
}

func (c *vaultServiceClient) Fund(ctx context.Context, in *FundRequest, opts ...grpc.CallOption) (*FundResponse, error) {
	return invoke[FundResponse](ctx, c.cc, VaultService_Fund_FullMethodName, in, opts)
}
