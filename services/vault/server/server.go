package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stakevault/core"
	"stakevault/observability"
	"stakevault/services/vault/auth"
	vaultrpc "stakevault/services/vault/rpc"
)

const metricsModule = "vault"

// Service implements the vault gRPC interface on top of the state processor.
type Service struct {
	vaultrpc.UnimplementedVaultServiceServer

	processor *core.StateProcessor
	logger    *slog.Logger
}

// New constructs a vault service instance.
func New(processor *core.StateProcessor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{processor: processor, logger: logger}
}

// Instantiate creates a vault owned by the authenticated caller.
func (s *Service) Instantiate(ctx context.Context, _ *vaultrpc.InstantiateRequest) (resp *vaultrpc.InstantiateResponse, err error) {
	defer s.observe("instantiate", time.Now(), &err)
	if err := s.ensureProcessor(); err != nil {
		return nil, err
	}
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	addr, out, err := s.processor.InstantiateVault(caller)
	if err != nil {
		return nil, s.translate("instantiate", err)
	}
	return &vaultrpc.InstantiateResponse{Vault: addr, Events: out.Events}, nil
}

// Execute dispatches msg to the vault with the caller as sender.
func (s *Service) Execute(ctx context.Context, req *vaultrpc.ExecuteRequest) (resp *vaultrpc.ExecuteResponse, err error) {
	defer s.observe("execute", time.Now(), &err)
	if err := s.ensureProcessor(); err != nil {
		return nil, err
	}
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	vaultAddr := strings.TrimSpace(req.Vault)
	if vaultAddr == "" {
		return nil, status.Error(codes.InvalidArgument, "vault required")
	}
	out, err := s.processor.Execute(caller, vaultAddr, req.Funds, req.Msg)
	if err != nil {
		return nil, s.translate("execute", err)
	}
	return &vaultrpc.ExecuteResponse{Messages: out.Messages, Events: out.Events}, nil
}

// Info returns the vault configuration and liquidity request.
func (s *Service) Info(_ context.Context, req *vaultrpc.InfoRequest) (resp *vaultrpc.InfoResponse, err error) {
	defer s.observe("info", time.Now(), &err)
	if err := s.ensureProcessor(); err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Vault) == "" {
		return nil, status.Error(codes.InvalidArgument, "vault required")
	}
	info, err := s.processor.Info(strings.TrimSpace(req.Vault))
	if err != nil {
		return nil, s.translate("info", err)
	}
	return info, nil
}

// ListVaults enumerates vaults, optionally filtered by owner.
func (s *Service) ListVaults(_ context.Context, req *vaultrpc.ListVaultsRequest) (resp *vaultrpc.ListVaultsResponse, err error) {
	defer s.observe("list_vaults", time.Now(), &err)
	if err := s.ensureProcessor(); err != nil {
		return nil, err
	}
	var owner string
	if req != nil {
		owner = strings.TrimSpace(req.Owner)
	}
	vaults := s.processor.ListVaults(owner)
	if vaults == nil {
		vaults = []string{}
	}
	return &vaultrpc.ListVaultsResponse{Vaults: vaults}, nil
}

// Balances returns the free balances of an address.
func (s *Service) Balances(_ context.Context, req *vaultrpc.BalancesRequest) (resp *vaultrpc.BalancesResponse, err error) {
	defer s.observe("balances", time.Now(), &err)
	if err := s.ensureProcessor(); err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Address) == "" {
		return nil, status.Error(codes.InvalidArgument, "address required")
	}
	return &vaultrpc.BalancesResponse{Balances: s.processor.Balances(strings.TrimSpace(req.Address))}, nil
}

// Delegations returns staking positions held by an address.
func (s *Service) Delegations(_ context.Context, req *vaultrpc.DelegationsRequest) (resp *vaultrpc.DelegationsResponse, err error) {
	defer s.observe("delegations", time.Now(), &err)
	if err := s.ensureProcessor(); err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Address) == "" {
		return nil, status.Error(codes.InvalidArgument, "address required")
	}
	out := s.processor.Delegations(strings.TrimSpace(req.Address))
	return &out, nil
}

// Params returns chain parameters and the current block.
func (s *Service) Params(context.Context, *vaultrpc.ParamsRequest) (resp *vaultrpc.ParamsResponse, err error) {
	defer s.observe("params", time.Now(), &err)
	if err := s.ensureProcessor(); err != nil {
		return nil, err
	}
	out := s.processor.Params()
	return &out, nil
}

// Fund credits coins to an account. Requires the admin scope.
func (s *Service) Fund(ctx context.Context, req *vaultrpc.FundRequest) (resp *vaultrpc.FundResponse, err error) {
	defer s.observe("fund", time.Now(), &err)
	if err := s.ensureProcessor(); err != nil {
		return nil, err
	}
	principal, ok := auth.PrincipalFrom(ctx)
	if !ok || !principal.HasScope(auth.ScopeAdmin) {
		return nil, status.Error(codes.PermissionDenied, "admin scope required")
	}
	if req == nil || strings.TrimSpace(req.Address) == "" || len(req.Coins) == 0 {
		return nil, status.Error(codes.InvalidArgument, "address and coins required")
	}
	addr := strings.TrimSpace(req.Address)
	if err := s.processor.Fund(addr, req.Coins); err != nil {
		return nil, s.translate("fund", err)
	}
	s.logger.Info("account funded", slog.String("address", addr), slog.String("coins", req.Coins.String()), slog.String("by", principal.Address))
	return &vaultrpc.FundResponse{Balances: s.processor.Balances(addr)}, nil
}

func (s *Service) ensureProcessor() error {
	if s == nil || s.processor == nil {
		return status.Error(codes.Unavailable, "vault service unavailable")
	}
	return nil
}

func (s *Service) translate(method string, err error) error {
	if vaultrpc.Code(err) == codes.Internal {
		s.logger.Error("vault rpc failed", slog.String("method", method), slog.Any("error", err))
	}
	return vaultrpc.ToStatus(err)
}

func (s *Service) observe(method string, started time.Time, err *error) {
	observability.ModuleMetrics().Observe(metricsModule, method, vaultrpc.HTTPStatus(status.Code(*err)), time.Since(started))
}

func callerFrom(ctx context.Context) (string, error) {
	principal, ok := auth.PrincipalFrom(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "authentication required")
	}
	return principal.Address, nil
}

// Register installs svc on s.
func Register(s grpc.ServiceRegistrar, svc *Service) {
	vaultrpc.RegisterVaultServiceServer(s, svc)
}
