package client

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"stakevault/core/types"
	"stakevault/native/vault"
	vaultrpc "stakevault/services/vault/rpc"
)

// Client provides a thin wrapper around the vault service gRPC API.
type Client struct {
	conn *grpc.ClientConn
	api  vaultrpc.VaultServiceClient
}

// Dial initialises a client connection to the vault service endpoint.
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New wraps an existing connection.
func New(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, api: vaultrpc.NewVaultServiceClient(conn)}
}

// WithToken returns a dial option attaching token as a bearer credential to
// every call. The token is sent over plaintext connections too, which is only
// acceptable for local development.
func WithToken(token string) grpc.DialOption {
	return grpc.WithPerRPCCredentials(bearerCredentials{token: strings.TrimSpace(token)})
}

type bearerCredentials struct {
	token string
}

func (b bearerCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	if b.token == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (bearerCredentials) RequireTransportSecurity() bool { return false }

// Close tears down the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Raw exposes the underlying service client for advanced usage.
func (c *Client) Raw() vaultrpc.VaultServiceClient {
	if c == nil {
		return nil
	}
	return c.api
}

// Instantiate creates a vault owned by the token subject.
func (c *Client) Instantiate(ctx context.Context) (*vaultrpc.InstantiateResponse, error) {
	return c.api.Instantiate(ctx, &vaultrpc.InstantiateRequest{})
}

// Execute sends msg to vaultAddr, attaching funds.
func (c *Client) Execute(ctx context.Context, vaultAddr string, funds types.Coins, msg vault.ExecuteMsg) (*vaultrpc.ExecuteResponse, error) {
	return c.api.Execute(ctx, &vaultrpc.ExecuteRequest{Vault: vaultAddr, Funds: funds, Msg: msg})
}

// Info queries a vault.
func (c *Client) Info(ctx context.Context, vaultAddr string) (*vaultrpc.InfoResponse, error) {
	return c.api.Info(ctx, &vaultrpc.InfoRequest{Vault: vaultAddr})
}

// ListVaults lists vaults, filtered by owner when non-empty.
func (c *Client) ListVaults(ctx context.Context, owner string) ([]string, error) {
	resp, err := c.api.ListVaults(ctx, &vaultrpc.ListVaultsRequest{Owner: owner})
	if err != nil {
		return nil, err
	}
	return resp.Vaults, nil
}

// Balances returns the free balances of addr.
func (c *Client) Balances(ctx context.Context, addr string) (types.Coins, error) {
	resp, err := c.api.Balances(ctx, &vaultrpc.BalancesRequest{Address: addr})
	if err != nil {
		return nil, err
	}
	return resp.Balances, nil
}

// Delegations returns the staking positions of addr.
func (c *Client) Delegations(ctx context.Context, addr string) (*vaultrpc.DelegationsResponse, error) {
	return c.api.Delegations(ctx, &vaultrpc.DelegationsRequest{Address: addr})
}

// Params returns chain parameters.
func (c *Client) Params(ctx context.Context) (*vaultrpc.ParamsResponse, error) {
	return c.api.Params(ctx, &vaultrpc.ParamsRequest{})
}

// Fund credits coins to addr. The token must carry the admin scope.
func (c *Client) Fund(ctx context.Context, addr string, coins types.Coins) (types.Coins, error) {
	resp, err := c.api.Fund(ctx, &vaultrpc.FundRequest{Address: addr, Coins: coins})
	if err != nil {
		return nil, err
	}
	return resp.Balances, nil
}
