package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"stakevault/core"
	"stakevault/core/types"
	"stakevault/crypto"
	"stakevault/native/staking"
	"stakevault/native/vault"
	"stakevault/services/vault/auth"
	vaultrpc "stakevault/services/vault/rpc"
	"stakevault/storage"
)

const bondDenom = "ustake"

func testAddr(name string) string {
	return crypto.NewAddress(crypto.AccountPrefix, ethcrypto.Keccak256([]byte(name))[:20]).String()
}

var (
	owner     = testAddr("owner")
	validator = crypto.NewAddress(crypto.ValidatorPrefix, ethcrypto.Keccak256([]byte("validator"))[:20]).String()
)

type testAPI struct {
	handler http.Handler
	authn   *auth.Authenticator
}

func newTestAPI(t *testing.T, limiter *RateLimiter) *testAPI {
	t.Helper()
	sp, err := core.NewStateProcessor(storage.NewMemDB(), core.Options{
		Params:          staking.Params{BondDenom: bondDenom, UnbondingPeriod: 3600},
		CodeID:          1,
		RewardsPerBlock: uint256.NewInt(0),
		Validators:      []staking.Validator{{Address: validator, Moniker: "v", Active: true}},
		Balances:        map[string]types.Coins{owner: {types.NewCoin(bondDenom, 1_000)}},
		Now:             func() int64 { return 1_700_000_000 },
	})
	require.NoError(t, err)
	authn, err := auth.New(auth.Config{HMACSecret: "http-secret"})
	require.NoError(t, err)
	handler, err := New(Config{Processor: sp, Authenticator: authn, RateLimiter: limiter, Metrics: true})
	require.NoError(t, err)
	return &testAPI{handler: handler, authn: authn}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestHTTPVaultFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	token, err := api.authn.Issue(owner)
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, "/v1/vaults", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/v1/vaults", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))
	var created vaultrpc.InstantiateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = api.do(t, http.MethodPost, "/v1/vaults/"+created.Vault+"/execute", token, executeBody{
		Funds: types.Coins{types.NewCoin(bondDenom, 300)},
		Msg:   vault.ExecuteMsg{Delegate: &vault.DelegateMsg{Validator: validator, Amount: types.NewCoin(bondDenom, 300)}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/v1/vaults/"+created.Vault, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info vault.InfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, owner, info.Config.Owner)

	rec = api.do(t, http.MethodGet, "/v1/vaults?owner="+owner, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list vaultrpc.ListVaultsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, []string{created.Vault}, list.Vaults)

	rec = api.do(t, http.MethodGet, "/v1/accounts/"+owner+"/balances", "", nil)
	var balances vaultrpc.BalancesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balances))
	require.Equal(t, uint64(700), balances.Balances.AmountOf(bondDenom).Uint64())

	rec = api.do(t, http.MethodGet, "/v1/vaults/"+testAddr("nobody"), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/v1/vaults/"+created.Vault+"/execute", token, map[string]any{"bogus": true})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "stakevault_api_requests_total")
}

func TestHTTPFundRequiresAdmin(t *testing.T) {
	api := newTestAPI(t, nil)
	user, err := api.authn.Issue(owner)
	require.NoError(t, err)
	admin, err := api.authn.Issue(owner, auth.ScopeAdmin)
	require.NoError(t, err)
	target := testAddr("faucet-user")
	body := fundBody{Coins: types.Coins{types.NewCoin(bondDenom, 42)}}

	rec := api.do(t, http.MethodPost, "/v1/accounts/"+target+"/fund", user, body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/v1/accounts/"+target+"/fund", admin, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out vaultrpc.FundResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, uint64(42), out.Balances.AmountOf(bondDenom).Uint64())
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 2})
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	api := newTestAPI(t, limiter)

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodGet, "/healthz", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	now = now.Add(2 * time.Minute)
	rec = api.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

type stubHistory struct {
	vault string
	limit int
}

func (s *stubHistory) History(_ context.Context, vault string, limit int) ([]*types.Event, error) {
	s.vault, s.limit = vault, limit
	return []*types.Event{types.NewEvent(vaultInstantiated).With("vault", vault)}, nil
}

const vaultInstantiated = vault.EventTypeVaultInstantiated

func TestHTTPEventHistory(t *testing.T) {
	history := &stubHistory{}
	sp, err := core.NewStateProcessor(storage.NewMemDB(), core.Options{
		Params: staking.Params{BondDenom: bondDenom, UnbondingPeriod: 3600},
	})
	require.NoError(t, err)
	handler, err := New(Config{Processor: sp, History: history})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/vaults/abc/events?limit=7", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "abc", history.vault)
	require.Equal(t, 7, history.limit)
	require.Contains(t, rec.Body.String(), vault.EventTypeVaultInstantiated)

	req = httptest.NewRequest(http.MethodGet, "/v1/vaults/abc/events?limit=x", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
