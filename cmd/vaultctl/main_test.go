package main

import (
	"bytes"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"stakevault/core"
	"stakevault/core/types"
	"stakevault/crypto"
	"stakevault/native/staking"
	"stakevault/services/vault/auth"
	vaultserver "stakevault/services/vault/server"
	"stakevault/storage"
)

const testSecret = "vaultctl-test-secret"

func runCmd(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestUsageAndUnknownCommand(t *testing.T) {
	_, stderr, code := runCmd(t)
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "Usage: vaultctl")

	_, stderr, code = runCmd(t, "bogus")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, `unknown command "bogus"`)
}

func TestKeygenAndToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "op.keystore")
	t.Setenv("VAULTCTL_PASS", "pw")

	stdout, stderr, code := runCmd(t, "keygen", "-keystore", path, "-light-kdf")
	require.Equal(t, 0, code, stderr)
	var keyInfo struct {
		Address string `json:"address"`
		Created bool   `json:"created"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &keyInfo))
	require.True(t, keyInfo.Created)

	_, stderr, code = runCmd(t, "token", "-keystore", path)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, secretEnv)

	t.Setenv(secretEnv, testSecret)
	stdout, stderr, code = runCmd(t, "token", "-keystore", path, "-scopes", auth.ScopeAdmin)
	require.Equal(t, 0, code, stderr)

	authn, err := auth.New(auth.Config{HMACSecret: testSecret, Issuer: "vaultd"})
	require.NoError(t, err)
	principal, err := authn.Verify(strings.TrimSpace(stdout))
	require.NoError(t, err)
	require.Equal(t, keyInfo.Address, principal.Address)
	require.True(t, principal.HasScope(auth.ScopeAdmin))
}

func TestExecuteRejectsMalformedInput(t *testing.T) {
	_, stderr, code := runCmd(t, "execute", "-msg", `{"claim_delegator_rewards":{}}`)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "-vault is required")

	_, stderr, code = runCmd(t, "execute", "-vault", "x", "-msg", `{"nope":{}}`)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "parse -msg")

	_, stderr, code = runCmd(t, "execute", "-vault", "x", "-msg", `{}`, "-funds", "abc")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "parse coin")
}

func TestCommandsAgainstServer(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	owner := key.PubKey().Address().String()
	validator := key.PubKey().ValidatorAddress().String()

	sp, err := core.NewStateProcessor(storage.NewMemDB(), core.Options{
		Params:          staking.Params{BondDenom: "ustake", UnbondingPeriod: 60},
		RewardsPerBlock: uint256.NewInt(0),
		Validators:      []staking.Validator{{Address: validator, Moniker: "local", Active: true}},
		Balances:        map[string]types.Coins{owner: {types.NewCoin("ustake", 500)}},
	})
	require.NoError(t, err)
	authn, err := auth.New(auth.Config{HMACSecret: testSecret, Issuer: "vaultd"})
	require.NoError(t, err)

	opts, err := vaultserver.ServerOptions(vaultserver.Config{AllowInsecure: true, Authenticator: authn})
	require.NoError(t, err)
	srv := grpc.NewServer(opts...)
	vaultserver.Register(srv, vaultserver.New(sp, nil))
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	token, err := authn.Issue(owner)
	require.NoError(t, err)
	addr := lis.Addr().String()

	stdout, stderr, code := runCmd(t, "instantiate", "-addr", addr, "-token", token)
	require.Equal(t, 0, code, stderr)
	var created struct {
		Vault string `json:"vault"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &created))
	require.NotEmpty(t, created.Vault)

	msg := `{"delegate":{"validator":"` + validator + `","amount":{"denom":"ustake","amount":"200"}}}`
	_, stderr, code = runCmd(t, "execute", "-addr", addr, "-token", token, "-vault", created.Vault, "-msg", msg, "-funds", "200ustake")
	require.Equal(t, 0, code, stderr)

	stdout, stderr, code = runCmd(t, "balances", "-addr", addr, "-address", owner)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, `"300"`)

	stdout, stderr, code = runCmd(t, "list", "-addr", addr, "-owner", owner)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, created.Vault)

	_, stderr, code = runCmd(t, "fund", "-addr", addr, "-token", token, "-address", owner, "-coins", "1ustake")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "PermissionDenied")
}
