package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"stakevault/core/types"
	"stakevault/crypto"
	"stakevault/native/vault"
	"stakevault/services/vault/auth"
	"stakevault/services/vault/client"
)

const (
	defaultAddr     = "127.0.0.1:50061"
	defaultKeystore = "operator.keystore"
	tokenEnv        = "VAULTCTL_TOKEN"
	secretEnv       = "VAULTD_HMAC_SECRET"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type command struct {
	summary string
	run     func(args []string, stdout io.Writer) error
}

func commands() map[string]command {
	return map[string]command{
		"keygen":      {"create or load a keystore and print its address", runKeygen},
		"token":       {"mint a bearer token for an address", runToken},
		"instantiate": {"create a vault owned by the token subject", runInstantiate},
		"execute":     {"send an execute message to a vault", runExecute},
		"info":        {"show a vault's config and liquidity request", runInfo},
		"list":        {"list vaults, optionally by owner", runList},
		"balances":    {"show free balances of an address", runBalances},
		"delegations": {"show delegations, unbonding and rewards of an address", runDelegations},
		"params":      {"show chain parameters", runParams},
		"fund":        {"credit coins to an account (admin)", runFund},
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	cmds := commands()
	if len(args) == 0 {
		usage(stderr, cmds)
		return 2
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr, cmds)
		return 2
	}
	if err := cmd.run(args[1:], stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer, cmds map[string]command) {
	fmt.Fprintln(w, "Usage: vaultctl <command> [flags]")
	for _, name := range []string{"keygen", "token", "instantiate", "execute", "info", "list", "balances", "delegations", "params", "fund"} {
		fmt.Fprintf(w, "  %-12s %s\n", name, cmds[name].summary)
	}
}

// rpcFlags are shared by every command talking to vaultd.
type rpcFlags struct {
	addr    string
	token   string
	timeout time.Duration
}

func newFlagSet(name string, rpc *rpcFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if rpc != nil {
		addr := os.Getenv("VAULTD_ADDR")
		if addr == "" {
			addr = defaultAddr
		}
		fs.StringVar(&rpc.addr, "addr", addr, "vaultd gRPC address")
		fs.StringVar(&rpc.token, "token", os.Getenv(tokenEnv), "bearer token (defaults to $"+tokenEnv+")")
		fs.DurationVar(&rpc.timeout, "timeout", 10*time.Second, "request timeout")
	}
	return fs
}

func (r rpcFlags) call(fn func(ctx context.Context, c *client.Client) (any, error), stdout io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	c, err := client.Dial(ctx, r.addr, dialOptions(r.token)...)
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.addr, err)
	}
	defer c.Close()
	out, err := fn(ctx, c)
	if err != nil {
		return err
	}
	return printJSON(stdout, out)
}

func runKeygen(args []string, stdout io.Writer) error {
	fs := newFlagSet("keygen", nil)
	path := fs.String("keystore", defaultKeystore, "keystore path")
	passEnv := fs.String("pass-env", "VAULTCTL_PASS", "environment variable holding the passphrase")
	light := fs.Bool("light-kdf", false, "use a cheap KDF; development keys only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, created, err := crypto.LoadOrCreateKeystore(*path, os.Getenv(*passEnv), crypto.KeystoreOptions{LightKDF: *light})
	if err != nil {
		return err
	}
	pub := key.PubKey()
	return printJSON(stdout, map[string]any{
		"address":   pub.Address().String(),
		"validator": pub.ValidatorAddress().String(),
		"keystore":  *path,
		"created":   created,
	})
}

func runToken(args []string, stdout io.Writer) error {
	fs := newFlagSet("token", nil)
	address := fs.String("address", "", "token subject; defaults to the keystore address")
	path := fs.String("keystore", defaultKeystore, "keystore used when -address is empty")
	passEnv := fs.String("pass-env", "VAULTCTL_PASS", "environment variable holding the passphrase")
	issuer := fs.String("issuer", "vaultd", "token issuer")
	audience := fs.String("audience", "", "token audience")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	scopes := fs.String("scopes", "", "comma separated scopes, e.g. vault:admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	secret := os.Getenv(secretEnv)
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("%s is not set", secretEnv)
	}
	subject := strings.TrimSpace(*address)
	if subject == "" {
		key, err := crypto.LoadFromKeystore(*path, os.Getenv(*passEnv))
		if err != nil {
			return fmt.Errorf("load keystore: %w", err)
		}
		subject = key.PubKey().Address().String()
	}
	authn, err := auth.New(auth.Config{HMACSecret: secret, Issuer: *issuer, Audience: *audience, TokenTTL: *ttl})
	if err != nil {
		return err
	}
	token, err := authn.Issue(subject, splitList(*scopes)...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func runInstantiate(args []string, stdout io.Writer) error {
	var rpc rpcFlags
	fs := newFlagSet("instantiate", &rpc)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return rpc.call(func(ctx context.Context, c *client.Client) (any, error) {
		return c.Instantiate(ctx)
	}, stdout)
}

func runExecute(args []string, stdout io.Writer) error {
	var rpc rpcFlags
	fs := newFlagSet("execute", &rpc)
	vaultAddr := fs.String("vault", "", "vault address")
	rawMsg := fs.String("msg", "", `execute message JSON, e.g. {"claim_delegator_rewards":{}}`)
	rawFunds := fs.String("funds", "", "comma separated coins to attach, e.g. 100ustake")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*vaultAddr) == "" {
		return errors.New("-vault is required")
	}
	var msg vault.ExecuteMsg
	dec := json.NewDecoder(strings.NewReader(*rawMsg))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&msg); err != nil {
		return fmt.Errorf("parse -msg: %w", err)
	}
	funds, err := parseCoins(*rawFunds)
	if err != nil {
		return err
	}
	return rpc.call(func(ctx context.Context, c *client.Client) (any, error) {
		return c.Execute(ctx, *vaultAddr, funds, msg)
	}, stdout)
}

func runInfo(args []string, stdout io.Writer) error {
	var rpc rpcFlags
	fs := newFlagSet("info", &rpc)
	vaultAddr := fs.String("vault", "", "vault address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return rpc.call(func(ctx context.Context, c *client.Client) (any, error) {
		return c.Info(ctx, *vaultAddr)
	}, stdout)
}

func runList(args []string, stdout io.Writer) error {
	var rpc rpcFlags
	fs := newFlagSet("list", &rpc)
	owner := fs.String("owner", "", "only list vaults owned by this address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return rpc.call(func(ctx context.Context, c *client.Client) (any, error) {
		return c.ListVaults(ctx, *owner)
	}, stdout)
}

func runBalances(args []string, stdout io.Writer) error {
	var rpc rpcFlags
	fs := newFlagSet("balances", &rpc)
	address := fs.String("address", "", "account or vault address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return rpc.call(func(ctx context.Context, c *client.Client) (any, error) {
		return c.Balances(ctx, *address)
	}, stdout)
}

func runDelegations(args []string, stdout io.Writer) error {
	var rpc rpcFlags
	fs := newFlagSet("delegations", &rpc)
	address := fs.String("address", "", "delegator address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return rpc.call(func(ctx context.Context, c *client.Client) (any, error) {
		return c.Delegations(ctx, *address)
	}, stdout)
}

func runParams(args []string, stdout io.Writer) error {
	var rpc rpcFlags
	fs := newFlagSet("params", &rpc)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return rpc.call(func(ctx context.Context, c *client.Client) (any, error) {
		return c.Params(ctx)
	}, stdout)
}

func runFund(args []string, stdout io.Writer) error {
	var rpc rpcFlags
	fs := newFlagSet("fund", &rpc)
	address := fs.String("address", "", "account to credit")
	rawCoins := fs.String("coins", "", "comma separated coins, e.g. 1000ustake")
	if err := fs.Parse(args); err != nil {
		return err
	}
	coins, err := parseCoins(*rawCoins)
	if err != nil {
		return err
	}
	if len(coins) == 0 {
		return errors.New("-coins is required")
	}
	return rpc.call(func(ctx context.Context, c *client.Client) (any, error) {
		return c.Fund(ctx, *address, coins)
	}, stdout)
}

func parseCoins(raw string) (types.Coins, error) {
	var out types.Coins
	for _, part := range splitList(raw) {
		coin, err := types.ParseCoin(part)
		if err != nil {
			return nil, fmt.Errorf("parse coin %q: %w", part, err)
		}
		out = append(out, coin)
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
