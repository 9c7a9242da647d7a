package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"

	"stakevault/core/types"
	"stakevault/crypto"
	"stakevault/native/staking"
)

// Database backends understood by the node.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

// Config holds the chain parameters and genesis for a vault host.
type Config struct {
	ChainID              string            `toml:"ChainID"`
	DataDir              string            `toml:"DataDir"`
	DBBackend            string            `toml:"DBBackend"`
	BondDenom            string            `toml:"BondDenom"`
	UnbondingPeriodSecs  int64             `toml:"UnbondingPeriodSecs"`
	VaultCodeID          uint64            `toml:"VaultCodeID"`
	RewardsPerBlock      string            `toml:"RewardsPerBlock"`
	BlockIntervalSecs    int64             `toml:"BlockIntervalSecs"`
	OperatorKeystorePath string            `toml:"OperatorKeystorePath"`
	PausedModules        []string          `toml:"PausedModules"`
	Validators           []ValidatorConfig `toml:"validator"`
	Accounts             []AccountConfig   `toml:"account"`
}

// ValidatorConfig seeds one validator at genesis.
type ValidatorConfig struct {
	Address string `toml:"Address"`
	Moniker string `toml:"Moniker"`
	Jailed  bool   `toml:"Jailed"`
}

// AccountConfig seeds one account balance at genesis. Coins use the
// "<amount><denom>" form, e.g. "1000000ustake".
type AccountConfig struct {
	Address string   `toml:"Address"`
	Coins   []string `toml:"Coins"`
}

// Load loads the configuration from the given path, writing a development
// default when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.ChainID = strings.TrimSpace(c.ChainID)
	if c.ChainID == "" {
		c.ChainID = "stakevault-local"
	}
	c.DBBackend = strings.ToLower(strings.TrimSpace(c.DBBackend))
	if c.DBBackend == "" {
		c.DBBackend = BackendLevelDB
	}
	c.BondDenom = strings.TrimSpace(c.BondDenom)
	if c.BondDenom == "" {
		c.BondDenom = "ustake"
	}
	if c.UnbondingPeriodSecs == 0 {
		c.UnbondingPeriodSecs = 21 * 24 * 3600
	}
	if c.VaultCodeID == 0 {
		c.VaultCodeID = 1
	}
	if strings.TrimSpace(c.RewardsPerBlock) == "" {
		c.RewardsPerBlock = "0"
	}
	if c.BlockIntervalSecs == 0 {
		c.BlockIntervalSecs = 5
	}
	if c.PausedModules == nil {
		c.PausedModules = []string{}
	}
}

// StakingParams returns the ledger parameters.
func (c *Config) StakingParams() staking.Params {
	return staking.Params{BondDenom: c.BondDenom, UnbondingPeriod: c.UnbondingPeriodSecs}
}

// RewardsPerBlockAmount parses RewardsPerBlock.
func (c *Config) RewardsPerBlockAmount() (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(strings.TrimSpace(c.RewardsPerBlock))
	if err != nil {
		return nil, fmt.Errorf("RewardsPerBlock: %w", err)
	}
	return amount, nil
}

// GenesisValidators converts the validator entries.
func (c *Config) GenesisValidators() []staking.Validator {
	out := make([]staking.Validator, 0, len(c.Validators))
	for _, v := range c.Validators {
		out = append(out, staking.Validator{
			Address: strings.TrimSpace(v.Address),
			Moniker: strings.TrimSpace(v.Moniker),
			Active:  !v.Jailed,
		})
	}
	return out
}

// GenesisBalances parses the account entries, merging duplicates.
func (c *Config) GenesisBalances() (map[string]types.Coins, error) {
	out := make(map[string]types.Coins, len(c.Accounts))
	for i, acct := range c.Accounts {
		addr := strings.TrimSpace(acct.Address)
		for _, raw := range acct.Coins {
			coin, err := types.ParseCoin(raw)
			if err != nil {
				return nil, fmt.Errorf("account[%d] coin %q: %w", i, raw, err)
			}
			out[addr] = append(out[addr], coin)
		}
	}
	return out, nil
}

// DatabasePath returns the on-disk location of the state database.
func (c *Config) DatabasePath() string {
	switch c.DBBackend {
	case BackendBolt:
		return filepath.Join(c.DataDir, "state.bolt")
	default:
		return filepath.Join(c.DataDir, "state")
	}
}

// createDefault creates and saves a single-validator development
// configuration whose operator key doubles as the validator and faucet.
func createDefault(path string) (*Config, error) {
	keystorePath := defaultKeystorePath(path)
	key, _, err := crypto.LoadOrCreateKeystore(keystorePath, "", crypto.KeystoreOptions{})
	if err != nil {
		return nil, err
	}
	pub := key.PubKey()

	cfg := &Config{
		DataDir:              "./stakevault-data",
		RewardsPerBlock:      "1000",
		OperatorKeystorePath: keystorePath,
		Validators: []ValidatorConfig{{
			Address: pub.ValidatorAddress().String(),
			Moniker: "local",
		}},
		Accounts: []AccountConfig{{
			Address: pub.Address().String(),
			Coins:   []string{"1000000000000ustake"},
		}},
	}
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
