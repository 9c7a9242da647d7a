package config

import (
	"fmt"
	"strings"

	"stakevault/crypto"
)

var (
	MinUnbondingPeriodSeconds = int64(60)
)

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.DBBackend {
	case BackendMemory, BackendLevelDB, BackendBolt:
	default:
		return fmt.Errorf("DBBackend: unsupported backend %q", c.DBBackend)
	}
	if c.DBBackend != BackendMemory && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir: required for %s backend", c.DBBackend)
	}
	if c.UnbondingPeriodSecs < MinUnbondingPeriodSeconds {
		return fmt.Errorf("UnbondingPeriodSecs: must be at least %d", MinUnbondingPeriodSeconds)
	}
	if c.BlockIntervalSecs <= 0 {
		return fmt.Errorf("BlockIntervalSecs: must be positive")
	}
	if _, err := c.RewardsPerBlockAmount(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Validators))
	for i, v := range c.Validators {
		addr := strings.TrimSpace(v.Address)
		if err := crypto.ValidateAddress(addr, crypto.ValidatorPrefix); err != nil {
			return fmt.Errorf("validator[%d]: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("validator[%d]: duplicate address %s", i, addr)
		}
		seen[addr] = struct{}{}
	}
	for i, acct := range c.Accounts {
		if err := crypto.ValidateAddress(strings.TrimSpace(acct.Address), crypto.AccountPrefix); err != nil {
			return fmt.Errorf("account[%d]: %w", i, err)
		}
	}
	if _, err := c.GenesisBalances(); err != nil {
		return err
	}
	return nil
}
