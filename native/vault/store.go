package vault

import (
	"encoding/json"
	"errors"
	"fmt"

	"stakevault/storage"
)

var (
	configPrefix = []byte("vault/config/")
	optionPrefix = []byte("vault/option/")
)

func storeKey(prefix []byte, vault string) []byte {
	key := make([]byte, 0, len(prefix)+len(vault))
	key = append(key, prefix...)
	return append(key, vault...)
}

// Store persists vault configs and liquidity request slots as JSON records in
// a key/value database.
type Store struct {
	db storage.Database
}

// NewStore wraps db.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) get(key []byte, out any) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("vault store: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) put(key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("vault store: encode %s: %w", key, err)
	}
	return s.db.Put(key, raw)
}

// VaultConfig loads the config of vault.
func (s *Store) VaultConfig(vault string) (*Config, bool, error) {
	var cfg Config
	ok, err := s.get(storeKey(configPrefix, vault), &cfg)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &cfg, true, nil
}

// PutVaultConfig stores the config of vault.
func (s *Store) PutVaultConfig(vault string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("vault store: nil config")
	}
	return s.put(storeKey(configPrefix, vault), cfg)
}

// ActiveOption loads the liquidity request slot of vault.
func (s *Store) ActiveOption(vault string) (*ActiveOption, bool, error) {
	var option ActiveOption
	ok, err := s.get(storeKey(optionPrefix, vault), &option)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &option, true, nil
}

// PutActiveOption stores the liquidity request slot of vault.
func (s *Store) PutActiveOption(vault string, option *ActiveOption) error {
	if option == nil {
		return s.DeleteActiveOption(vault)
	}
	return s.put(storeKey(optionPrefix, vault), option)
}

// DeleteActiveOption clears the liquidity request slot of vault.
func (s *Store) DeleteActiveOption(vault string) error {
	return s.db.Delete(storeKey(optionPrefix, vault))
}
