package crypto

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the bech32 human-readable part of an address.
type AddressPrefix string

const (
	AccountPrefix   AddressPrefix = "stake"
	ValidatorPrefix AddressPrefix = "stakevaloper"
)

// AddressLength is the size of every account, validator and vault address.
const AddressLength = 20

// ErrInvalidAddress wraps every address decoding failure.
var ErrInvalidAddress = errors.New("crypto: invalid address")

// Address is a prefixed 20-byte identity. Vaults share the account prefix.
type Address struct {
	prefix AddressPrefix
	raw    [AddressLength]byte
}

// NewAddress panics unless b is exactly AddressLength bytes. Callers hold
// hashes or decoded keys, so a wrong length is a programming error.
func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != AddressLength {
		panic(fmt.Sprintf("crypto: address must be %d bytes, got %d", AddressLength, len(b)))
	}
	addr := Address{prefix: prefix}
	copy(addr.raw[:], b)
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.raw[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a copy of the raw address.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.raw[:])
	return out
}

func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// DecodeAddress parses any bech32 address of the right length.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, data, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLength {
		return Address{}, fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(raw))
	}
	return NewAddress(AddressPrefix(prefix), raw), nil
}

// ValidateAddress checks that addrStr decodes and carries the expected prefix.
func ValidateAddress(addrStr string, prefix AddressPrefix) error {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		return err
	}
	if addr.Prefix() != prefix {
		return fmt.Errorf("%w: %s has prefix %q, want %q", ErrInvalidAddress, addrStr, addr.Prefix(), prefix)
	}
	return nil
}

// DeriveVaultAddress returns the deterministic account address of the vault
// instantiated by owner from codeID at the given per-owner index.
func DeriveVaultAddress(owner string, codeID, index uint64) Address {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], codeID)
	binary.BigEndian.PutUint64(buf[8:], index)
	digest := crypto.Keccak256([]byte("vault"), []byte(owner), buf[:])
	return NewAddress(AccountPrefix, digest[len(digest)-AddressLength:])
}

// PrivateKey is a secp256k1 signing key. Operators and genesis accounts are
// generated with it; vault execution itself never signs.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &PrivateKey{key}, nil
}

// PrivateKeyFromBytes restores a key from its 32-byte scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: restore key: %w", err)
	}
	return &PrivateKey{key}, nil
}

func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

func (k *PublicKey) Address() Address {
	return NewAddress(AccountPrefix, crypto.PubkeyToAddress(*k.PublicKey).Bytes())
}

// ValidatorAddress is the operator identity of the same key.
func (k *PublicKey) ValidatorAddress() Address {
	return NewAddress(ValidatorPrefix, crypto.PubkeyToAddress(*k.PublicKey).Bytes())
}
