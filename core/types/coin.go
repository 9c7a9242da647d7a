package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"
)

// Coin is a single denomination amount held on the bank ledger.
type Coin struct {
	Denom  string
	Amount *uint256.Int
}

type coinJSON struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// NewCoin builds a coin from a uint64 amount.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: uint256.NewInt(amount)}
}

// ParseCoin parses the "<amount><denom>" notation, e.g. "300000uatom".
func ParseCoin(raw string) (Coin, error) {
	trimmed := strings.TrimSpace(raw)
	idx := 0
	for idx < len(trimmed) && trimmed[idx] >= '0' && trimmed[idx] <= '9' {
		idx++
	}
	if idx == 0 || idx == len(trimmed) {
		return Coin{}, fmt.Errorf("invalid coin %q", raw)
	}
	amount, err := uint256.FromDecimal(trimmed[:idx])
	if err != nil {
		return Coin{}, fmt.Errorf("invalid coin amount %q: %w", raw, err)
	}
	return Coin{Denom: trimmed[idx:], Amount: amount}, nil
}

// AmountOrZero returns a copy of the amount, treating nil as zero.
func (c Coin) AmountOrZero() *uint256.Int {
	if c.Amount == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(c.Amount)
}

// IsZero reports whether the coin carries no value.
func (c Coin) IsZero() bool { return c.Amount == nil || c.Amount.IsZero() }

// Equal compares denom and amount.
func (c Coin) Equal(other Coin) bool {
	return c.Denom == other.Denom && c.AmountOrZero().Eq(other.AmountOrZero())
}

// Clone returns a deep copy.
func (c Coin) Clone() Coin {
	return Coin{Denom: c.Denom, Amount: c.AmountOrZero()}
}

func (c Coin) String() string {
	return c.AmountOrZero().Dec() + c.Denom
}

func (c Coin) MarshalJSON() ([]byte, error) {
	return json.Marshal(coinJSON{Denom: c.Denom, Amount: c.AmountOrZero().Dec()})
}

func (c *Coin) UnmarshalJSON(data []byte) error {
	var raw coinJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount := new(uint256.Int)
	if strings.TrimSpace(raw.Amount) != "" {
		if err := amount.SetFromDecimal(raw.Amount); err != nil {
			return fmt.Errorf("coin amount: %w", err)
		}
	}
	c.Denom = raw.Denom
	c.Amount = amount
	return nil
}

// Coins is an ordered collection of coins with distinct denoms.
type Coins []Coin

// AmountOf returns the amount held in the supplied denom.
func (cs Coins) AmountOf(denom string) *uint256.Int {
	for _, c := range cs {
		if c.Denom == denom {
			return c.AmountOrZero()
		}
	}
	return new(uint256.Int)
}

// Sorted returns a copy ordered by denom with zero entries removed.
func (cs Coins) Sorted() Coins {
	out := make(Coins, 0, len(cs))
	for _, c := range cs {
		if c.IsZero() {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out
}

func (cs Coins) String() string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}
