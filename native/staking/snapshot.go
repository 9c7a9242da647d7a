package staking

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"stakevault/core/types"
)

type amountEntry struct {
	Owner  string `json:"owner"`
	Key    string `json:"key"`
	Amount string `json:"amount"`
}

type unbondingJSON struct {
	Delegator      string `json:"delegator"`
	Validator      string `json:"validator"`
	Amount         string `json:"amount"`
	CompletionTime int64  `json:"completion_time"`
}

type voteJSON struct {
	ProposalID uint64           `json:"proposal_id"`
	Voter      string           `json:"voter"`
	Option     types.VoteOption `json:"option"`
}

type exportedLedger struct {
	BondDenom       string          `json:"bond_denom"`
	UnbondingPeriod int64           `json:"unbonding_period"`
	Validators      []Validator     `json:"validators"`
	Balances        []amountEntry   `json:"balances"`
	Delegations     []amountEntry   `json:"delegations"`
	Rewards         []amountEntry   `json:"rewards"`
	Unbonding       []unbondingJSON `json:"unbonding"`
	Votes           []voteJSON      `json:"votes"`
}

func flatten(m map[string]map[string]*uint256.Int) []amountEntry {
	out := make([]amountEntry, 0, len(m))
	for owner, inner := range m {
		for key, amount := range inner {
			out = append(out, amountEntry{Owner: owner, Key: key, Amount: amount.Dec()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func unflatten(entries []amountEntry) (map[string]map[string]*uint256.Int, error) {
	out := make(map[string]map[string]*uint256.Int)
	for _, entry := range entries {
		amount, err := uint256.FromDecimal(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("amount %q: %w", entry.Amount, err)
		}
		if amount.IsZero() {
			continue
		}
		inner, ok := out[entry.Owner]
		if !ok {
			inner = make(map[string]*uint256.Int)
			out[entry.Owner] = inner
		}
		inner[entry.Key] = amount
	}
	return out, nil
}

// Export serialises the full ledger state deterministically.
func (l *Ledger) Export() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	state := exportedLedger{
		BondDenom:       l.bondDenom,
		UnbondingPeriod: l.unbondingPeriod,
		Balances:        flatten(l.balances),
		Delegations:     flatten(l.delegations),
		Rewards:         flatten(l.rewards),
	}
	for _, v := range l.validators {
		state.Validators = append(state.Validators, *v)
	}
	sort.Slice(state.Validators, func(i, j int) bool { return state.Validators[i].Address < state.Validators[j].Address })
	for _, entry := range l.unbonding {
		state.Unbonding = append(state.Unbonding, unbondingJSON{
			Delegator:      entry.Delegator,
			Validator:      entry.Validator,
			Amount:         entry.Amount.Dec(),
			CompletionTime: entry.CompletionTime,
		})
	}
	for proposalID, ballots := range l.votes {
		for voter, option := range ballots {
			state.Votes = append(state.Votes, voteJSON{ProposalID: proposalID, Voter: voter, Option: option})
		}
	}
	sort.Slice(state.Votes, func(i, j int) bool {
		if state.Votes[i].ProposalID != state.Votes[j].ProposalID {
			return state.Votes[i].ProposalID < state.Votes[j].ProposalID
		}
		return state.Votes[i].Voter < state.Votes[j].Voter
	})
	return json.Marshal(state)
}

// Import replaces the ledger state with a previous Export. Pending events are
// dropped.
func (l *Ledger) Import(data []byte) error {
	var state exportedLedger
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("staking: decode ledger: %w", err)
	}
	balances, err := unflatten(state.Balances)
	if err != nil {
		return fmt.Errorf("staking: balances: %w", err)
	}
	delegations, err := unflatten(state.Delegations)
	if err != nil {
		return fmt.Errorf("staking: delegations: %w", err)
	}
	rewards, err := unflatten(state.Rewards)
	if err != nil {
		return fmt.Errorf("staking: rewards: %w", err)
	}
	unbonding := make([]UnbondingEntry, 0, len(state.Unbonding))
	for _, entry := range state.Unbonding {
		amount, err := uint256.FromDecimal(entry.Amount)
		if err != nil {
			return fmt.Errorf("staking: unbonding amount %q: %w", entry.Amount, err)
		}
		unbonding = append(unbonding, UnbondingEntry{
			Delegator:      entry.Delegator,
			Validator:      entry.Validator,
			Amount:         amount,
			CompletionTime: entry.CompletionTime,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked(Params{BondDenom: state.BondDenom, UnbondingPeriod: state.UnbondingPeriod})
	l.balances = balances
	l.delegations = delegations
	l.rewards = rewards
	l.unbonding = unbonding
	for _, v := range state.Validators {
		v := v
		l.validators[v.Address] = &v
	}
	for _, vote := range state.Votes {
		ballots, ok := l.votes[vote.ProposalID]
		if !ok {
			ballots = make(map[string]types.VoteOption)
			l.votes[vote.ProposalID] = ballots
		}
		ballots[vote.Voter] = vote.Option
	}
	return nil
}

// Snapshot captures the ledger so a failed multi-step operation can be undone.
type Snapshot struct {
	data []byte
}

// Snapshot returns a restorable copy of the current state.
func (l *Ledger) Snapshot() (*Snapshot, error) {
	data, err := l.Export()
	if err != nil {
		return nil, err
	}
	return &Snapshot{data: data}, nil
}

// Restore rewinds the ledger to snap.
func (l *Ledger) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("staking: nil snapshot")
	}
	return l.Import(snap.data)
}
