package staking

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/holiman/uint256"

	"stakevault/core/events"
	"stakevault/core/types"
)

// Ledger is the in-process bank and staking ledger. Every method is safe for
// concurrent use; multi-step atomicity is provided by Snapshot/Restore.
type Ledger struct {
	mu sync.RWMutex

	bondDenom       string
	unbondingPeriod int64

	balances    map[string]map[string]*uint256.Int
	validators  map[string]*Validator
	delegations map[string]map[string]*uint256.Int
	rewards     map[string]map[string]*uint256.Int
	unbonding   []UnbondingEntry
	votes       map[uint64]map[string]types.VoteOption

	pending []events.Event
}

// NewLedger creates an empty ledger.
func NewLedger(params Params) *Ledger {
	l := &Ledger{}
	l.resetLocked(params)
	return l
}

func (l *Ledger) resetLocked(params Params) {
	l.bondDenom = strings.TrimSpace(params.BondDenom)
	l.unbondingPeriod = params.UnbondingPeriod
	l.balances = make(map[string]map[string]*uint256.Int)
	l.validators = make(map[string]*Validator)
	l.delegations = make(map[string]map[string]*uint256.Int)
	l.rewards = make(map[string]map[string]*uint256.Int)
	l.unbonding = nil
	l.votes = make(map[uint64]map[string]types.VoteOption)
	l.pending = nil
}

// BondDenom returns the staking denomination.
func (l *Ledger) BondDenom() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bondDenom
}

// UnbondingPeriod returns the unbonding latency in seconds.
func (l *Ledger) UnbondingPeriod() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.unbondingPeriod
}

// DrainEvents returns and clears the events produced since the last drain.
func (l *Ledger) DrainEvents() []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.pending
	l.pending = nil
	return out
}

func (l *Ledger) record(evt events.Event) {
	l.pending = append(l.pending, evt)
}

// --- Validators ---

// AddValidator registers or updates a validator.
func (l *Ledger) AddValidator(v Validator) error {
	addr := strings.TrimSpace(v.Address)
	if addr == "" {
		return fmt.Errorf("staking: validator address required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	v.Address = addr
	l.validators[addr] = &v
	return nil
}

// SetValidatorActive toggles the active flag of an existing validator.
func (l *Ledger) SetValidatorActive(addr string, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.validators[addr]
	if !ok {
		return ErrUnknownValidator
	}
	v.Active = active
	return nil
}

// Validator returns the validator registered at addr.
func (l *Ledger) Validator(addr string) (Validator, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.validators[addr]
	if !ok {
		return Validator{}, false
	}
	return *v, true
}

// Validators lists every validator ordered by address.
func (l *Ledger) Validators() []Validator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Validator, 0, len(l.validators))
	for _, v := range l.validators {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// --- Bank ---

// Mint credits coins to addr out of thin air. Used by genesis and the dev faucet.
func (l *Ledger) Mint(addr string, coins types.Coins) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range coins {
		if strings.TrimSpace(c.Denom) == "" {
			return ErrInvalidDenom
		}
		if c.IsZero() {
			continue
		}
		l.creditLocked(addr, c.Denom, c.Amount)
	}
	return nil
}

// Balance returns the free balance of addr in denom.
func (l *Ledger) Balance(addr, denom string) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(addr, denom)
}

// AllBalances returns every non-zero free balance of addr ordered by denom.
func (l *Ledger) AllBalances(addr string) types.Coins {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(types.Coins, 0, len(l.balances[addr]))
	for denom, amount := range l.balances[addr] {
		out = append(out, types.Coin{Denom: denom, Amount: new(uint256.Int).Set(amount)})
	}
	return out.Sorted()
}

// Send moves coins between free balances.
func (l *Ledger) Send(from, to string, coins types.Coins) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sendLocked(from, to, coins)
}

func (l *Ledger) sendLocked(from, to string, coins types.Coins) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("staking: recipient required")
	}
	for _, c := range coins {
		if c.IsZero() {
			return ErrInvalidAmount
		}
		if have := l.balanceLocked(from, c.Denom); have.Lt(c.Amount) {
			return fmt.Errorf("%w: %s has %s%s, needs %s", ErrInsufficientFunds, from, have.Dec(), c.Denom, c.String())
		}
	}
	for _, c := range coins {
		l.debitLocked(from, c.Denom, c.Amount)
		l.creditLocked(to, c.Denom, c.Amount)
	}
	l.record(events.BankTransfer{From: from, To: to, Amount: coins.Sorted()})
	return nil
}

func (l *Ledger) balanceLocked(addr, denom string) *uint256.Int {
	if amount, ok := l.balances[addr][denom]; ok {
		return new(uint256.Int).Set(amount)
	}
	return new(uint256.Int)
}

func (l *Ledger) creditLocked(addr, denom string, amount *uint256.Int) {
	byDenom, ok := l.balances[addr]
	if !ok {
		byDenom = make(map[string]*uint256.Int)
		l.balances[addr] = byDenom
	}
	current, ok := byDenom[denom]
	if !ok {
		current = new(uint256.Int)
		byDenom[denom] = current
	}
	current.Add(current, amount)
}

func (l *Ledger) debitLocked(addr, denom string, amount *uint256.Int) {
	current := l.balances[addr][denom]
	current.Sub(current, amount)
	if current.IsZero() {
		delete(l.balances[addr], denom)
	}
}

// --- Staking ---

func (l *Ledger) checkBondCoin(c types.Coin) error {
	if c.Denom != l.bondDenom {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidDenom, l.bondDenom, c.Denom)
	}
	if c.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func (l *Ledger) activeValidatorLocked(addr string) error {
	v, ok := l.validators[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, addr)
	}
	if !v.Active {
		return fmt.Errorf("%w: %s", ErrValidatorInactive, addr)
	}
	return nil
}

// Delegate bonds coin from the delegator's free balance to validator.
func (l *Ledger) Delegate(delegator, validator string, coin types.Coin) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkBondCoin(coin); err != nil {
		return err
	}
	if err := l.activeValidatorLocked(validator); err != nil {
		return err
	}
	if have := l.balanceLocked(delegator, coin.Denom); have.Lt(coin.Amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, delegator, have.Dec(), coin.String())
	}
	l.debitLocked(delegator, coin.Denom, coin.Amount)
	l.addDelegationLocked(delegator, validator, coin.Amount)
	l.record(events.StakeDelegated{Delegator: delegator, Validator: validator, Amount: coin.Clone()})
	return nil
}

// Redelegate moves bonded stake between validators without unbonding.
func (l *Ledger) Redelegate(delegator, src, dst string, coin types.Coin) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkBondCoin(coin); err != nil {
		return err
	}
	if err := l.activeValidatorLocked(dst); err != nil {
		return err
	}
	if err := l.removeDelegationLocked(delegator, src, coin.Amount); err != nil {
		return err
	}
	l.addDelegationLocked(delegator, dst, coin.Amount)
	l.record(events.StakeRedelegated{Delegator: delegator, SrcValidator: src, DstValidator: dst, Amount: coin.Clone()})
	return nil
}

// Undelegate moves bonded stake into the unbonding queue.
func (l *Ledger) Undelegate(delegator, validator string, coin types.Coin, now int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkBondCoin(coin); err != nil {
		return err
	}
	if err := l.removeDelegationLocked(delegator, validator, coin.Amount); err != nil {
		return err
	}
	entry := UnbondingEntry{
		Delegator:      delegator,
		Validator:      validator,
		Amount:         coin.AmountOrZero(),
		CompletionTime: now + l.unbondingPeriod,
	}
	l.unbonding = append(l.unbonding, entry)
	l.record(events.StakeUndelegated{Delegator: delegator, Validator: validator, Amount: coin.Clone(), CompletionTime: entry.CompletionTime})
	return nil
}

func (l *Ledger) addDelegationLocked(delegator, validator string, amount *uint256.Int) {
	byValidator, ok := l.delegations[delegator]
	if !ok {
		byValidator = make(map[string]*uint256.Int)
		l.delegations[delegator] = byValidator
	}
	current, ok := byValidator[validator]
	if !ok {
		current = new(uint256.Int)
		byValidator[validator] = current
	}
	current.Add(current, amount)
}

func (l *Ledger) removeDelegationLocked(delegator, validator string, amount *uint256.Int) error {
	current, ok := l.delegations[delegator][validator]
	if !ok || current.Lt(amount) {
		have := "0"
		if ok {
			have = current.Dec()
		}
		return fmt.Errorf("%w: %s delegates %s to %s, requested %s", ErrInsufficientDelegation, delegator, have, validator, amount.Dec())
	}
	current.Sub(current, amount)
	if current.IsZero() {
		delete(l.delegations[delegator], validator)
		if len(l.delegations[delegator]) == 0 {
			delete(l.delegations, delegator)
		}
	}
	return nil
}

// Delegations returns the delegator's bonded stake ordered by validator.
func (l *Ledger) Delegations(delegator string) []Delegation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Delegation, 0, len(l.delegations[delegator]))
	for validator, amount := range l.delegations[delegator] {
		out = append(out, Delegation{
			Delegator: delegator,
			Validator: validator,
			Amount:    types.Coin{Denom: l.bondDenom, Amount: new(uint256.Int).Set(amount)},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Validator < out[j].Validator })
	return out
}

// Delegation returns the bonded stake of delegator at validator.
func (l *Ledger) Delegation(delegator, validator string) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if amount, ok := l.delegations[delegator][validator]; ok {
		return new(uint256.Int).Set(amount)
	}
	return new(uint256.Int)
}

// TotalDelegated sums the delegator's bonded stake across validators.
func (l *Ledger) TotalDelegated(delegator string) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := new(uint256.Int)
	for _, amount := range l.delegations[delegator] {
		total.Add(total, amount)
	}
	return total
}

// --- Unbonding ---

// Unbondings lists the delegator's unmatured unbonding entries.
func (l *Ledger) Unbondings(delegator string) []UnbondingEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []UnbondingEntry
	for _, entry := range l.unbonding {
		if entry.Delegator == delegator {
			out = append(out, entry.Clone())
		}
	}
	return out
}

// UnbondingBalance sums the delegator's unmatured unbonding entries.
func (l *Ledger) UnbondingBalance(delegator string) *uint256.Int {
	total := new(uint256.Int)
	for _, entry := range l.Unbondings(delegator) {
		total.Add(total, entry.Amount)
	}
	return total
}

// MatureUnbonding releases every entry whose completion time is at or before
// now into the delegator's free balance.
func (l *Ledger) MatureUnbonding(now int64) []UnbondingEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var matured []UnbondingEntry
	remaining := l.unbonding[:0]
	for _, entry := range l.unbonding {
		if entry.CompletionTime > now {
			remaining = append(remaining, entry)
			continue
		}
		l.creditLocked(entry.Delegator, l.bondDenom, entry.Amount)
		matured = append(matured, entry.Clone())
		l.record(events.StakeUnbonded{
			Delegator: entry.Delegator,
			Validator: entry.Validator,
			Amount:    types.Coin{Denom: l.bondDenom, Amount: new(uint256.Int).Set(entry.Amount)},
		})
	}
	l.unbonding = remaining
	return matured
}

// --- Rewards ---

// AccrueRewards distributes total across every delegation pro-rata to bonded
// stake, rounding each share down. The rounding remainder is not minted.
func (l *Ledger) AccrueRewards(total *uint256.Int) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	distributed := new(uint256.Int)
	if total == nil || total.IsZero() {
		return distributed
	}
	bonded := new(uint256.Int)
	for _, byValidator := range l.delegations {
		for _, amount := range byValidator {
			bonded.Add(bonded, amount)
		}
	}
	if bonded.IsZero() {
		return distributed
	}
	for delegator, byValidator := range l.delegations {
		for validator, amount := range byValidator {
			share, overflow := new(uint256.Int).MulDivOverflow(total, amount, bonded)
			if overflow || share.IsZero() {
				continue
			}
			l.addRewardLocked(delegator, validator, share)
			distributed.Add(distributed, share)
		}
	}
	return distributed
}

// AddRewards credits pending rewards to a single delegation.
func (l *Ledger) AddRewards(delegator, validator string, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addRewardLocked(delegator, validator, amount)
}

func (l *Ledger) addRewardLocked(delegator, validator string, amount *uint256.Int) {
	byValidator, ok := l.rewards[delegator]
	if !ok {
		byValidator = make(map[string]*uint256.Int)
		l.rewards[delegator] = byValidator
	}
	current, ok := byValidator[validator]
	if !ok {
		current = new(uint256.Int)
		byValidator[validator] = current
	}
	current.Add(current, amount)
}

// PendingRewards lists the delegator's unwithdrawn rewards ordered by validator.
func (l *Ledger) PendingRewards(delegator string) []Reward {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Reward, 0, len(l.rewards[delegator]))
	for validator, amount := range l.rewards[delegator] {
		if amount.IsZero() {
			continue
		}
		out = append(out, Reward{
			Validator: validator,
			Amount:    types.Coin{Denom: l.bondDenom, Amount: new(uint256.Int).Set(amount)},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Validator < out[j].Validator })
	return out
}

// WithdrawRewards moves the pending reward at validator into free balance. A
// zero pending reward is not an error.
func (l *Ledger) WithdrawRewards(delegator, validator string) (types.Coin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.validators[validator]; !ok {
		return types.Coin{}, fmt.Errorf("%w: %s", ErrUnknownValidator, validator)
	}
	claimed := types.Coin{Denom: l.bondDenom, Amount: new(uint256.Int)}
	amount, ok := l.rewards[delegator][validator]
	if !ok || amount.IsZero() {
		return claimed, nil
	}
	claimed.Amount.Set(amount)
	delete(l.rewards[delegator], validator)
	if len(l.rewards[delegator]) == 0 {
		delete(l.rewards, delegator)
	}
	l.creditLocked(delegator, l.bondDenom, claimed.Amount)
	l.record(events.StakeRewardsClaimed{Delegator: delegator, Validator: validator, Amount: claimed.Clone()})
	return claimed, nil
}

// --- Governance ---

// Vote records the voter's ballot, replacing any earlier choice.
func (l *Ledger) Vote(voter string, proposalID uint64, option types.VoteOption) error {
	if proposalID == 0 || !option.Valid() {
		return fmt.Errorf("%w: proposal %d option %q", ErrInvalidVote, proposalID, option)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ballots, ok := l.votes[proposalID]
	if !ok {
		ballots = make(map[string]types.VoteOption)
		l.votes[proposalID] = ballots
	}
	ballots[voter] = option
	l.record(events.GovVoted{Voter: voter, ProposalID: proposalID, Option: option})
	return nil
}

// VoteOf returns the recorded ballot of voter on proposalID.
func (l *Ledger) VoteOf(proposalID uint64, voter string) (types.VoteOption, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	option, ok := l.votes[proposalID][voter]
	return option, ok
}
