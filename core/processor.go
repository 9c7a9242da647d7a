package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"stakevault/core/events"
	"stakevault/core/types"
	"stakevault/crypto"
	nativecommon "stakevault/native/common"
	"stakevault/native/staking"
	"stakevault/native/vault"
	"stakevault/observability"
	"stakevault/observability/metrics"
	"stakevault/storage"
)

var (
	ledgerStateKey = []byte("ledger/state")
	registryKey    = []byte("vault/registry")
	blockKey       = []byte("chain/block")
)

var (
	// ErrInvalidFunds is returned when attached funds are malformed.
	ErrInvalidFunds = errors.New("core: invalid funds")
)

// Options configures a StateProcessor. Genesis fields are only applied when
// the database holds no ledger state yet.
type Options struct {
	Params          staking.Params
	CodeID          uint64
	RewardsPerBlock *uint256.Int
	Validators      []staking.Validator
	Balances        map[string]types.Coins
	Pauses          *nativecommon.StaticPauses
	Emitter         events.Emitter
	Logger          *slog.Logger
	Now             func() int64
}

// BlockInfo describes the last processed block.
type BlockInfo struct {
	Height  uint64 `json:"height"`
	Time    int64  `json:"time"`
	Matured int    `json:"matured"`
	Rewards string `json:"rewards"`
}

// StateProcessor hosts the vault engine on top of the staking ledger. Every
// mutation runs against a write buffer and a ledger snapshot; it is committed
// together with the ledger only when the engine and every dispatched ledger
// instruction succeed.
type StateProcessor struct {
	mu sync.Mutex

	db       storage.Database
	ledger   *staking.Ledger
	engine   *vault.Engine
	pauses   *nativecommon.StaticPauses
	emitter  events.Emitter
	logger   *slog.Logger
	nowFn    func() int64
	codeID   uint64
	rewards  *uint256.Int
	registry map[string][]string
	block    BlockInfo
}

// NewStateProcessor loads persisted state from db or initialises it from the
// genesis carried in opts.
func NewStateProcessor(db storage.Database, opts Options) (*StateProcessor, error) {
	if db == nil {
		return nil, fmt.Errorf("core: nil database")
	}
	sp := &StateProcessor{
		db:       db,
		ledger:   staking.NewLedger(opts.Params),
		engine:   vault.NewEngine(),
		pauses:   opts.Pauses,
		emitter:  opts.Emitter,
		logger:   opts.Logger,
		nowFn:    opts.Now,
		codeID:   opts.CodeID,
		rewards:  opts.RewardsPerBlock,
		registry: make(map[string][]string),
	}
	if sp.pauses == nil {
		sp.pauses = nativecommon.NewStaticPauses()
	}
	if sp.emitter == nil {
		sp.emitter = events.NoopEmitter{}
	}
	if sp.logger == nil {
		sp.logger = slog.Default()
	}
	if sp.nowFn == nil {
		sp.nowFn = func() int64 { return time.Now().Unix() }
	}
	if sp.codeID == 0 {
		sp.codeID = 1
	}
	if sp.rewards == nil {
		sp.rewards = new(uint256.Int)
	}
	for _, route := range types.Routes {
		metrics.Ledger().InitRoute(route)
	}
	sp.engine.SetGateway(sp.ledger)
	sp.engine.SetPauses(sp.pauses)
	sp.engine.SetNowFunc(sp.now)
	sp.engine.SetState(vault.NewStore(db))

	raw, err := db.Get(ledgerStateKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if err := sp.applyGenesis(opts); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := sp.ledger.Import(raw); err != nil {
			return nil, fmt.Errorf("core: load ledger: %w", err)
		}
		if err := sp.loadRegistry(); err != nil {
			return nil, err
		}
		if err := sp.loadBlock(); err != nil {
			return nil, err
		}
	}
	sp.ledger.DrainEvents()
	return sp, nil
}

func (sp *StateProcessor) applyGenesis(opts Options) error {
	for _, v := range opts.Validators {
		if err := sp.ledger.AddValidator(v); err != nil {
			return fmt.Errorf("core: genesis validator %s: %w", v.Address, err)
		}
	}
	owners := make([]string, 0, len(opts.Balances))
	for addr := range opts.Balances {
		owners = append(owners, addr)
	}
	sort.Strings(owners)
	for _, addr := range owners {
		if err := sp.ledger.Mint(addr, opts.Balances[addr]); err != nil {
			return fmt.Errorf("core: genesis balance %s: %w", addr, err)
		}
	}
	return sp.persist(sp.db)
}

func (sp *StateProcessor) now() int64 { return sp.nowFn() }

// SetNowFunc overrides the processor clock.
func (sp *StateProcessor) SetNowFunc(now func() int64) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	sp.nowFn = now
}

// SetEmitter replaces the downstream emitter.
func (sp *StateProcessor) SetEmitter(emitter events.Emitter) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	sp.emitter = emitter
}

// SetPaused toggles the pause flag of module.
func (sp *StateProcessor) SetPaused(module string, paused bool) {
	sp.pauses.Set(module, paused)
	sp.logger.Info("module pause updated", slog.String("module", module), slog.Bool("paused", paused))
}

// IsPaused reports whether module is paused.
func (sp *StateProcessor) IsPaused(module string) bool {
	return sp.pauses.IsPaused(module)
}

// InstantiateVault creates a vault owned by owner at the next derived address.
func (sp *StateProcessor) InstantiateVault(owner string) (string, *vault.Response, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	owner = strings.TrimSpace(owner)
	index := uint64(len(sp.registry[owner]))
	addr := crypto.DeriveVaultAddress(owner, sp.codeID, index).String()

	cache := storage.NewCacheDB(sp.db)
	sp.engine.SetState(vault.NewStore(cache))
	defer sp.engine.SetState(vault.NewStore(sp.db))

	resp, err := sp.engine.Instantiate(addr, vault.Config{Owner: owner, CodeID: sp.codeID, Index: index})
	if err != nil {
		cache.Discard()
		return "", nil, err
	}
	registry := cloneRegistry(sp.registry)
	registry[owner] = append(registry[owner], addr)
	if err := putJSON(cache, registryKey, registry); err != nil {
		cache.Discard()
		return "", nil, err
	}
	if err := cache.Commit(); err != nil {
		return "", nil, err
	}
	sp.registry = registry
	observability.Vault().RecordInstantiation()
	sp.publish(resp.Events, nil)
	sp.logger.Info("vault instantiated", slog.String("vault", addr), slog.String("owner", owner), slog.Uint64("index", index))
	return addr, resp, nil
}

// Execute runs msg against vaultAddr on behalf of sender. Funds move from
// sender to the vault before the engine runs and are returned on failure.
func (sp *StateProcessor) Execute(sender, vaultAddr string, funds types.Coins, msg vault.ExecuteMsg) (*vault.Response, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	start := time.Now()
	action := msg.Action().String()
	resp, err := sp.execute(sender, vaultAddr, funds, msg)
	observability.Vault().ObserveExecution(action, string(vault.Classify(err)), time.Since(start))
	if err != nil {
		sp.logger.Warn("vault execution rejected",
			slog.String("vault", vaultAddr),
			slog.String("sender", sender),
			slog.String("action", action),
			slog.String("outcome", string(vault.Classify(err))),
			slog.Any("error", err))
		return nil, err
	}
	for _, evt := range resp.Events {
		if evt.Type == vault.EventTypeLiquidationCompleted {
			observability.Vault().RecordLiquidation(evt.Attributes["outcome"])
		}
	}
	sp.logger.Info("vault execution committed",
		slog.String("vault", vaultAddr),
		slog.String("sender", sender),
		slog.String("action", action),
		slog.Int("messages", len(resp.Messages)))
	return resp, nil
}

func (sp *StateProcessor) execute(sender, vaultAddr string, funds types.Coins, msg vault.ExecuteMsg) (*vault.Response, error) {
	normalized, err := normalizeFunds(funds)
	if err != nil {
		return nil, err
	}

	snap, err := sp.ledger.Snapshot()
	if err != nil {
		return nil, err
	}
	cache := storage.NewCacheDB(sp.db)
	sp.engine.SetState(vault.NewStore(cache))
	defer sp.engine.SetState(vault.NewStore(sp.db))

	fail := func(cause error) (*vault.Response, error) {
		cache.Discard()
		if err := sp.ledger.Restore(snap); err != nil {
			return nil, fmt.Errorf("core: restore ledger after %v: %w", cause, err)
		}
		return nil, cause
	}

	if len(normalized) > 0 {
		if err := sp.ledger.Send(sender, vaultAddr, normalized); err != nil {
			return fail(err)
		}
	}
	now := sp.now()
	resp, err := sp.engine.Execute(vaultAddr, vault.Info{Sender: sender, Funds: normalized}, msg)
	if err != nil {
		return fail(err)
	}
	for i, m := range resp.Messages {
		err := sp.ledger.Dispatch(vaultAddr, m, now)
		metrics.Ledger().ObserveDispatch(m.Route(), err)
		if err != nil {
			return fail(fmt.Errorf("dispatch %d (%s): %w", i, m.Route(), err))
		}
	}
	if err := sp.persist(cache); err != nil {
		return fail(err)
	}
	if err := cache.Commit(); err != nil {
		return fail(err)
	}
	sp.publish(resp.Events, sp.ledger.DrainEvents())
	return resp, nil
}

// normalizeFunds sorts funds by denom and rejects duplicate, zero or
// unnamed coins.
func normalizeFunds(funds types.Coins) (types.Coins, error) {
	seen := make(map[string]struct{}, len(funds))
	for _, c := range funds {
		if strings.TrimSpace(c.Denom) == "" || c.IsZero() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFunds, c)
		}
		if _, dup := seen[c.Denom]; dup {
			return nil, fmt.Errorf("%w: duplicate denom %s", ErrInvalidFunds, c.Denom)
		}
		seen[c.Denom] = struct{}{}
	}
	return funds.Sorted(), nil
}

// BeginBlock matures unbonding entries and distributes the per-block reward.
func (sp *StateProcessor) BeginBlock(now int64) (BlockInfo, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	snap, err := sp.ledger.Snapshot()
	if err != nil {
		return BlockInfo{}, err
	}
	matured := sp.ledger.MatureUnbonding(now)
	distributed := sp.ledger.AccrueRewards(sp.rewards)
	block := BlockInfo{
		Height:  sp.block.Height + 1,
		Time:    now,
		Matured: len(matured),
		Rewards: distributed.Dec(),
	}
	cache := storage.NewCacheDB(sp.db)
	err = putJSON(cache, blockKey, block)
	if err == nil {
		err = sp.persist(cache)
	}
	if err == nil {
		err = cache.Commit()
	}
	if err != nil {
		cache.Discard()
		if restoreErr := sp.ledger.Restore(snap); restoreErr != nil {
			return BlockInfo{}, fmt.Errorf("core: restore ledger after %v: %w", err, restoreErr)
		}
		return BlockInfo{}, err
	}
	sp.block = block
	sp.publish(nil, sp.ledger.DrainEvents())

	active := 0
	for _, v := range sp.ledger.Validators() {
		if v.Active {
			active++
		}
	}
	metrics.Ledger().SetActiveValidators(active)
	metrics.Ledger().ObserveBlock(block.Matured, sp.ledger.BondDenom(), float64(distributed.Uint64()))
	sp.logger.Debug("block processed",
		slog.Uint64("height", block.Height),
		slog.Int("matured", block.Matured),
		slog.String("rewards", block.Rewards))
	return block, nil
}

// Fund mints coins into addr. Used by development faucets and tests.
func (sp *StateProcessor) Fund(addr string, coins types.Coins) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if err := crypto.ValidateAddress(addr, crypto.AccountPrefix); err != nil {
		return err
	}
	normalized, err := normalizeFunds(coins)
	if err != nil {
		return err
	}
	if err := sp.ledger.Mint(addr, normalized); err != nil {
		return err
	}
	if err := sp.persist(sp.db); err != nil {
		return err
	}
	sp.ledger.DrainEvents()
	return nil
}

// AddValidator registers a validator after genesis.
func (sp *StateProcessor) AddValidator(v staking.Validator) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if err := sp.ledger.AddValidator(v); err != nil {
		return err
	}
	return sp.persist(sp.db)
}

// SetValidatorActive jails or unjails a validator.
func (sp *StateProcessor) SetValidatorActive(addr string, active bool) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if err := sp.ledger.SetValidatorActive(addr, active); err != nil {
		return err
	}
	return sp.persist(sp.db)
}

// Info answers the vault Info query.
func (sp *StateProcessor) Info(vaultAddr string) (*vault.InfoResponse, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.engine.Info(vaultAddr)
}

// Balances returns the free balances of addr.
func (sp *StateProcessor) Balances(addr string) types.Coins {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.ledger.AllBalances(addr)
}

// Delegations returns the delegations, unbonding entries and pending rewards
// of addr.
func (sp *StateProcessor) Delegations(addr string) DelegationsResponse {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return DelegationsResponse{
		Delegations: sp.ledger.Delegations(addr),
		Unbonding:   sp.ledger.Unbondings(addr),
		Rewards:     sp.ledger.PendingRewards(addr),
	}
}

// DelegationsResponse is the Delegations query result.
type DelegationsResponse struct {
	Delegations []staking.Delegation     `json:"delegations"`
	Unbonding   []staking.UnbondingEntry `json:"unbonding"`
	Rewards     []staking.Reward         `json:"rewards"`
}

// ParamsResponse is the Params query result.
type ParamsResponse struct {
	BondDenom       string              `json:"bond_denom"`
	UnbondingPeriod int64               `json:"unbonding_period"`
	CodeID          uint64              `json:"code_id"`
	RewardsPerBlock string              `json:"rewards_per_block"`
	Validators      []staking.Validator `json:"validators"`
	Block           BlockInfo           `json:"block"`
}

// Params returns the chain parameters and validator set.
func (sp *StateProcessor) Params() ParamsResponse {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return ParamsResponse{
		BondDenom:       sp.ledger.BondDenom(),
		UnbondingPeriod: sp.ledger.UnbondingPeriod(),
		CodeID:          sp.codeID,
		RewardsPerBlock: sp.rewards.Dec(),
		Validators:      sp.ledger.Validators(),
		Block:           sp.block,
	}
}

// ListVaults returns the vaults owned by owner in creation order, or every
// vault sorted by address when owner is empty.
func (sp *StateProcessor) ListVaults(owner string) []string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	owner = strings.TrimSpace(owner)
	if owner != "" {
		return append([]string(nil), sp.registry[owner]...)
	}
	var all []string
	for _, vaults := range sp.registry {
		all = append(all, vaults...)
	}
	sort.Strings(all)
	return all
}

// Ledger exposes the underlying staking ledger for read access.
func (sp *StateProcessor) Ledger() *staking.Ledger { return sp.ledger }

func (sp *StateProcessor) publish(engineEvents []*types.Event, ledgerEvents []events.Event) {
	for _, evt := range engineEvents {
		if evt == nil {
			continue
		}
		observability.Events().RecordEvent(evt.Type)
		sp.emitter.Emit(events.Typed{Evt: evt})
	}
	for _, evt := range ledgerEvents {
		observability.Events().RecordEvent(evt.EventType())
		sp.emitter.Emit(evt)
	}
}

func (sp *StateProcessor) persist(db storage.Database) error {
	data, err := sp.ledger.Export()
	if err != nil {
		return err
	}
	return db.Put(ledgerStateKey, data)
}

func (sp *StateProcessor) loadRegistry() error {
	raw, err := sp.db.Get(registryKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	registry := make(map[string][]string)
	if err := json.Unmarshal(raw, &registry); err != nil {
		return fmt.Errorf("core: decode vault registry: %w", err)
	}
	sp.registry = registry
	return nil
}

func (sp *StateProcessor) loadBlock() error {
	raw, err := sp.db.Get(blockKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &sp.block)
}

func cloneRegistry(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in)+1)
	for owner, vaults := range in {
		out[owner] = append([]string(nil), vaults...)
	}
	return out
}

func putJSON(db storage.Database, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.Put(key, data)
}
