package vault

import (
	"fmt"
	"time"

	"stakevault/core/types"
	"stakevault/crypto"
	nativecommon "stakevault/native/common"
)

// ModuleName is the pause-guard key of the vault module.
const ModuleName = "vault"

type engineState interface {
	VaultConfig(vault string) (*Config, bool, error)
	PutVaultConfig(vault string, cfg *Config) error
	ActiveOption(vault string) (*ActiveOption, bool, error)
	PutActiveOption(vault string, option *ActiveOption) error
	DeleteActiveOption(vault string) error
}

// Info carries the authenticated caller and the funds attached to the call.
// The host moves Funds into the vault's free balance before Execute runs.
type Info struct {
	Sender string
	Funds  types.Coins
}

// Engine runs the vault liquidity request lifecycle. Each call handles one
// message against one vault instance; persistence and ledger instructions are
// applied by the host all-or-nothing.
type Engine struct {
	state   engineState
	gateway Gateway
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewEngine creates an engine reading the wall clock.
func NewEngine() *Engine {
	return &Engine{nowFn: func() int64 { return time.Now().Unix() }}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetGateway configures the ledger view.
func (e *Engine) SetGateway(gateway Gateway) { e.gateway = gateway }

// SetPauses configures the pause view consulted before every mutation.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.gateway == nil {
		return errNilGateway
	}
	return nil
}

// Instantiate creates the vault configuration at address vault.
func (e *Engine) Instantiate(vault string, cfg Config) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if err := crypto.ValidateAddress(cfg.Owner, crypto.AccountPrefix); err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAddress, err)
	}
	if _, exists, err := e.state.VaultConfig(vault); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: %s", ErrVaultExists, vault)
	}
	if err := e.state.PutVaultConfig(vault, &cfg); err != nil {
		return nil, err
	}
	resp := &Response{}
	resp.addEvent(newInstantiatedEvent(vault, &cfg))
	return resp, nil
}

// Execute authorizes and runs msg against vault.
func (e *Engine) Execute(vault string, info Info, msg ExecuteMsg) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	action := msg.Action()
	if action == 0 {
		return nil, ErrInvalidMessage
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	cfg, ok, err := e.state.VaultConfig(vault)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, vault)
	}
	option, _, err := e.state.ActiveOption(vault)
	if err != nil {
		return nil, err
	}
	if err := Authorize(cfg, option, info.Sender, action); err != nil {
		return nil, err
	}

	x := &execution{
		engine: e,
		vault:  vault,
		info:   info,
		cfg:    cfg,
		option: option,
		gw:     delegationGateway{view: e.gateway, vault: vault},
		now:    e.now(),
		resp:   &Response{},
	}
	switch {
	case msg.Delegate != nil:
		err = x.delegate(msg.Delegate)
	case msg.Redelegate != nil:
		err = x.redelegate(msg.Redelegate)
	case msg.Undelegate != nil:
		err = x.undelegate(msg.Undelegate)
	case msg.OpenLiquidityRequest != nil:
		err = x.openLiquidityRequest(msg.OpenLiquidityRequest)
	case msg.CloseLiquidityRequest != nil:
		err = x.closeLiquidityRequest()
	case msg.AcceptLiquidityRequest != nil:
		err = x.acceptLiquidityRequest()
	case msg.ClaimDelegatorRewards != nil:
		err = x.claimDelegatorRewards()
	case msg.RepayLoan != nil:
		err = x.repayLoan()
	case msg.LiquidateCollateral != nil:
		err = x.liquidateCollateral()
	case msg.Vote != nil:
		err = x.vote(msg.Vote)
	case msg.TransferOwnership != nil:
		err = x.transferOwnership(msg.TransferOwnership)
	case msg.WithdrawBalance != nil:
		err = x.withdrawBalance(msg.WithdrawBalance)
	}
	if err != nil {
		return nil, err
	}
	return x.resp, nil
}

// Info answers the Info query for vault.
func (e *Engine) Info(vault string) (*InfoResponse, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.VaultConfig(vault)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, vault)
	}
	option, _, err := e.state.ActiveOption(vault)
	if err != nil {
		return nil, err
	}
	return &InfoResponse{Config: *cfg, LiquidityRequest: option}, nil
}

// execution is the per-call context every handler runs in.
type execution struct {
	engine *Engine
	vault  string
	info   Info
	cfg    *Config
	option *ActiveOption
	gw     delegationGateway
	now    int64
	resp   *Response
}

func (x *execution) saveOption() error {
	return x.engine.state.PutActiveOption(x.vault, x.option)
}

func (x *execution) clearOption() error {
	if err := x.engine.state.DeleteActiveOption(x.vault); err != nil {
		return err
	}
	x.option = nil
	return nil
}

func (x *execution) emit(evt *types.Event) {
	x.resp.addEvent(evt.With("vault", x.vault))
}
