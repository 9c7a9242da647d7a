package vaultrpc

import (
	"stakevault/core"
	"stakevault/core/types"
	"stakevault/native/vault"
)

type InstantiateRequest struct{}

type InstantiateResponse struct {
	Vault  string         `json:"vault"`
	Events []*types.Event `json:"events"`
}

type ExecuteRequest struct {
	Vault string           `json:"vault"`
	Funds types.Coins      `json:"funds,omitempty"`
	Msg   vault.ExecuteMsg `json:"msg"`
}

type ExecuteResponse struct {
	Messages []types.Msg    `json:"messages"`
	Events   []*types.Event `json:"events"`
}

type InfoRequest struct {
	Vault string `json:"vault"`
}

type InfoResponse = vault.InfoResponse

type ListVaultsRequest struct {
	Owner string `json:"owner,omitempty"`
}

type ListVaultsResponse struct {
	Vaults []string `json:"vaults"`
}

type BalancesRequest struct {
	Address string `json:"address"`
}

type BalancesResponse struct {
	Balances types.Coins `json:"balances"`
}

type DelegationsRequest struct {
	Address string `json:"address"`
}

type DelegationsResponse = core.DelegationsResponse

type ParamsRequest struct{}

type ParamsResponse = core.ParamsResponse

type FundRequest struct {
	Address string      `json:"address"`
	Coins   types.Coins `json:"coins"`
}

type FundResponse struct {
	Balances types.Coins `json:"balances"`
}
