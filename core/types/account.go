package types

import "math/big"

// Account tracks the token balances held by a single address. The bank only
// deals in the two configured assets: RING (principal) and KTON (reward).
type Account struct {
	Nonce       uint64   `json:"nonce"`
	BalanceRING *big.Int `json:"balanceRING"`
	BalanceKTON *big.Int `json:"balanceKTON"`
}
