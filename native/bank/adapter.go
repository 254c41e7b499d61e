package bank

import (
	"encoding/binary"
	"errors"
	"math/big"

	"gringotts/native/deposit"
	"gringotts/native/registry"
)

// Payloads ride along ERC223-style transfers as a single big-endian unsigned
// integer: the lock-up duration on a principal transfer, the deposit id on a
// reward transfer. Anything outside 1..8 bytes is rejected outright; an
// implicit default duration would silently mis-book funds.
const maxPayloadBytes = 8

var (
	ErrMalformedPayload = errors.New("bank: malformed transfer payload")
	ErrUnknownToken     = errors.New("bank: transfer from unknown token contract")

	errNilLedger   = errors.New("bank: ledger not configured")
	errNilSettings = errors.New("bank: settings not configured")
)

// Ledger is the slice of the deposit engine the adapter drives.
type Ledger interface {
	Open(owner [20]byte, principal *big.Int, months uint64) (*deposit.Deposit, error)
	PenaltyWithdraw(caller [20]byte, id uint64, payment *big.Int) (*deposit.Deposit, error)
}

// Adapter translates inbound transfer-with-payload notifications from the
// principal and reward token contracts into deposit ledger operations.
type Adapter struct {
	ledger   Ledger
	settings deposit.Settings
}

// NewAdapter wires the adapter against the deposit ledger and the registry
// view used to resolve the token contract addresses.
func NewAdapter(ledger Ledger, settings deposit.Settings) *Adapter {
	return &Adapter{ledger: ledger, settings: settings}
}

// DecodePayloadUint parses the big-endian unsigned integer carried in a
// transfer payload.
func DecodePayloadUint(payload []byte) (uint64, error) {
	if len(payload) == 0 || len(payload) > maxPayloadBytes {
		return 0, ErrMalformedPayload
	}
	buf := make([]byte, maxPayloadBytes)
	copy(buf[maxPayloadBytes-len(payload):], payload)
	return binary.BigEndian.Uint64(buf), nil
}

// NotifyTransfer handles a transfer arriving from the token contract at the
// given address. RING transfers open a deposit for the sender using the
// payload as the duration in months; KTON transfers pay the early withdrawal
// penalty for the deposit referenced by the payload. A malformed payload
// fails the whole transfer.
func (a *Adapter) NotifyTransfer(token, from [20]byte, amount *big.Int, payload []byte) (*deposit.Deposit, error) {
	if a == nil || a.ledger == nil {
		return nil, errNilLedger
	}
	if a.settings == nil {
		return nil, errNilSettings
	}
	value, err := DecodePayloadUint(payload)
	if err != nil {
		return nil, err
	}
	principalToken, err := a.settings.AddressOf(registry.PropPrincipalToken)
	if err != nil {
		return nil, err
	}
	rewardToken, err := a.settings.AddressOf(registry.PropRewardToken)
	if err != nil {
		return nil, err
	}
	switch {
	case token != ([20]byte{}) && token == principalToken:
		return a.ledger.Open(from, amount, value)
	case token != ([20]byte{}) && token == rewardToken:
		return a.ledger.PenaltyWithdraw(from, value, amount)
	default:
		return nil, ErrUnknownToken
	}
}
