package deposit

import (
	"fmt"
	"math/big"
	"strings"
)

// Token symbols handled by the bank. RING is the deposited principal, KTON the
// reward credited as interest and forfeited as penalty.
const (
	TokenRING = "RING"
	TokenKTON = "KTON"
)

// PeriodSeconds is the wall-clock length of one schedule period (a month on
// the deposit schedule).
const PeriodSeconds int64 = 30 * 24 * 60 * 60

// Deposit is a single time-locked principal position. The unit interest rate
// is snapshotted at creation so later registry changes never alter an open
// deposit. Once Claimed flips to true the record is retained forever as an
// immutable audit entry.
type Deposit struct {
	ID           uint64
	Owner        [20]byte
	Principal    *big.Int
	Months       uint64
	StartAt      int64
	UnitInterest *big.Int
	Claimed      bool
}

// Clone returns a deep copy of the deposit so callers can safely mutate the
// copy without affecting the stored instance.
func (d *Deposit) Clone() *Deposit {
	if d == nil {
		return nil
	}
	clone := *d
	if d.Principal != nil {
		clone.Principal = new(big.Int).Set(d.Principal)
	} else {
		clone.Principal = big.NewInt(0)
	}
	if d.UnitInterest != nil {
		clone.UnitInterest = new(big.Int).Set(d.UnitInterest)
	} else {
		clone.UnitInterest = big.NewInt(0)
	}
	return &clone
}

// MaturesAt returns the unix timestamp at which the deposit can be claimed
// without penalty.
func (d *Deposit) MaturesAt() int64 {
	if d == nil {
		return 0
	}
	return d.StartAt + int64(d.Months)*PeriodSeconds
}

// SanitizeDeposit validates the supplied record and returns a cloned instance
// with non-nil amount fields. The original value is not mutated.
func SanitizeDeposit(d *Deposit) (*Deposit, error) {
	if d == nil {
		return nil, fmt.Errorf("deposit: nil record")
	}
	clone := d.Clone()
	if clone.ID == 0 {
		return nil, fmt.Errorf("deposit: id must be assigned")
	}
	if clone.Owner == ([20]byte{}) {
		return nil, ErrInvalidRecipient
	}
	if clone.Principal.Sign() <= 0 {
		return nil, ErrInvalidPrincipal
	}
	if clone.Months > MaxMonths {
		return nil, ErrUnsupportedDuration
	}
	if clone.UnitInterest.Sign() < 0 {
		return nil, fmt.Errorf("deposit: negative unit interest")
	}
	return clone, nil
}

// NormalizeToken ensures the provided token symbol matches a supported value
// and returns the canonical uppercase form.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	switch trimmed {
	case TokenRING, TokenKTON:
		return trimmed, nil
	default:
		return "", fmt.Errorf("unsupported bank token: %s", symbol)
	}
}
