package deposit

import (
	"encoding/hex"
	"strconv"

	"gringotts/core/types"
)

const (
	EventTypeDepositCreated     = "deposit.created"
	EventTypeDepositClaimed     = "deposit.claimed"
	EventTypeDepositTransferred = "deposit.transferred"
	EventTypeDepositPenalty     = "deposit.penalty_withdrawn"
	EventTypeDepositCarriedOver = "deposit.carried_over"
)

// NewCreatedEvent returns the canonical event payload for a newly opened
// deposit.
func NewCreatedEvent(d *Deposit, interest string) *types.Event {
	evt := newDepositEvent(EventTypeDepositCreated, d)
	if interest != "" {
		evt.Attributes["interest"] = interest
	}
	return evt
}

// NewClaimedEvent returns the canonical event payload emitted when a deposit
// is claimed at maturity.
func NewClaimedEvent(d *Deposit) *types.Event {
	return newDepositEvent(EventTypeDepositClaimed, d)
}

// NewTransferredEvent returns the canonical event payload emitted when deposit
// ownership moves to a new holder.
func NewTransferredEvent(d *Deposit, previous [20]byte) *types.Event {
	evt := newDepositEvent(EventTypeDepositTransferred, d)
	evt.Attributes["previousOwner"] = hex.EncodeToString(previous[:])
	return evt
}

// NewPenaltyEvent returns the canonical event payload emitted when a deposit
// is settled early against a penalty payment.
func NewPenaltyEvent(d *Deposit, payment string) *types.Event {
	evt := newDepositEvent(EventTypeDepositPenalty, d)
	if payment != "" {
		evt.Attributes["payment"] = payment
	}
	return evt
}

// NewCarriedOverEvent returns the canonical event payload emitted when a
// historical deposit is re-registered from a predecessor ledger.
func NewCarriedOverEvent(d *Deposit) *types.Event {
	return newDepositEvent(EventTypeDepositCarriedOver, d)
}

func newDepositEvent(eventType string, d *Deposit) *types.Event {
	attrs := make(map[string]string)
	if d == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	record := d.Clone()
	attrs["id"] = strconv.FormatUint(record.ID, 10)
	attrs["owner"] = hex.EncodeToString(record.Owner[:])
	attrs["principal"] = record.Principal.String()
	attrs["months"] = strconv.FormatUint(record.Months, 10)
	attrs["startAt"] = strconv.FormatInt(record.StartAt, 10)
	attrs["unitInterest"] = record.UnitInterest.String()
	attrs["claimed"] = strconv.FormatBool(record.Claimed)
	return &types.Event{Type: eventType, Attributes: attrs}
}
