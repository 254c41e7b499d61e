package deposit

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"gringotts/core/events"
	"gringotts/core/types"
	"gringotts/native/registry"
)

var (
	errNilState     = errors.New("deposit engine: state not configured")
	errNilAuthority = errors.New("deposit engine: token authority not configured")
	errNilSettings  = errors.New("deposit engine: settings not configured")
)

// engineState is the slice of ledger storage the engine mutates. The concrete
// implementation lives in core/state; tests supply an in-memory double.
type engineState interface {
	DepositPut(*Deposit) error
	DepositGet(id uint64) (*Deposit, bool)
	// DepositDelete removes a record. Claimed deposits are immutable history
	// and are never deleted; this exists solely so a failed multi-step
	// creation can be rolled back cleanly.
	DepositDelete(id uint64) error
	// DepositNextID allocates and returns the next sequential id.
	DepositNextID() (uint64, error)
	// DepositSetNextID rewinds or advances the id sequence. Used to roll
	// back a failed allocation and to reserve carried-over ids.
	DepositSetNextID(next uint64) error
	DepositIndexAppend(owner [20]byte, id uint64) error
	DepositIndex(owner [20]byte) ([]uint64, error)
	DepositTotal(owner [20]byte) (*big.Int, error)
	DepositSetTotal(owner [20]byte, total *big.Int) error
}

// Authority is the external mint/burn capability the bank delegates asset
// movement to. Crediting RING pays principal out of the bank vault, debiting
// RING locks principal into it; crediting KTON mints reward, debiting KTON
// burns it. The engine never moves value by any other means.
type Authority interface {
	Credit(token string, to [20]byte, amount *big.Int) error
	Debit(token string, from [20]byte, amount *big.Int) error
}

// Settings exposes the registry reads the engine depends on. Satisfied by
// *registry.Registry.
type Settings interface {
	UintOf(id registry.PropertyID) (*big.Int, error)
	AddressOf(id registry.PropertyID) ([20]byte, error)
	BoolOf(id registry.PropertyID) (bool, error)
}

type depositEvent struct {
	evt *types.Event
}

func (e depositEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e depositEvent) Event() *types.Event { return e.evt }

// Engine owns the deposit ledger: records, per-owner indices and the
// open → claimed lifecycle. All mutating operations validate every
// precondition before touching state and roll back partial effects, so a
// failed call leaves the ledger untouched.
type Engine struct {
	state     engineState
	authority Authority
	settings  Settings
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine creates a deposit engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAuthority configures the token mint/burn capability.
func (e *Engine) SetAuthority(authority Authority) { e.authority = authority }

// SetSettings configures the registry view used for rate lookups.
func (e *Engine) SetSettings(settings Settings) { e.settings = settings }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(depositEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.authority == nil:
		return errNilAuthority
	case e.settings == nil:
		return errNilSettings
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadDeposit(id uint64) (*Deposit, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok := e.state.DepositGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

func (e *Engine) adjustTotal(owner [20]byte, delta *big.Int) (rollback func(), err error) {
	current, err := e.state.DepositTotal(owner)
	if err != nil {
		return nil, err
	}
	previous := cloneBigInt(current)
	next := new(big.Int).Add(previous, delta)
	if next.Sign() < 0 {
		return nil, fmt.Errorf("deposit: owner total underflow")
	}
	if err := e.state.DepositSetTotal(owner, next); err != nil {
		return nil, err
	}
	return func() { _ = e.state.DepositSetTotal(owner, previous) }, nil
}

// Open creates a new deposit for owner, locking principal for the given
// number of months. The current unit interest rate is snapshotted into the
// record, principal moves into the bank vault and the full-term reward is
// minted to the owner immediately.
func (e *Engine) Open(owner [20]byte, principal *big.Int, months uint64) (*Deposit, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if owner == ([20]byte{}) {
		return nil, ErrInvalidRecipient
	}
	if principal == nil || principal.Sign() <= 0 {
		return nil, ErrInvalidPrincipal
	}
	if months > MaxMonths {
		return nil, ErrUnsupportedDuration
	}
	paused, err := e.settings.BoolOf(registry.PropDepositsPaused)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, ErrDepositsPaused
	}
	unitRate, err := e.settings.UintOf(registry.PropUnitInterest)
	if err != nil {
		return nil, err
	}
	amount := cloneBigInt(principal)
	interest, err := ComputeInterest(amount, months, unitRate)
	if err != nil {
		return nil, err
	}

	id, err := e.state.DepositNextID()
	if err != nil {
		return nil, err
	}
	rollbacks := []func(){func() { _ = e.state.DepositSetNextID(id) }}
	revert := func() {
		for i := len(rollbacks) - 1; i >= 0; i-- {
			rollbacks[i]()
		}
	}

	if err := e.authority.Debit(TokenRING, owner, amount); err != nil {
		revert()
		return nil, err
	}
	rollbacks = append(rollbacks, func() { _ = e.authority.Credit(TokenRING, owner, amount) })

	record := &Deposit{
		ID:           id,
		Owner:        owner,
		Principal:    amount,
		Months:       months,
		StartAt:      e.now(),
		UnitInterest: cloneBigInt(unitRate),
		Claimed:      false,
	}
	if err := e.state.DepositPut(record); err != nil {
		revert()
		return nil, err
	}
	rollbacks = append(rollbacks, func() { _ = e.state.DepositDelete(id) })
	if err := e.state.DepositIndexAppend(owner, id); err != nil {
		revert()
		return nil, err
	}
	totalRollback, err := e.adjustTotal(owner, amount)
	if err != nil {
		revert()
		return nil, err
	}
	rollbacks = append(rollbacks, totalRollback)

	if interest.Sign() > 0 {
		if err := e.authority.Credit(TokenKTON, owner, interest); err != nil {
			revert()
			return nil, err
		}
	}
	e.emit(NewCreatedEvent(record, interest.String()))
	return record.Clone(), nil
}

// Claim settles a matured deposit, returning the locked principal to the
// current owner.
func (e *Engine) Claim(caller [20]byte, id uint64) (*Deposit, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	record, err := e.loadDeposit(id)
	if err != nil {
		return nil, err
	}
	if record.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if record.Owner != caller {
		return nil, ErrNotOwner
	}
	if e.now() < record.MaturesAt() {
		return nil, ErrNotYetMatured
	}
	return e.settle(record, nil)
}

// PenaltyWithdraw settles an unclaimed deposit early. The submitted reward
// payment must cover the penalty and is burned in full; the principal returns
// to the owner immediately.
func (e *Engine) PenaltyWithdraw(caller [20]byte, id uint64, payment *big.Int) (*Deposit, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	record, err := e.loadDeposit(id)
	if err != nil {
		return nil, err
	}
	if record.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if record.Owner != caller {
		return nil, ErrNotOwner
	}
	multiplier, err := e.settings.UintOf(registry.PropPenaltyMultiplier)
	if err != nil {
		return nil, err
	}
	penalty, err := ComputePenalty(record, multiplier)
	if err != nil {
		return nil, err
	}
	amount := cloneBigInt(payment)
	if amount.Cmp(penalty) < 0 {
		return nil, ErrInsufficientPenalty
	}
	return e.settle(record, amount)
}

// settle marks the deposit claimed, releases its principal from the vault and
// adjusts the owner total. A non-nil penalty payment is burned first. Partial
// effects are rolled back on any failure so a deposit is never left claimed
// without the matching asset movement.
func (e *Engine) settle(record *Deposit, penaltyPayment *big.Int) (*Deposit, error) {
	rollbacks := make([]func(), 0, 3)
	revert := func() {
		for i := len(rollbacks) - 1; i >= 0; i-- {
			rollbacks[i]()
		}
	}
	owner := record.Owner
	if penaltyPayment != nil {
		payment := cloneBigInt(penaltyPayment)
		if err := e.authority.Debit(TokenKTON, owner, payment); err != nil {
			return nil, err
		}
		rollbacks = append(rollbacks, func() { _ = e.authority.Credit(TokenKTON, owner, payment) })
	}
	principal := cloneBigInt(record.Principal)
	if err := e.authority.Credit(TokenRING, owner, principal); err != nil {
		revert()
		return nil, err
	}
	rollbacks = append(rollbacks, func() { _ = e.authority.Debit(TokenRING, owner, principal) })

	updated := record.Clone()
	updated.Claimed = true
	if err := e.state.DepositPut(updated); err != nil {
		revert()
		return nil, err
	}
	rollbacks = append(rollbacks, func() { _ = e.state.DepositPut(record) })

	if _, err := e.adjustTotal(owner, new(big.Int).Neg(principal)); err != nil {
		revert()
		return nil, err
	}
	if penaltyPayment != nil {
		e.emit(NewPenaltyEvent(updated, penaltyPayment.String()))
	} else {
		e.emit(NewClaimedEvent(updated))
	}
	return updated.Clone(), nil
}

// Transfer moves ownership of an open deposit to newOwner. The id is appended
// to the new owner's index while remaining discoverable in the previous
// owner's history; the locked principal moves between the owners' totals.
func (e *Engine) Transfer(caller, newOwner [20]byte, id uint64) (*Deposit, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if newOwner == ([20]byte{}) || newOwner == caller {
		return nil, ErrInvalidRecipient
	}
	record, err := e.loadDeposit(id)
	if err != nil {
		return nil, err
	}
	if record.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if record.Owner != caller {
		return nil, ErrNotOwner
	}

	rollbacks := make([]func(), 0, 3)
	revert := func() {
		for i := len(rollbacks) - 1; i >= 0; i-- {
			rollbacks[i]()
		}
	}
	updated := record.Clone()
	updated.Owner = newOwner
	if err := e.state.DepositPut(updated); err != nil {
		return nil, err
	}
	rollbacks = append(rollbacks, func() { _ = e.state.DepositPut(record) })

	if err := e.state.DepositIndexAppend(newOwner, id); err != nil {
		revert()
		return nil, err
	}
	principal := cloneBigInt(record.Principal)
	outRollback, err := e.adjustTotal(caller, new(big.Int).Neg(principal))
	if err != nil {
		revert()
		return nil, err
	}
	rollbacks = append(rollbacks, outRollback)
	if _, err := e.adjustTotal(newOwner, principal); err != nil {
		revert()
		return nil, err
	}
	e.emit(NewTransferredEvent(updated, caller))
	return updated.Clone(), nil
}

// CarryOver re-registers a deposit migrated from a predecessor ledger. The
// record keeps its historical fields and is marked claimed from creation: the
// prior instance already accounted for and paid out the principal, so the
// owner's open total must not change. Restricted to the bank administrator.
func (e *Engine) CarryOver(caller [20]byte, id uint64, owner [20]byte, months uint64, startAt int64, unitRate, principal *big.Int) (*Deposit, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	admin, err := e.settings.AddressOf(registry.PropBankAdmin)
	if err != nil {
		return nil, err
	}
	if admin == ([20]byte{}) || caller != admin {
		return nil, ErrUnauthorized
	}
	record, err := SanitizeDeposit(&Deposit{
		ID:           id,
		Owner:        owner,
		Principal:    cloneBigInt(principal),
		Months:       months,
		StartAt:      startAt,
		UnitInterest: cloneBigInt(unitRate),
		Claimed:      true,
	})
	if err != nil {
		return nil, err
	}
	if _, exists := e.state.DepositGet(id); exists {
		return nil, ErrDuplicateDeposit
	}

	// Reserve the id range before the record is persisted so freshly opened
	// deposits never collide with migrated history. DepositNextID allocates,
	// so a failure below restores the sequence along with the record state.
	next, err := e.state.DepositNextID()
	if err != nil {
		return nil, err
	}
	reserved := next
	if id >= next {
		reserved = id + 1
	}
	if err := e.state.DepositSetNextID(reserved); err != nil {
		return nil, err
	}
	if err := e.state.DepositPut(record); err != nil {
		_ = e.state.DepositSetNextID(next)
		return nil, err
	}
	if err := e.state.DepositIndexAppend(owner, id); err != nil {
		_ = e.state.DepositDelete(id)
		_ = e.state.DepositSetNextID(next)
		return nil, err
	}
	e.emit(NewCarriedOverEvent(record))
	return record.Clone(), nil
}

// Get returns a copy of the deposit record. Unknown ids fail with ErrNotFound;
// a silently zeroed record would be indistinguishable from real data.
func (e *Engine) Get(id uint64) (*Deposit, error) {
	record, err := e.loadDeposit(id)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// UserTotal returns the aggregate principal across the owner's currently
// unclaimed deposits. The value is maintained incrementally by every mutation
// rather than recomputed from the records.
func (e *Engine) UserTotal(owner [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	total, err := e.state.DepositTotal(owner)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(total), nil
}

// DepositsOf returns the owner's deposit history in insertion order,
// including records that have since been claimed or transferred away.
func (e *Engine) DepositsOf(owner [20]byte) ([]*Deposit, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.DepositIndex(owner)
	if err != nil {
		return nil, err
	}
	records := make([]*Deposit, 0, len(ids))
	for _, id := range ids {
		record, ok := e.state.DepositGet(id)
		if !ok {
			return nil, fmt.Errorf("deposit: index references missing id %d", id)
		}
		records = append(records, record.Clone())
	}
	return records, nil
}

// Penalty quotes the reward payment required to settle the deposit early at
// the currently configured penalty multiplier.
func (e *Engine) Penalty(id uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	record, err := e.loadDeposit(id)
	if err != nil {
		return nil, err
	}
	multiplier, err := e.settings.UintOf(registry.PropPenaltyMultiplier)
	if err != nil {
		return nil, err
	}
	return ComputePenalty(record, multiplier)
}
