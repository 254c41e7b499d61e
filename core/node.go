package core

import (
	"math/big"
	"sync"
	"time"

	"gringotts/core/events"
	"gringotts/core/state"
	"gringotts/core/types"
	"gringotts/native/bank"
	"gringotts/native/deposit"
	"gringotts/native/registry"
	"gringotts/observability"
)

// Node wires the persisted state, the settings registry, the deposit engine
// and the transfer adapter into a single front door for the RPC layer.
//
// Every mutating call runs under one mutex: at most one ledger mutation is in
// flight at any time, which is the serialization guarantee the engine's
// bookkeeping invariants assume. Registry writes share the same mutex so no
// read ever observes a torn configuration value.
type Node struct {
	mu sync.Mutex

	state    *state.Manager
	registry *registry.Registry
	engine   *deposit.Engine
	adapter  *bank.Adapter
}

// NewNode assembles a node over the supplied state manager. The admin address
// is the deployment identity allowed to mutate the registry.
func NewNode(manager *state.Manager, admin [20]byte) *Node {
	reg := registry.NewRegistry(manager, admin)
	engine := deposit.NewEngine()
	engine.SetState(manager)
	engine.SetAuthority(manager)
	engine.SetSettings(reg)
	return &Node{
		state:    manager,
		registry: reg,
		engine:   engine,
		adapter:  bank.NewAdapter(engine, reg),
	}
}

// SetEmitter routes ledger events to the supplied emitter.
func (n *Node) SetEmitter(emitter events.Emitter) { n.engine.SetEmitter(emitter) }

// SetNowFunc overrides the ledger clock. Intended for tests.
func (n *Node) SetNowFunc(now func() int64) { n.engine.SetNowFunc(now) }

func (n *Node) observe(op string, start time.Time, err error) {
	observability.BankMetrics().Observe(op, err, start)
}

// --- Transfer hooks ---

// NotifyTransfer ingests an inbound transfer-with-payload from one of the
// configured token contracts and applies the resulting ledger operation.
func (n *Node) NotifyTransfer(token, from [20]byte, amount *big.Int, payload []byte) (*deposit.Deposit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	record, err := n.adapter.NotifyTransfer(token, from, amount, payload)
	n.observe("notify_transfer", start, err)
	return record, err
}

// --- Owner operations ---

// ClaimDeposit settles a matured deposit for its current owner.
func (n *Node) ClaimDeposit(caller [20]byte, id uint64) (*deposit.Deposit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	record, err := n.engine.Claim(caller, id)
	n.observe("claim", start, err)
	return record, err
}

// TransferDeposit moves ownership of an open deposit.
func (n *Node) TransferDeposit(caller, newOwner [20]byte, id uint64) (*deposit.Deposit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	record, err := n.engine.Transfer(caller, newOwner, id)
	n.observe("transfer", start, err)
	return record, err
}

// --- Privileged operations ---

// CarryOverDeposit re-registers a deposit migrated from a predecessor ledger.
func (n *Node) CarryOverDeposit(caller [20]byte, id uint64, owner [20]byte, months uint64, startAt int64, unitRate, principal *big.Int) (*deposit.Deposit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	record, err := n.engine.CarryOver(caller, id, owner, months, startAt, unitRate, principal)
	n.observe("carry_over", start, err)
	return record, err
}

// MintRING provisions principal balance for development networks.
func (n *Node) MintRING(caller, to [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if caller != n.registry.Admin() {
		return registry.ErrUnauthorized
	}
	start := time.Now()
	err := n.state.MintRING(to, amount)
	n.observe("mint_ring", start, err)
	return err
}

// RegistrySetUint writes an unsigned integer configuration entry.
func (n *Node) RegistrySetUint(caller [20]byte, id registry.PropertyID, value *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	err := n.registry.SetUint(caller, id, value)
	n.observe("registry_set", start, err)
	return err
}

// RegistrySetAddress writes an address configuration entry.
func (n *Node) RegistrySetAddress(caller [20]byte, id registry.PropertyID, value [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	err := n.registry.SetAddress(caller, id, value)
	n.observe("registry_set", start, err)
	return err
}

// RegistrySetBool writes a boolean configuration entry.
func (n *Node) RegistrySetBool(caller [20]byte, id registry.PropertyID, value bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	err := n.registry.SetBool(caller, id, value)
	n.observe("registry_set", start, err)
	return err
}

// --- Queries ---

// GetDeposit returns the full deposit record for id.
func (n *Node) GetDeposit(id uint64) (*deposit.Deposit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Get(id)
}

// UserTotalDeposit returns the owner's aggregate unclaimed principal.
func (n *Node) UserTotalDeposit(owner [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.UserTotal(owner)
}

// DepositsOf returns the owner's deposit history in insertion order.
func (n *Node) DepositsOf(owner [20]byte) ([]*deposit.Deposit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.DepositsOf(owner)
}

// ComputePenalty quotes the reward payment required to settle id early.
func (n *Node) ComputePenalty(id uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Penalty(id)
}

// GetAccount returns the token balances held by addr.
func (n *Node) GetAccount(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr)
}

// RegistryUintOf reads an unsigned integer configuration entry.
func (n *Node) RegistryUintOf(id registry.PropertyID) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.UintOf(id)
}

// RegistryAddressOf reads an address configuration entry.
func (n *Node) RegistryAddressOf(id registry.PropertyID) ([20]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.AddressOf(id)
}

// RegistryBoolOf reads a boolean configuration entry.
func (n *Node) RegistryBoolOf(id registry.PropertyID) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.BoolOf(id)
}

// Admin returns the deployment administrator identity.
func (n *Node) Admin() [20]byte { return n.registry.Admin() }
