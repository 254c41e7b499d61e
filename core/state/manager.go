package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"gringotts/core/types"
	"gringotts/native/deposit"
	"gringotts/native/registry"
	"gringotts/storage"
)

// ErrInsufficientBalance is returned when a token movement would drive a
// balance negative.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

var (
	accountPrefix      = []byte("account:")
	depositPrefix      = []byte("deposit:")
	depositIndexPrefix = []byte("deposit-index:")
	depositTotalPrefix = []byte("deposit-total:")
	registryPrefix     = []byte("registry:")
	depositSeqKey      = ethcrypto.Keccak256([]byte("deposit-seq"))
	ktonSupplyKey      = ethcrypto.Keccak256([]byte("kton-supply"))
)

// vaultAddress is the synthetic account holding all locked principal. It has
// no key; value only leaves it through the deposit engine.
var vaultAddress = func() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("gringotts/bank-vault"))[12:])
	return addr
}()

// VaultAddress returns the synthetic account the bank locks principal in.
func VaultAddress() [20]byte { return vaultAddress }

// Manager owns the persisted ledger layout: token accounts, deposit records,
// per-owner indices and totals, registry entries and the monotonic deposit id
// sequence. All records are RLP encoded under keccak-derived keys. It
// implements the deposit engine's state interface, the registry's store
// interface and the token authority capability.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func prefixedKey(prefix, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return ethcrypto.Keccak256(buf)
}

func accountKey(addr [20]byte) []byte { return prefixedKey(accountPrefix, addr[:]) }

func depositKey(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return prefixedKey(depositPrefix, buf)
}

func depositIndexKey(owner [20]byte) []byte { return prefixedKey(depositIndexPrefix, owner[:]) }

func depositTotalKey(owner [20]byte) []byte { return prefixedKey(depositTotalPrefix, owner[:]) }

func registryKey(kind registry.Kind, id registry.PropertyID) []byte {
	buf := make([]byte, len(registryPrefix)+1+4)
	copy(buf, registryPrefix)
	buf[len(registryPrefix)] = byte(kind)
	binary.BigEndian.PutUint32(buf[len(registryPrefix)+1:], uint32(id))
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) loadBigInt(key []byte) (*big.Int, error) {
	data, err := m.db.Get(key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(data), nil
}

func (m *Manager) writeBigInt(key []byte, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("state: refusing to store negative value")
	}
	return m.db.Put(key, v.Bytes())
}

// --- Accounts ---

type storedAccount struct {
	Nonce       uint64
	BalanceRING *big.Int
	BalanceKTON *big.Int
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{BalanceRING: big.NewInt(0), BalanceKTON: big.NewInt(0)}
	}
	if acc.BalanceRING == nil {
		acc.BalanceRING = big.NewInt(0)
	}
	if acc.BalanceKTON == nil {
		acc.BalanceKTON = big.NewInt(0)
	}
	return acc
}

// GetAccount loads the token account for addr, returning a zeroed account for
// addresses never seen before.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	data, err := m.db.Get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return ensureAccount(nil), nil
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return ensureAccount(&types.Account{
		Nonce:       stored.Nonce,
		BalanceRING: stored.BalanceRING,
		BalanceKTON: stored.BalanceKTON,
	}), nil
}

// PutAccount persists the token account for addr.
func (m *Manager) PutAccount(addr [20]byte, acc *types.Account) error {
	acc = ensureAccount(acc)
	encoded, err := rlp.EncodeToBytes(&storedAccount{
		Nonce:       acc.Nonce,
		BalanceRING: acc.BalanceRING,
		BalanceKTON: acc.BalanceKTON,
	})
	if err != nil {
		return err
	}
	return m.db.Put(accountKey(addr), encoded)
}

// --- Deposits ---

type storedDeposit struct {
	ID           uint64
	Owner        [20]byte
	Principal    *big.Int
	Months       uint64
	StartAt      *big.Int
	UnitInterest *big.Int
	Claimed      bool
}

// DepositPut persists the deposit record keyed by its sequential id.
func (m *Manager) DepositPut(d *deposit.Deposit) error {
	record, err := deposit.SanitizeDeposit(d)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(&storedDeposit{
		ID:           record.ID,
		Owner:        record.Owner,
		Principal:    record.Principal,
		Months:       record.Months,
		StartAt:      big.NewInt(record.StartAt),
		UnitInterest: record.UnitInterest,
		Claimed:      record.Claimed,
	})
	if err != nil {
		return err
	}
	return m.db.Put(depositKey(record.ID), encoded)
}

// DepositGet loads the deposit record for id.
func (m *Manager) DepositGet(id uint64) (*deposit.Deposit, bool) {
	data, err := m.db.Get(depositKey(id))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	stored := new(storedDeposit)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	record := &deposit.Deposit{
		ID:           stored.ID,
		Owner:        stored.Owner,
		Principal:    stored.Principal,
		Months:       stored.Months,
		UnitInterest: stored.UnitInterest,
		Claimed:      stored.Claimed,
	}
	if stored.StartAt != nil {
		record.StartAt = stored.StartAt.Int64()
	}
	return record, true
}

// DepositDelete removes the record for id. Only ever used to roll back a
// failed creation; settled deposits are immutable history.
func (m *Manager) DepositDelete(id uint64) error {
	return m.db.Put(depositKey(id), nil)
}

// DepositNextID allocates the next sequential deposit id, starting from 1.
func (m *Manager) DepositNextID() (uint64, error) {
	current, err := m.loadBigInt(depositSeqKey)
	if err != nil {
		return 0, err
	}
	next := current.Uint64()
	if next == 0 {
		next = 1
	}
	if err := m.writeBigInt(depositSeqKey, new(big.Int).SetUint64(next+1)); err != nil {
		return 0, err
	}
	return next, nil
}

// DepositSetNextID rewinds or advances the id sequence.
func (m *Manager) DepositSetNextID(next uint64) error {
	return m.writeBigInt(depositSeqKey, new(big.Int).SetUint64(next))
}

// DepositIndexAppend appends id to the owner's append-only deposit history.
func (m *Manager) DepositIndexAppend(owner [20]byte, id uint64) error {
	ids, err := m.DepositIndex(owner)
	if err != nil {
		return err
	}
	ids = append(ids, id)
	encoded, err := rlp.EncodeToBytes(ids)
	if err != nil {
		return err
	}
	return m.db.Put(depositIndexKey(owner), encoded)
}

// DepositIndex returns the owner's deposit ids in insertion order. Transfers
// append to the recipient's index without erasing the sender's history.
func (m *Manager) DepositIndex(owner [20]byte) ([]uint64, error) {
	data, err := m.db.Get(depositIndexKey(owner))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []uint64{}, nil
	}
	var ids []uint64
	if err := rlp.DecodeBytes(data, &ids); err != nil {
		return nil, fmt.Errorf("state: decode deposit index: %w", err)
	}
	return ids, nil
}

// DepositTotal returns the owner's aggregate unclaimed principal.
func (m *Manager) DepositTotal(owner [20]byte) (*big.Int, error) {
	return m.loadBigInt(depositTotalKey(owner))
}

// DepositSetTotal overwrites the owner's aggregate unclaimed principal.
func (m *Manager) DepositSetTotal(owner [20]byte, total *big.Int) error {
	return m.writeBigInt(depositTotalKey(owner), total)
}

// --- Registry entries ---

// RegistrySet stores a typed registry value under its numeric id.
func (m *Manager) RegistrySet(kind registry.Kind, id registry.PropertyID, value []byte) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(registryKey(kind, id), encoded)
}

// RegistryGet loads a typed registry value. The boolean reports whether the
// entry was ever written.
func (m *Manager) RegistryGet(kind registry.Kind, id registry.PropertyID) ([]byte, bool, error) {
	data, err := m.db.Get(registryKey(kind, id))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	var value []byte
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return nil, false, fmt.Errorf("state: decode registry entry: %w", err)
	}
	return value, true, nil
}

// --- Token authority ---

func addBalance(balance, amt *big.Int) *big.Int {
	return new(big.Int).Add(balance, amt)
}

func subBalance(balance, amt *big.Int) (*big.Int, error) {
	if balance.Cmp(amt) < 0 {
		return nil, ErrInsufficientBalance
	}
	return new(big.Int).Sub(balance, amt), nil
}

func checkAmount(amt *big.Int) error {
	if amt == nil || amt.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	return nil
}

func (m *Manager) transferRING(from, to [20]byte, amt *big.Int) error {
	fromAcc, err := m.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := m.GetAccount(to)
	if err != nil {
		return err
	}
	next, err := subBalance(fromAcc.BalanceRING, amt)
	if err != nil {
		return err
	}
	fromAcc.BalanceRING = next
	toAcc.BalanceRING = addBalance(toAcc.BalanceRING, amt)
	if err := m.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := m.PutAccount(to, toAcc); err != nil {
		fromAcc.BalanceRING = addBalance(fromAcc.BalanceRING, amt)
		if restoreErr := m.PutAccount(from, fromAcc); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("state: rollback sender: %w", restoreErr))
		}
		return err
	}
	return nil
}

// Credit implements the deposit engine's token authority: RING credits pay
// principal out of the bank vault, KTON credits mint new reward supply.
func (m *Manager) Credit(token string, to [20]byte, amt *big.Int) error {
	normalized, err := deposit.NormalizeToken(token)
	if err != nil {
		return err
	}
	if err := checkAmount(amt); err != nil {
		return err
	}
	if amt.Sign() == 0 {
		return nil
	}
	switch normalized {
	case deposit.TokenRING:
		return m.transferRING(vaultAddress, to, amt)
	case deposit.TokenKTON:
		return m.mintKTON(to, amt)
	}
	return nil
}

// Debit implements the deposit engine's token authority: RING debits lock
// principal into the bank vault, KTON debits burn reward supply.
func (m *Manager) Debit(token string, from [20]byte, amt *big.Int) error {
	normalized, err := deposit.NormalizeToken(token)
	if err != nil {
		return err
	}
	if err := checkAmount(amt); err != nil {
		return err
	}
	if amt.Sign() == 0 {
		return nil
	}
	switch normalized {
	case deposit.TokenRING:
		return m.transferRING(from, vaultAddress, amt)
	case deposit.TokenKTON:
		return m.burnKTON(from, amt)
	}
	return nil
}

func (m *Manager) mintKTON(to [20]byte, amt *big.Int) error {
	acc, err := m.GetAccount(to)
	if err != nil {
		return err
	}
	supply, err := m.loadBigInt(ktonSupplyKey)
	if err != nil {
		return err
	}
	acc.BalanceKTON = addBalance(acc.BalanceKTON, amt)
	if err := m.PutAccount(to, acc); err != nil {
		return err
	}
	if err := m.writeBigInt(ktonSupplyKey, addBalance(supply, amt)); err != nil {
		acc.BalanceKTON = new(big.Int).Sub(acc.BalanceKTON, amt)
		if restoreErr := m.PutAccount(to, acc); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("state: rollback mint: %w", restoreErr))
		}
		return err
	}
	return nil
}

func (m *Manager) burnKTON(from [20]byte, amt *big.Int) error {
	acc, err := m.GetAccount(from)
	if err != nil {
		return err
	}
	supply, err := m.loadBigInt(ktonSupplyKey)
	if err != nil {
		return err
	}
	next, err := subBalance(acc.BalanceKTON, amt)
	if err != nil {
		return err
	}
	nextSupply, err := subBalance(supply, amt)
	if err != nil {
		return fmt.Errorf("state: kton supply underflow")
	}
	acc.BalanceKTON = next
	if err := m.PutAccount(from, acc); err != nil {
		return err
	}
	if err := m.writeBigInt(ktonSupplyKey, nextSupply); err != nil {
		acc.BalanceKTON = addBalance(acc.BalanceKTON, amt)
		if restoreErr := m.PutAccount(from, acc); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("state: rollback burn: %w", restoreErr))
		}
		return err
	}
	return nil
}

// MintRING provisions principal balance for an address. Exposed for genesis
// bootstrap and development faucets; production principal arrives through the
// bridged token contract.
func (m *Manager) MintRING(to [20]byte, amt *big.Int) error {
	if err := checkAmount(amt); err != nil {
		return err
	}
	acc, err := m.GetAccount(to)
	if err != nil {
		return err
	}
	acc.BalanceRING = addBalance(acc.BalanceRING, amt)
	return m.PutAccount(to, acc)
}

// KTONSupply returns the outstanding minted reward supply.
func (m *Manager) KTONSupply() (*big.Int, error) {
	return m.loadBigInt(ktonSupplyKey)
}
