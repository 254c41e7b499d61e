package registry

import (
	"errors"
	"math/big"
	"testing"
)

type registryKey struct {
	kind Kind
	id   PropertyID
}

type mockStore struct {
	values map[registryKey][]byte
}

func newMockStore() *mockStore {
	return &mockStore{values: make(map[registryKey][]byte)}
}

func (m *mockStore) RegistrySet(kind Kind, id PropertyID, value []byte) error {
	m.values[registryKey{kind, id}] = append([]byte(nil), value...)
	return nil
}

func (m *mockStore) RegistryGet(kind Kind, id PropertyID) ([]byte, bool, error) {
	raw, ok := m.values[registryKey{kind, id}]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

func testAdmin() [20]byte {
	var addr [20]byte
	addr[19] = 0xAD
	return addr
}

func TestRegistryUintRoundTrip(t *testing.T) {
	reg := NewRegistry(newMockStore(), testAdmin())

	value, err := reg.UintOf(PropUnitInterest)
	if err != nil {
		t.Fatalf("uint of: %v", err)
	}
	if value.Sign() != 0 {
		t.Fatalf("unset uint must read zero, got %s", value)
	}

	if err := reg.SetUint(testAdmin(), PropUnitInterest, big.NewInt(1000)); err != nil {
		t.Fatalf("set uint: %v", err)
	}
	value, err = reg.UintOf(PropUnitInterest)
	if err != nil {
		t.Fatalf("uint of: %v", err)
	}
	if value.Int64() != 1000 {
		t.Fatalf("uint = %s, want 1000", value)
	}

	if err := reg.SetUint(testAdmin(), PropUnitInterest, big.NewInt(0)); err != nil {
		t.Fatalf("set uint to zero: %v", err)
	}
	value, _ = reg.UintOf(PropUnitInterest)
	if value.Sign() != 0 {
		t.Fatalf("uint = %s, want 0", value)
	}
}

func TestRegistryAddressRoundTrip(t *testing.T) {
	reg := NewRegistry(newMockStore(), testAdmin())

	addr, err := reg.AddressOf(PropPrincipalToken)
	if err != nil {
		t.Fatalf("address of: %v", err)
	}
	if addr != ([20]byte{}) {
		t.Fatalf("unset address must read zero, got %x", addr)
	}

	var token [20]byte
	token[0] = 0x42
	if err := reg.SetAddress(testAdmin(), PropPrincipalToken, token); err != nil {
		t.Fatalf("set address: %v", err)
	}
	addr, err = reg.AddressOf(PropPrincipalToken)
	if err != nil {
		t.Fatalf("address of: %v", err)
	}
	if addr != token {
		t.Fatalf("address = %x, want %x", addr, token)
	}
}

func TestRegistryBoolRoundTrip(t *testing.T) {
	reg := NewRegistry(newMockStore(), testAdmin())

	paused, err := reg.BoolOf(PropDepositsPaused)
	if err != nil {
		t.Fatalf("bool of: %v", err)
	}
	if paused {
		t.Fatal("unset bool must read false")
	}

	if err := reg.SetBool(testAdmin(), PropDepositsPaused, true); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	paused, _ = reg.BoolOf(PropDepositsPaused)
	if !paused {
		t.Fatal("bool = false, want true")
	}

	if err := reg.SetBool(testAdmin(), PropDepositsPaused, false); err != nil {
		t.Fatalf("clear bool: %v", err)
	}
	paused, _ = reg.BoolOf(PropDepositsPaused)
	if paused {
		t.Fatal("bool = true, want false")
	}
}

func TestRegistryWritesRequireAdmin(t *testing.T) {
	store := newMockStore()
	reg := NewRegistry(store, testAdmin())
	var stranger [20]byte
	stranger[0] = 0x99

	if err := reg.SetUint(stranger, PropUnitInterest, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.SetAddress(stranger, PropBankAdmin, testAdmin()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.SetBool(stranger, PropDepositsPaused, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(store.values) != 0 {
		t.Fatal("unauthorized writes must not persist")
	}
}

func TestRegistryRejectsNegativeUint(t *testing.T) {
	reg := NewRegistry(newMockStore(), testAdmin())
	if err := reg.SetUint(testAdmin(), PropUnitInterest, big.NewInt(-5)); err == nil {
		t.Fatal("expected rejection of negative value")
	}
	if err := reg.SetUint(testAdmin(), PropUnitInterest, nil); err == nil {
		t.Fatal("expected rejection of nil value")
	}
}

func TestRegistryKindsArePartitioned(t *testing.T) {
	reg := NewRegistry(newMockStore(), testAdmin())

	// The same numeric id stored under different kinds must not collide.
	const id PropertyID = 7
	if err := reg.SetUint(testAdmin(), id, big.NewInt(123)); err != nil {
		t.Fatalf("set uint: %v", err)
	}
	if err := reg.SetBool(testAdmin(), id, true); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	value, _ := reg.UintOf(id)
	if value.Int64() != 123 {
		t.Fatalf("uint = %s, want 123", value)
	}
	flag, _ := reg.BoolOf(id)
	if !flag {
		t.Fatal("bool entry lost after uint write")
	}
}
