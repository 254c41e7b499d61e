package core

import (
	"errors"
	"math/big"
	"testing"

	"gringotts/core/state"
	"gringotts/native/deposit"
	"gringotts/native/registry"
	"gringotts/storage"
)

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type nodeFixture struct {
	node    *Node
	manager *state.Manager
	admin   [20]byte
	ring    [20]byte
	kton    [20]byte
	now     int64
}

func newNodeFixture(t *testing.T) *nodeFixture {
	t.Helper()
	fixture := &nodeFixture{
		manager: state.NewManager(storage.NewMemDB()),
		admin:   testAddress(0xAD),
		ring:    testAddress(0xAA),
		kton:    testAddress(0xBB),
		now:     1_700_000_000,
	}
	fixture.node = NewNode(fixture.manager, fixture.admin)
	fixture.node.SetNowFunc(func() int64 { return fixture.now })

	if err := fixture.node.RegistrySetUint(fixture.admin, registry.PropUnitInterest, big.NewInt(1000)); err != nil {
		t.Fatalf("seed unit interest: %v", err)
	}
	if err := fixture.node.RegistrySetUint(fixture.admin, registry.PropPenaltyMultiplier, big.NewInt(3)); err != nil {
		t.Fatalf("seed penalty multiplier: %v", err)
	}
	if err := fixture.node.RegistrySetAddress(fixture.admin, registry.PropBankAdmin, fixture.admin); err != nil {
		t.Fatalf("seed bank admin: %v", err)
	}
	if err := fixture.node.RegistrySetAddress(fixture.admin, registry.PropPrincipalToken, fixture.ring); err != nil {
		t.Fatalf("seed principal token: %v", err)
	}
	if err := fixture.node.RegistrySetAddress(fixture.admin, registry.PropRewardToken, fixture.kton); err != nil {
		t.Fatalf("seed reward token: %v", err)
	}
	return fixture
}

func TestNodeDepositLifecycle(t *testing.T) {
	fixture := newNodeFixture(t)
	alice := testAddress(0x01)
	if err := fixture.node.MintRING(fixture.admin, alice, big.NewInt(100_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Inbound principal transfer with a 12 month payload opens the deposit.
	record, err := fixture.node.NotifyTransfer(fixture.ring, alice, big.NewInt(30_000), []byte{0x0C})
	if err != nil {
		t.Fatalf("notify transfer: %v", err)
	}
	if record.Months != 12 || record.Owner != alice {
		t.Fatalf("unexpected record: %+v", record)
	}

	acc, err := fixture.node.GetAccount(alice)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acc.BalanceRING.Int64() != 70_000 {
		t.Fatalf("principal not locked: RING = %s", acc.BalanceRING)
	}
	if acc.BalanceKTON.Int64() != 3 {
		t.Fatalf("reward not minted: KTON = %s", acc.BalanceKTON)
	}

	vault, err := fixture.node.GetAccount(state.VaultAddress())
	if err != nil {
		t.Fatalf("get vault: %v", err)
	}
	if vault.BalanceRING.Int64() != 30_000 {
		t.Fatalf("vault balance = %s, want 30000", vault.BalanceRING)
	}

	fixture.now = record.MaturesAt()
	settled, err := fixture.node.ClaimDeposit(alice, record.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !settled.Claimed {
		t.Fatal("deposit not marked claimed")
	}
	acc, _ = fixture.node.GetAccount(alice)
	if acc.BalanceRING.Int64() != 100_000 {
		t.Fatalf("principal not returned: RING = %s", acc.BalanceRING)
	}
}

func TestNodeEarlyWithdrawalViaRewardTransfer(t *testing.T) {
	fixture := newNodeFixture(t)
	alice := testAddress(0x01)
	if err := fixture.node.MintRING(fixture.admin, alice, big.NewInt(100_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	record, err := fixture.node.NotifyTransfer(fixture.ring, alice, big.NewInt(30_000), []byte{0x0C})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	penalty, err := fixture.node.ComputePenalty(record.ID)
	if err != nil {
		t.Fatalf("compute penalty: %v", err)
	}
	if penalty.Int64() != 9 {
		t.Fatalf("penalty = %s, want 9", penalty)
	}

	// The owner holds 3 KTON from opening; an inbound reward transfer of 9
	// must fail until the balance covers it.
	payload := []byte{byte(record.ID)}
	if _, err := fixture.node.NotifyTransfer(fixture.kton, alice, penalty, payload); err == nil {
		t.Fatal("expected burn to fail on insufficient reward balance")
	}

	if err := fixture.node.RegistrySetUint(fixture.admin, registry.PropPenaltyMultiplier, big.NewInt(1)); err != nil {
		t.Fatalf("lower multiplier: %v", err)
	}
	settled, err := fixture.node.NotifyTransfer(fixture.kton, alice, big.NewInt(3), payload)
	if err != nil {
		t.Fatalf("penalty withdraw: %v", err)
	}
	if !settled.Claimed {
		t.Fatal("deposit not settled")
	}

	acc, _ := fixture.node.GetAccount(alice)
	if acc.BalanceRING.Int64() != 100_000 {
		t.Fatalf("principal not returned: RING = %s", acc.BalanceRING)
	}
	if acc.BalanceKTON.Sign() != 0 {
		t.Fatalf("penalty not burned: KTON = %s", acc.BalanceKTON)
	}
	supply, err := fixture.manager.KTONSupply()
	if err != nil {
		t.Fatalf("kton supply: %v", err)
	}
	if supply.Sign() != 0 {
		t.Fatalf("reward supply must return to zero, got %s", supply)
	}
}

func TestNodeTransferAndHistory(t *testing.T) {
	fixture := newNodeFixture(t)
	alice := testAddress(0x01)
	bob := testAddress(0x02)
	if err := fixture.node.MintRING(fixture.admin, alice, big.NewInt(100_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	record, err := fixture.node.NotifyTransfer(fixture.ring, alice, big.NewInt(30_000), []byte{0x06})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	moved, err := fixture.node.TransferDeposit(alice, bob, record.ID)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if moved.Owner != bob {
		t.Fatal("ownership did not move")
	}

	aliceTotal, _ := fixture.node.UserTotalDeposit(alice)
	bobTotal, _ := fixture.node.UserTotalDeposit(bob)
	if aliceTotal.Sign() != 0 || bobTotal.Int64() != 30_000 {
		t.Fatalf("totals wrong: alice=%s bob=%s", aliceTotal, bobTotal)
	}

	history, err := fixture.node.DepositsOf(bob)
	if err != nil {
		t.Fatalf("deposits of: %v", err)
	}
	if len(history) != 1 || history[0].ID != record.ID {
		t.Fatalf("recipient history wrong: %+v", history)
	}
}

func TestNodeCarryOverRequiresRegistryAdmin(t *testing.T) {
	fixture := newNodeFixture(t)
	owner := testAddress(0x01)

	if _, err := fixture.node.CarryOverDeposit(owner, 7, owner, 12, 1_600_000_000, big.NewInt(1000), big.NewInt(5_000)); !errors.Is(err, deposit.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	record, err := fixture.node.CarryOverDeposit(fixture.admin, 7, owner, 12, 1_600_000_000, big.NewInt(1000), big.NewInt(5_000))
	if err != nil {
		t.Fatalf("carry over: %v", err)
	}
	if !record.Claimed {
		t.Fatal("carried-over record must be claimed")
	}
	total, _ := fixture.node.UserTotalDeposit(owner)
	if total.Sign() != 0 {
		t.Fatalf("migrated history must not affect totals, got %s", total)
	}
}

func TestNodeMintRequiresAdmin(t *testing.T) {
	fixture := newNodeFixture(t)
	stranger := testAddress(0x01)
	if err := fixture.node.MintRING(stranger, stranger, big.NewInt(1)); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNodeRegistryAccessControl(t *testing.T) {
	fixture := newNodeFixture(t)
	stranger := testAddress(0x01)

	if err := fixture.node.RegistrySetBool(stranger, registry.PropDepositsPaused, true); !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := fixture.node.RegistrySetBool(fixture.admin, registry.PropDepositsPaused, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := fixture.node.MintRING(fixture.admin, stranger, big.NewInt(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := fixture.node.NotifyTransfer(fixture.ring, stranger, big.NewInt(100), []byte{0x01}); !errors.Is(err, deposit.ErrDepositsPaused) {
		t.Fatalf("expected ErrDepositsPaused, got %v", err)
	}
}
