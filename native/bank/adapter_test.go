package bank

import (
	"errors"
	"math/big"
	"testing"

	"gringotts/native/deposit"
	"gringotts/native/registry"
)

type mockLedger struct {
	openOwner     [20]byte
	openPrincipal *big.Int
	openMonths    uint64

	penaltyCaller  [20]byte
	penaltyID      uint64
	penaltyPayment *big.Int
}

func (m *mockLedger) Open(owner [20]byte, principal *big.Int, months uint64) (*deposit.Deposit, error) {
	m.openOwner = owner
	m.openPrincipal = principal
	m.openMonths = months
	return &deposit.Deposit{ID: 1, Owner: owner, Principal: principal, Months: months}, nil
}

func (m *mockLedger) PenaltyWithdraw(caller [20]byte, id uint64, payment *big.Int) (*deposit.Deposit, error) {
	m.penaltyCaller = caller
	m.penaltyID = id
	m.penaltyPayment = payment
	return &deposit.Deposit{ID: id, Owner: caller, Principal: big.NewInt(1), Claimed: true}, nil
}

type mockSettings struct {
	principalToken [20]byte
	rewardToken    [20]byte
}

func (m *mockSettings) UintOf(registry.PropertyID) (*big.Int, error) { return big.NewInt(0), nil }

func (m *mockSettings) AddressOf(id registry.PropertyID) ([20]byte, error) {
	switch id {
	case registry.PropPrincipalToken:
		return m.principalToken, nil
	case registry.PropRewardToken:
		return m.rewardToken, nil
	default:
		return [20]byte{}, nil
	}
}

func (m *mockSettings) BoolOf(registry.PropertyID) (bool, error) { return false, nil }

func fillAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestDecodePayloadUint(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		want    uint64
		wantErr bool
	}{
		{"single byte", []byte{0x0C}, 12, false},
		{"two bytes", []byte{0x01, 0x00}, 256, false},
		{"full width", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, ^uint64(0), false},
		{"empty", nil, 0, true},
		{"too long", []byte{0, 0, 0, 0, 0, 0, 0, 0, 1}, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodePayloadUint(tc.payload)
			if tc.wantErr {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Fatalf("expected ErrMalformedPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.want {
				t.Fatalf("decoded %d, want %d", got, tc.want)
			}
		})
	}
}

func TestNotifyTransferRouting(t *testing.T) {
	ring := fillAddress(0xAA)
	kton := fillAddress(0xBB)
	sender := fillAddress(0x01)
	ledger := &mockLedger{}
	adapter := NewAdapter(ledger, &mockSettings{principalToken: ring, rewardToken: kton})

	// A principal transfer opens a deposit for the payload duration.
	record, err := adapter.NotifyTransfer(ring, sender, big.NewInt(30_000), []byte{0x0C})
	if err != nil {
		t.Fatalf("principal transfer: %v", err)
	}
	if record == nil || ledger.openOwner != sender || ledger.openMonths != 12 {
		t.Fatalf("open not routed: owner=%x months=%d", ledger.openOwner, ledger.openMonths)
	}
	if ledger.openPrincipal.Int64() != 30_000 {
		t.Fatalf("principal = %s, want 30000", ledger.openPrincipal)
	}

	// A reward transfer pays the early withdrawal penalty for the payload id.
	record, err = adapter.NotifyTransfer(kton, sender, big.NewInt(9), []byte{0x2A})
	if err != nil {
		t.Fatalf("reward transfer: %v", err)
	}
	if record == nil || ledger.penaltyCaller != sender || ledger.penaltyID != 42 {
		t.Fatalf("penalty not routed: caller=%x id=%d", ledger.penaltyCaller, ledger.penaltyID)
	}
	if ledger.penaltyPayment.Int64() != 9 {
		t.Fatalf("payment = %s, want 9", ledger.penaltyPayment)
	}
}

func TestNotifyTransferUnknownToken(t *testing.T) {
	adapter := NewAdapter(&mockLedger{}, &mockSettings{
		principalToken: fillAddress(0xAA),
		rewardToken:    fillAddress(0xBB),
	})
	_, err := adapter.NotifyTransfer(fillAddress(0xCC), fillAddress(0x01), big.NewInt(100), []byte{0x0C})
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestNotifyTransferZeroTokenNeverMatches(t *testing.T) {
	// With no token addresses configured every transfer must be rejected,
	// including one claiming to come from the zero address.
	adapter := NewAdapter(&mockLedger{}, &mockSettings{})
	_, err := adapter.NotifyTransfer([20]byte{}, fillAddress(0x01), big.NewInt(100), []byte{0x0C})
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestNotifyTransferMalformedPayload(t *testing.T) {
	adapter := NewAdapter(&mockLedger{}, &mockSettings{principalToken: fillAddress(0xAA)})
	_, err := adapter.NotifyTransfer(fillAddress(0xAA), fillAddress(0x01), big.NewInt(100), nil)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
