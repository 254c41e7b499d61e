package deposit

import (
	"errors"
	"math/big"
	"testing"
)

func TestAccrualTableShape(t *testing.T) {
	if accrualTable[0] != 0 {
		t.Fatalf("zero duration must accrue nothing, got %d", accrualTable[0])
	}
	if accrualTable[12] != accrualScale {
		t.Fatalf("twelve month anchor must be factor 1.0, got %d", accrualTable[12])
	}
	for months := 1; months <= int(MaxMonths); months++ {
		if accrualTable[months] <= accrualTable[months-1] {
			t.Fatalf("table not strictly increasing at month %d: %d <= %d", months, accrualTable[months], accrualTable[months-1])
		}
	}
	linear := accrualScale / 12
	for months := 13; months <= int(MaxMonths); months++ {
		if accrualTable[months]-accrualTable[months-1] < uint64(linear) {
			t.Fatalf("marginal accrual below linear at month %d", months)
		}
	}
}

func TestComputeInterest(t *testing.T) {
	cases := []struct {
		name      string
		principal int64
		months    uint64
		unitRate  int64
		want      int64
	}{
		{"twelve months unit", 10000, 12, 1000, 1},
		{"twelve months triple principal", 30000, 12, 1000, 3},
		{"zero duration", 10000, 0, 1000, 0},
		{"full term", 10000, 36, 1000, 3},
		{"rounds down", 9999, 12, 1000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeInterest(big.NewInt(tc.principal), tc.months, big.NewInt(tc.unitRate))
			if err != nil {
				t.Fatalf("compute interest: %v", err)
			}
			if got.Int64() != tc.want {
				t.Fatalf("interest = %s, want %d", got, tc.want)
			}
		})
	}
}

func TestComputeInterestLargePrincipal(t *testing.T) {
	principal, _ := new(big.Int).SetString("1000000000000000000000", 10) // 1000 units at 18 decimals
	got, err := ComputeInterest(principal, 36, big.NewInt(1000))
	if err != nil {
		t.Fatalf("compute interest: %v", err)
	}
	want, _ := new(big.Int).SetString("330000000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("interest = %s, want %s", got, want)
	}
}

func TestComputeInterestRejectsLongDurations(t *testing.T) {
	if _, err := ComputeInterest(big.NewInt(10000), MaxMonths+1, big.NewInt(1000)); !errors.Is(err, ErrUnsupportedDuration) {
		t.Fatalf("expected ErrUnsupportedDuration, got %v", err)
	}
}

func TestComputeInterestInvalidPrincipal(t *testing.T) {
	if _, err := ComputeInterest(nil, 12, big.NewInt(1000)); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal for nil principal, got %v", err)
	}
	if _, err := ComputeInterest(big.NewInt(0), 12, big.NewInt(1000)); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal for zero principal, got %v", err)
	}
}

func TestComputeInterestZeroRate(t *testing.T) {
	got, err := ComputeInterest(big.NewInt(10000), 12, big.NewInt(0))
	if err != nil {
		t.Fatalf("compute interest: %v", err)
	}
	if got.Sign() != 0 {
		t.Fatalf("zero rate must yield zero interest, got %s", got)
	}
	got, err = ComputeInterest(big.NewInt(10000), 12, nil)
	if err != nil {
		t.Fatalf("compute interest: %v", err)
	}
	if got.Sign() != 0 {
		t.Fatalf("nil rate must yield zero interest, got %s", got)
	}
}

func TestComputePenalty(t *testing.T) {
	record := &Deposit{
		ID:           1,
		Owner:        [20]byte{0x01},
		Principal:    big.NewInt(10000),
		Months:       12,
		UnitInterest: big.NewInt(1000),
	}
	penalty, err := ComputePenalty(record, big.NewInt(3))
	if err != nil {
		t.Fatalf("compute penalty: %v", err)
	}
	if penalty.Int64() != 3 {
		t.Fatalf("penalty = %s, want 3", penalty)
	}

	penalty, err = ComputePenalty(record, nil)
	if err != nil {
		t.Fatalf("compute penalty: %v", err)
	}
	if penalty.Int64() != 1 {
		t.Fatalf("unset multiplier must behave as 1x, got %s", penalty)
	}

	if _, err := ComputePenalty(nil, big.NewInt(3)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for nil record, got %v", err)
	}
}

func TestDepositMaturesAt(t *testing.T) {
	record := &Deposit{StartAt: 1_000_000, Months: 2}
	want := int64(1_000_000) + 2*PeriodSeconds
	if got := record.MaturesAt(); got != want {
		t.Fatalf("maturity = %d, want %d", got, want)
	}
}
