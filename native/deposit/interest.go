package deposit

import "math/big"

// MaxMonths is the longest lock-up the schedule supports.
const MaxMonths uint64 = 36

// accrualScale is the fixed-point scale of the schedule table: a table entry
// of 10_000_000 represents an accrual factor of 1.0.
const accrualScale = 10_000_000

// accrualTable maps a lock-up duration in months to the normalized accrual
// factor earned over the full term, scaled by accrualScale. The curve is
// anchored so a 12 month lock-up earns exactly factor 1.0 and grows slightly
// faster than linear to favour longer commitments. Entries are fixed at
// compile time; changing the reward magnitude is done through the unit
// interest rate in the settings registry, never by editing this table.
var accrualTable = [MaxMonths + 1]uint64{
	0, 795139, 1597222, 2406250, 3222222, 4045139,
	4875000, 5711806, 6555556, 7406250, 8263889, 9128472,
	10000000, 10878472, 11763889, 12656250, 13555556, 14461806,
	15375000, 16295139, 17222222, 18156250, 19097222, 20045139,
	21000000, 21961806, 22930556, 23906250, 24888889, 25878472,
	26875000, 27878472, 28888889, 29906250, 30930556, 31961806,
	33000000,
}

// interestScale divides the raw principal*factor*rate product back into
// reward-token units: accrualScale for the table fixed point times 1e7 for
// the unit-rate fixed point. Principal magnitudes up to 1e24 stay well within
// big.Int precision.
var interestScale = new(big.Int).SetUint64(100_000_000_000_000)

// ComputeInterest returns the reward amount credited for locking principal
// over the given number of months at the supplied unit interest rate. The
// function is pure: it reads no state and is deterministic for identical
// inputs. Durations beyond the schedule are rejected rather than clamped.
func ComputeInterest(principal *big.Int, months uint64, unitRate *big.Int) (*big.Int, error) {
	if months > MaxMonths {
		return nil, ErrUnsupportedDuration
	}
	if principal == nil || principal.Sign() <= 0 {
		return nil, ErrInvalidPrincipal
	}
	if unitRate == nil || unitRate.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	factor := new(big.Int).SetUint64(accrualTable[months])
	reward := new(big.Int).Mul(principal, factor)
	reward.Mul(reward, unitRate)
	reward.Quo(reward, interestScale)
	return reward, nil
}

// ComputePenalty returns the reward amount that must be forfeited to settle
// the deposit before maturity: the interest for the full locked duration at
// the locked unit rate, scaled by the penalty multiplier. Only snapshotted
// fields participate; current registry rates never affect an open deposit.
func ComputePenalty(d *Deposit, multiplier *big.Int) (*big.Int, error) {
	if d == nil {
		return nil, ErrNotFound
	}
	interest, err := ComputeInterest(d.Principal, d.Months, d.UnitInterest)
	if err != nil {
		return nil, err
	}
	if multiplier == nil || multiplier.Sign() <= 0 {
		return interest, nil
	}
	return interest.Mul(interest, multiplier), nil
}
