package registry

// PropertyID is the stable numeric identifier of a configuration entry. IDs
// are part of the persisted state layout and must never be renumbered.
type PropertyID uint32

const (
	// PropUnitInterest is the unit interest rate snapshotted into every
	// deposit at creation.
	PropUnitInterest PropertyID = 1
	// PropPenaltyMultiplier scales the full-term interest into the early
	// withdrawal penalty.
	PropPenaltyMultiplier PropertyID = 2
	// PropPrincipalToken is the address of the RING token contract.
	PropPrincipalToken PropertyID = 3
	// PropRewardToken is the address of the KTON token contract.
	PropRewardToken PropertyID = 4
	// PropBankAdmin is the identity allowed to run privileged bank
	// operations such as carry-over registration.
	PropBankAdmin PropertyID = 5
	// PropDepositsPaused halts new deposit creation when set.
	PropDepositsPaused PropertyID = 6
)

// Kind partitions the registry key space per value type. An id is expected to
// be used with a single kind; entries of different kinds never collide even
// when they share an id.
type Kind uint8

const (
	KindUint Kind = iota + 1
	KindAddress
	KindBool
)
