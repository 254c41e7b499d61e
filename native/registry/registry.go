package registry

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrUnauthorized is returned when a non-admin caller attempts a write.
	ErrUnauthorized = errors.New("registry: unauthorized")

	errNilState = errors.New("registry: state not configured")
)

// StoreState captures the subset of state manager capabilities required by the
// registry. Values are stored as opaque bytes; this package owns the typed
// encoding.
type StoreState interface {
	RegistrySet(kind Kind, id PropertyID, value []byte) error
	RegistryGet(kind Kind, id PropertyID) ([]byte, bool, error)
}

// Registry provides typed accessors for bank configuration keyed by stable
// numeric identifiers. Writes are restricted to the administrative identity
// fixed at construction; reads are open and never fail for unknown ids.
type Registry struct {
	state StoreState
	admin [20]byte
}

// NewRegistry constructs a registry over the supplied state backend. The admin
// address is the only identity permitted to mutate entries.
func NewRegistry(state StoreState, admin [20]byte) *Registry {
	return &Registry{state: state, admin: admin}
}

// Admin returns the administrative identity configured at deployment.
func (r *Registry) Admin() [20]byte { return r.admin }

func (r *Registry) withState() (StoreState, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	return r.state, nil
}

func (r *Registry) authorize(caller [20]byte) error {
	if caller != r.admin {
		return ErrUnauthorized
	}
	return nil
}

// SetUint overwrites the unsigned integer entry for id.
func (r *Registry) SetUint(caller [20]byte, id PropertyID, value *big.Int) error {
	state, err := r.withState()
	if err != nil {
		return err
	}
	if err := r.authorize(caller); err != nil {
		return err
	}
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("registry: uint property %d must be non-negative", id)
	}
	return state.RegistrySet(KindUint, id, value.Bytes())
}

// UintOf returns the unsigned integer entry for id, or zero when unset.
func (r *Registry) UintOf(id PropertyID) (*big.Int, error) {
	state, err := r.withState()
	if err != nil {
		return nil, err
	}
	raw, ok, err := state.RegistryGet(KindUint, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(raw), nil
}

// SetAddress overwrites the address entry for id.
func (r *Registry) SetAddress(caller [20]byte, id PropertyID, value [20]byte) error {
	state, err := r.withState()
	if err != nil {
		return err
	}
	if err := r.authorize(caller); err != nil {
		return err
	}
	return state.RegistrySet(KindAddress, id, value[:])
}

// AddressOf returns the address entry for id, or the zero address when unset.
func (r *Registry) AddressOf(id PropertyID) ([20]byte, error) {
	var addr [20]byte
	state, err := r.withState()
	if err != nil {
		return addr, err
	}
	raw, ok, err := state.RegistryGet(KindAddress, id)
	if err != nil {
		return addr, err
	}
	if !ok {
		return addr, nil
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("registry: corrupt address entry for id %d", id)
	}
	copy(addr[:], raw)
	return addr, nil
}

// SetBool overwrites the boolean entry for id.
func (r *Registry) SetBool(caller [20]byte, id PropertyID, value bool) error {
	state, err := r.withState()
	if err != nil {
		return err
	}
	if err := r.authorize(caller); err != nil {
		return err
	}
	encoded := []byte{0}
	if value {
		encoded[0] = 1
	}
	return state.RegistrySet(KindBool, id, encoded)
}

// BoolOf returns the boolean entry for id, or false when unset.
func (r *Registry) BoolOf(id PropertyID) (bool, error) {
	state, err := r.withState()
	if err != nil {
		return false, err
	}
	raw, ok, err := state.RegistryGet(KindBool, id)
	if err != nil {
		return false, err
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	return raw[0] != 0, nil
}
