package types

// Event represents a typed event emitted during state transitions. Attributes
// carry a flat string view of the payload for indexers and RPC consumers.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
