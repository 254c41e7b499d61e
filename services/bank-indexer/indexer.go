// Package bankindexer mirrors ledger events and deposit snapshots into a
// SQLite database so operators can query history without touching the
// authoritative state store. Indexing is best effort: a failed write is
// logged and dropped, never surfaced back to the ledger.
package bankindexer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"gringotts/core/events"
	"gringotts/core/types"
)

type attributeCarrier interface {
	Event() *types.Event
}

// Indexer consumes ledger events and persists them to SQLite. It satisfies
// events.Emitter so it can be attached directly to a node.
type Indexer struct {
	mu  sync.Mutex
	db  *sql.DB
	seq int64
	log *slog.Logger
}

var _ events.Emitter = (*Indexer)(nil)

// New opens (or creates) the index database at path and prepares the schema.
func New(path string) (*Indexer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	idx := &Indexer{db: db, log: slog.Default().With("component", "bank-indexer")}
	if err := idx.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Indexer) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS events (
            sequence INTEGER PRIMARY KEY,
            type TEXT NOT NULL,
            deposit_id INTEGER,
            payload TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS deposits (
            id INTEGER PRIMARY KEY,
            owner TEXT NOT NULL,
            principal TEXT NOT NULL,
            months INTEGER NOT NULL,
            start_at INTEGER NOT NULL,
            unit_interest TEXT NOT NULL,
            claimed INTEGER NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS deposits_owner ON deposits(owner);`,
	}
	for _, stmt := range schema {
		if _, err := i.db.Exec(stmt); err != nil {
			return err
		}
	}
	row := i.db.QueryRow(`SELECT COALESCE(MAX(sequence), 0) FROM events`)
	return row.Scan(&i.seq)
}

// Close releases the underlying database handle.
func (i *Indexer) Close() error {
	return i.db.Close()
}

// Emit records a ledger event. Failures are logged, not returned, so the
// emitting ledger operation always proceeds.
func (i *Indexer) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	carrier, ok := evt.(attributeCarrier)
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	if err := i.record(payload); err != nil {
		i.log.Error("index event", "type", payload.Type, "error", err)
	}
}

func (i *Indexer) record(evt *types.Event) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	encoded, err := json.Marshal(evt.Attributes)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	i.seq++
	var depositID interface{}
	if raw, ok := evt.Attributes["id"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			depositID = int64(id)
		}
	}
	const insertEvent = `INSERT INTO events(sequence, type, deposit_id, payload, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := i.db.Exec(insertEvent, i.seq, evt.Type, depositID, string(encoded), now); err != nil {
		i.seq--
		return err
	}
	if depositID == nil {
		return nil
	}
	return i.upsertDeposit(evt.Attributes, now)
}

func (i *Indexer) upsertDeposit(attrs map[string]string, now time.Time) error {
	id, err := strconv.ParseUint(attrs["id"], 10, 64)
	if err != nil {
		return err
	}
	months, err := strconv.ParseUint(attrs["months"], 10, 64)
	if err != nil {
		return err
	}
	startAt, err := strconv.ParseInt(attrs["startAt"], 10, 64)
	if err != nil {
		return err
	}
	claimed := 0
	if attrs["claimed"] == "true" {
		claimed = 1
	}
	const stmt = `INSERT INTO deposits(id, owner, principal, months, start_at, unit_interest, claimed, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            owner = excluded.owner,
            principal = excluded.principal,
            months = excluded.months,
            start_at = excluded.start_at,
            unit_interest = excluded.unit_interest,
            claimed = excluded.claimed,
            updated_at = excluded.updated_at`
	_, err = i.db.Exec(stmt, id, attrs["owner"], attrs["principal"], months, startAt, attrs["unitInterest"], claimed, now)
	return err
}

// StoredEvent is an event row read back from the index.
type StoredEvent struct {
	Sequence  int64             `json:"sequence"`
	Type      string            `json:"type"`
	DepositID *uint64           `json:"depositId,omitempty"`
	Payload   map[string]string `json:"payload"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Events returns up to limit events in descending sequence order.
func (i *Indexer) Events(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT sequence, type, deposit_id, payload, created_at FROM events ORDER BY sequence DESC LIMIT ?`
	rows, err := i.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoredEvent
	for rows.Next() {
		var evt StoredEvent
		var depositID sql.NullInt64
		var payload string
		if err := rows.Scan(&evt.Sequence, &evt.Type, &depositID, &payload, &evt.CreatedAt); err != nil {
			return nil, err
		}
		if depositID.Valid {
			id := uint64(depositID.Int64)
			evt.DepositID = &id
		}
		if err := json.Unmarshal([]byte(payload), &evt.Payload); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// StoredDeposit is the latest indexed snapshot of a deposit.
type StoredDeposit struct {
	ID           uint64    `json:"id"`
	Owner        string    `json:"owner"`
	Principal    string    `json:"principal"`
	Months       uint64    `json:"months"`
	StartAt      int64     `json:"startAt"`
	UnitInterest string    `json:"unitInterest"`
	Claimed      bool      `json:"claimed"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Deposit returns the indexed snapshot for a deposit id, or nil when the
// index has never seen it.
func (i *Indexer) Deposit(ctx context.Context, id uint64) (*StoredDeposit, error) {
	const query = `SELECT id, owner, principal, months, start_at, unit_interest, claimed, updated_at FROM deposits WHERE id = ?`
	row := i.db.QueryRowContext(ctx, query, id)
	record, err := scanDeposit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// DepositsByOwner lists indexed deposits currently held by owner.
func (i *Indexer) DepositsByOwner(ctx context.Context, owner string) ([]StoredDeposit, error) {
	const query = `SELECT id, owner, principal, months, start_at, unit_interest, claimed, updated_at FROM deposits WHERE owner = ? ORDER BY id`
	rows, err := i.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoredDeposit
	for rows.Next() {
		record, err := scanDeposit(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	return out, rows.Err()
}

func scanDeposit(scan func(dest ...interface{}) error) (*StoredDeposit, error) {
	var record StoredDeposit
	var claimed int
	if err := scan(&record.ID, &record.Owner, &record.Principal, &record.Months, &record.StartAt, &record.UnitInterest, &claimed, &record.UpdatedAt); err != nil {
		return nil, err
	}
	record.Claimed = claimed == 1
	return &record, nil
}
