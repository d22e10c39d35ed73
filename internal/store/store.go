// Package store defines the persistence interface for the share engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and development).
//
// Every mutating engine operation runs inside WithTx: reads and writes made
// with the transaction's context observe one consistent snapshot and commit
// atomically or not at all. Implementations provide the isolation; callers
// take no locks of their own.
package store

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/gravitas/share-engine/internal/model"
)

// Store is the persistence interface.
type Store interface {
	// WithTx runs fn in a transaction. A nested call joins the outer one.
	// Any error from fn rolls back every write made through its context.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// --- Creator records ---

	// CreateCreator persists a new creator. Fails with ErrCreatorExists
	// if the address is taken.
	CreateCreator(ctx context.Context, c *model.Creator) error

	// GetCreator reads a creator by address.
	GetCreator(ctx context.Context, address solana.PublicKey) (*model.Creator, error)

	// GetCreatorForUpdate reads a creator and locks it until the
	// surrounding transaction ends.
	GetCreatorForUpdate(ctx context.Context, address solana.PublicKey) (*model.Creator, error)

	// ListCreators returns all creators, newest first.
	ListCreators(ctx context.Context) ([]model.Creator, error)

	// UpdateCreatorSupply sets the current supply.
	UpdateCreatorSupply(ctx context.Context, address solana.PublicKey, supply uint64) error

	// UpdateCreatorEventCount sets the event sequence counter.
	UpdateCreatorEventCount(ctx context.Context, address solana.PublicKey, count uint64) error

	// --- Event records ---

	// CreateEvent persists a new event. Fails with ErrAlreadyExists if the
	// address is taken.
	CreateEvent(ctx context.Context, e *model.Event) error

	// GetEvent reads an event by address.
	GetEvent(ctx context.Context, address solana.PublicKey) (*model.Event, error)

	// ListEventsByCreator returns a creator's events ordered by sequence.
	ListEventsByCreator(ctx context.Context, creator solana.PublicKey) ([]model.Event, error)

	// --- Balances ---

	// GetBalance returns an account's balance. Unknown accounts hold zero.
	GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error)

	// Credit adds amount to an account, creating it if needed.
	Credit(ctx context.Context, address solana.PublicKey, amount uint64) error

	// Transfer moves amount between accounts. It fails with
	// ErrInsufficientBalance, without partial effect, when from is short.
	Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error

	// --- Immutable trade ledger ---

	// InsertLedgerEntry appends a settled trade.
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error

	// GetLedgerEntriesByCreator returns all trades for a creator.
	GetLedgerEntriesByCreator(ctx context.Context, creator solana.PublicKey) ([]model.LedgerEntry, error)

	// GetLedgerEntriesByTrader returns all trades for a trader.
	GetLedgerEntriesByTrader(ctx context.Context, trader solana.PublicKey) ([]model.LedgerEntry, error)

	// GetTraderHoldings aggregates the trader's ledger per creator. Only
	// Bought, Sold, NetShares and NetCost are filled in.
	GetTraderHoldings(ctx context.Context, trader solana.PublicKey) ([]model.Holding, error)
}
