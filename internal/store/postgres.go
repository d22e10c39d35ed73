package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gravitas/share-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Amounts are stored as NUMERIC(20,0) so the full uint64 range round-trips;
// addresses are stored as base58 TEXT.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type pgTxKey struct{}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txCtx := context.WithValue(ctx, pgTxKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(pgTxKey{}).(pgx.Tx)
	return tx
}

func (s *PostgresStore) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return s.pool.Exec(ctx, sql, args...)
}

func (s *PostgresStore) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return s.pool.QueryRow(ctx, sql, args...)
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return s.pool.Query(ctx, sql, args...)
}

// --- Creators ---

const creatorColumns = `address, owner, name, bio, current_supply::TEXT, event_count::TEXT, bump, created_at`

func (s *PostgresStore) CreateCreator(ctx context.Context, c *model.Creator) error {
	_, err := s.exec(ctx,
		`INSERT INTO creators (address, owner, name, bio, current_supply, event_count, bump, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8)`,
		c.Address.String(), c.Owner.String(), c.Name, c.Bio,
		units(c.CurrentSupply), units(c.EventCount), int16(c.Bump), c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", model.ErrCreatorExists, c.Address)
	}
	if err != nil {
		return fmt.Errorf("create creator %s: %w", c.Address, err)
	}
	return nil
}

func (s *PostgresStore) GetCreator(ctx context.Context, address solana.PublicKey) (*model.Creator, error) {
	return s.getCreator(ctx, `SELECT `+creatorColumns+` FROM creators WHERE address = $1`, address)
}

func (s *PostgresStore) GetCreatorForUpdate(ctx context.Context, address solana.PublicKey) (*model.Creator, error) {
	return s.getCreator(ctx, `SELECT `+creatorColumns+` FROM creators WHERE address = $1 FOR UPDATE`, address)
}

func (s *PostgresStore) getCreator(ctx context.Context, sql string, address solana.PublicKey) (*model.Creator, error) {
	c, err := scanCreator(s.queryRow(ctx, sql, address.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrCreatorNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("get creator %s: %w", address, err)
	}
	return c, nil
}

func (s *PostgresStore) ListCreators(ctx context.Context) ([]model.Creator, error) {
	rows, err := s.query(ctx, `SELECT `+creatorColumns+` FROM creators ORDER BY created_at DESC, address COLLATE "C"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creators []model.Creator
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, err
		}
		creators = append(creators, *c)
	}
	return creators, rows.Err()
}

func (s *PostgresStore) UpdateCreatorSupply(ctx context.Context, address solana.PublicKey, supply uint64) error {
	return s.updateCreator(ctx, `UPDATE creators SET current_supply = $2::NUMERIC WHERE address = $1`, address, supply)
}

func (s *PostgresStore) UpdateCreatorEventCount(ctx context.Context, address solana.PublicKey, count uint64) error {
	return s.updateCreator(ctx, `UPDATE creators SET event_count = $2::NUMERIC WHERE address = $1`, address, count)
}

func (s *PostgresStore) updateCreator(ctx context.Context, sql string, address solana.PublicKey, v uint64) error {
	tag, err := s.exec(ctx, sql, address.String(), units(v))
	if err != nil {
		return fmt.Errorf("update creator %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrCreatorNotFound, address)
	}
	return nil
}

func scanCreator(row pgx.Row) (*model.Creator, error) {
	var c model.Creator
	var address, owner, supply, count string
	var bump int16
	if err := row.Scan(&address, &owner, &c.Name, &c.Bio, &supply, &count, &bump, &c.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if c.Address, err = solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("creator address: %w", err)
	}
	if c.Owner, err = solana.PublicKeyFromBase58(owner); err != nil {
		return nil, fmt.Errorf("creator owner: %w", err)
	}
	if c.CurrentSupply, err = parseUnits(supply); err != nil {
		return nil, err
	}
	if c.EventCount, err = parseUnits(count); err != nil {
		return nil, err
	}
	c.Bump = uint8(bump)
	return &c, nil
}

// --- Events ---

const eventColumns = `address, creator, sequence::TEXT, title, date, required_shares::TEXT, bump, created_at`

func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := s.exec(ctx,
		`INSERT INTO events (address, creator, sequence, title, date, required_shares, bump, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4, $5, $6::NUMERIC, $7, $8)`,
		e.Address.String(), e.Creator.String(), units(e.Sequence), e.Title, e.Date,
		units(e.RequiredShares), int16(e.Bump), e.CreatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: event %s", model.ErrAlreadyExists, e.Address)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %s", model.ErrCreatorNotFound, e.Creator)
	case err != nil:
		return fmt.Errorf("create event %s: %w", e.Address, err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, address solana.PublicKey) (*model.Event, error) {
	e, err := scanEvent(s.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE address = $1`, address.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrEventNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", address, err)
	}
	return e, nil
}

func (s *PostgresStore) ListEventsByCreator(ctx context.Context, creator solana.PublicKey) ([]model.Event, error) {
	rows, err := s.query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE creator = $1 ORDER BY sequence`, creator.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	var address, creator, seq, required string
	var bump int16
	if err := row.Scan(&address, &creator, &seq, &e.Title, &e.Date, &required, &bump, &e.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if e.Address, err = solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("event address: %w", err)
	}
	if e.Creator, err = solana.PublicKeyFromBase58(creator); err != nil {
		return nil, fmt.Errorf("event creator: %w", err)
	}
	if e.Sequence, err = parseUnits(seq); err != nil {
		return nil, err
	}
	if e.RequiredShares, err = parseUnits(required); err != nil {
		return nil, err
	}
	e.Bump = uint8(bump)
	return &e, nil
}

// --- Balances ---

func (s *PostgresStore) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	var bal string
	err := s.queryRow(ctx, `SELECT balance::TEXT FROM accounts WHERE address = $1`, address.String()).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", address, err)
	}
	return parseUnits(bal)
}

func (s *PostgresStore) Credit(ctx context.Context, address solana.PublicKey, amount uint64) error {
	_, err := s.exec(ctx,
		`INSERT INTO accounts (address, balance) VALUES ($1, $2::NUMERIC)
		 ON CONFLICT (address) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance`,
		address.String(), units(amount),
	)
	if isOutOfRange(err) {
		return fmt.Errorf("%w: %s", model.ErrBalanceOverflow, address)
	}
	if err != nil {
		return fmt.Errorf("credit %s: %w", address, err)
	}
	return nil
}

func (s *PostgresStore) Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	return s.WithTx(ctx, func(txCtx context.Context) error {
		tag, err := s.exec(txCtx,
			`UPDATE accounts SET balance = balance - $2::NUMERIC
			 WHERE address = $1 AND balance >= $2::NUMERIC`,
			from.String(), units(amount),
		)
		if err != nil {
			return fmt.Errorf("debit %s: %w", from, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s cannot cover %d", model.ErrInsufficientBalance, from, amount)
		}
		return s.Credit(txCtx, to, amount)
	})
}

// --- Ledger ---

const ledgerColumns = `id::TEXT, creator, trader, side, amount::TEXT, cost::TEXT, commission::TEXT,
	net::TEXT, supply_before::TEXT, supply_after::TEXT, timestamp`

func (s *PostgresStore) InsertLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	_, err := s.exec(ctx,
		`INSERT INTO ledger_entries (id, creator, trader, side, amount, cost, commission, net,
		                             supply_before, supply_after, timestamp)
		 VALUES ($1::UUID, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC,
		         $9::NUMERIC, $10::NUMERIC, $11)`,
		e.ID, e.Creator.String(), e.Trader.String(), string(e.Side),
		units(e.Amount), units(e.Cost), units(e.Commission), units(e.Net),
		units(e.SupplyBefore), units(e.SupplyAfter), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetLedgerEntriesByCreator(ctx context.Context, creator solana.PublicKey) ([]model.LedgerEntry, error) {
	return s.queryLedger(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE creator = $1 ORDER BY timestamp, id`, creator.String())
}

func (s *PostgresStore) GetLedgerEntriesByTrader(ctx context.Context, trader solana.PublicKey) ([]model.LedgerEntry, error) {
	return s.queryLedger(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE trader = $1 ORDER BY timestamp, id`, trader.String())
}

func (s *PostgresStore) queryLedger(ctx context.Context, sql string, args ...any) ([]model.LedgerEntry, error) {
	rows, err := s.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var creator, trader, side string
		var amount, cost, commission, net, before, after string
		if err := rows.Scan(&e.ID, &creator, &trader, &side,
			&amount, &cost, &commission, &net, &before, &after, &e.Timestamp); err != nil {
			return nil, err
		}
		if e.Creator, err = solana.PublicKeyFromBase58(creator); err != nil {
			return nil, fmt.Errorf("ledger creator: %w", err)
		}
		if e.Trader, err = solana.PublicKeyFromBase58(trader); err != nil {
			return nil, fmt.Errorf("ledger trader: %w", err)
		}
		e.Side = model.Side(side)
		for _, f := range []struct {
			dst *uint64
			src string
		}{
			{&e.Amount, amount}, {&e.Cost, cost}, {&e.Commission, commission},
			{&e.Net, net}, {&e.SupplyBefore, before}, {&e.SupplyAfter, after},
		} {
			if *f.dst, err = parseUnits(f.src); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetTraderHoldings aggregates ledger entries into holdings per creator.
func (s *PostgresStore) GetTraderHoldings(ctx context.Context, trader solana.PublicKey) ([]model.Holding, error) {
	rows, err := s.query(ctx,
		`SELECT creator,
		        COALESCE(SUM(CASE WHEN side = 'BUY' THEN amount ELSE 0 END), 0)::TEXT,
		        COALESCE(SUM(CASE WHEN side = 'SELL' THEN amount ELSE 0 END), 0)::TEXT,
		        COALESCE(SUM(CASE WHEN side = 'BUY' THEN net ELSE -net END), 0)::TEXT
		 FROM ledger_entries
		 WHERE trader = $1
		 GROUP BY creator
		 ORDER BY creator COLLATE "C"`, trader.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var creator, bought, sold, netCost string
		if err := rows.Scan(&creator, &bought, &sold, &netCost); err != nil {
			return nil, err
		}
		h := model.Holding{Trader: trader}
		if h.Creator, err = solana.PublicKeyFromBase58(creator); err != nil {
			return nil, fmt.Errorf("holding creator: %w", err)
		}
		if h.Bought, err = parseDecimal(bought); err != nil {
			return nil, err
		}
		if h.Sold, err = parseDecimal(sold); err != nil {
			return nil, err
		}
		if h.NetCost, err = parseDecimal(netCost); err != nil {
			return nil, err
		}
		h.NetShares = h.Bought.Sub(h.Sold)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// --- helpers ---

func units(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUnits(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse units %q: %w", s, err)
	}
	return v, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool { return pgCode(err) == "23505" }

func isForeignKeyViolation(err error) bool { return pgCode(err) == "23503" }

// isOutOfRange matches both the uint64 CHECK bound and NUMERIC precision overflow.
func isOutOfRange(err error) bool {
	code := pgCode(err)
	return code == "23514" || code == "22003"
}

var _ Store = (*PostgresStore)(nil)
