package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/gravitas/share-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// Transactions are serialized: each one works on a private copy of the
// state that replaces the committed state only when fn succeeds.
type MemoryStore struct {
	txMu  sync.Mutex   // one writer at a time
	mu    sync.RWMutex // guards the state pointer
	state *memState
}

type memState struct {
	creators map[solana.PublicKey]model.Creator
	events   map[solana.PublicKey]model.Event
	balances map[solana.PublicKey]uint64
	ledger   []model.LedgerEntry
}

type memTxKey struct{}

type memTx struct {
	owner *MemoryStore
	state *memState
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			creators: make(map[solana.PublicKey]model.Creator),
			events:   make(map[solana.PublicKey]model.Event),
			balances: make(map[solana.PublicKey]uint64),
		},
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		creators: make(map[solana.PublicKey]model.Creator, len(st.creators)),
		events:   make(map[solana.PublicKey]model.Event, len(st.events)),
		balances: make(map[solana.PublicKey]uint64, len(st.balances)),
		// Capped so appends in the copy never write into the committed array.
		ledger: st.ledger[:len(st.ledger):len(st.ledger)],
	}
	for k, v := range st.creators {
		c.creators[k] = v
	}
	for k, v := range st.events {
		c.events[k] = v
	}
	for k, v := range st.balances {
		c.balances[k] = v
	}
	return c
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.staged(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	staged := s.state.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, &memTx{owner: s, state: staged})); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = staged
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) staged(ctx context.Context) *memState {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	if tx == nil || tx.owner != s {
		return nil
	}
	return tx.state
}

// read runs fn against the transaction's state if ctx carries one,
// otherwise against the committed state.
func (s *MemoryStore) read(ctx context.Context, fn func(st *memState) error) error {
	if st := s.staged(ctx); st != nil {
		return fn(st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// write runs fn inside a transaction, joining the caller's if any.
func (s *MemoryStore) write(ctx context.Context, fn func(st *memState) error) error {
	return s.WithTx(ctx, func(txCtx context.Context) error {
		return fn(s.staged(txCtx))
	})
}

// --- Creators ---

func (s *MemoryStore) CreateCreator(ctx context.Context, c *model.Creator) error {
	return s.write(ctx, func(st *memState) error {
		if _, ok := st.creators[c.Address]; ok {
			return fmt.Errorf("%w: %s", model.ErrCreatorExists, c.Address)
		}
		for _, existing := range st.creators {
			if existing.Owner.Equals(c.Owner) {
				return fmt.Errorf("%w: owner %s", model.ErrCreatorExists, c.Owner)
			}
		}
		st.creators[c.Address] = *c
		return nil
	})
}

func (s *MemoryStore) GetCreator(ctx context.Context, address solana.PublicKey) (*model.Creator, error) {
	var out model.Creator
	err := s.read(ctx, func(st *memState) error {
		c, ok := st.creators[address]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrCreatorNotFound, address)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCreatorForUpdate needs no row lock: transactions are already serialized.
func (s *MemoryStore) GetCreatorForUpdate(ctx context.Context, address solana.PublicKey) (*model.Creator, error) {
	return s.GetCreator(ctx, address)
}

func (s *MemoryStore) ListCreators(ctx context.Context) ([]model.Creator, error) {
	var out []model.Creator
	err := s.read(ctx, func(st *memState) error {
		out = make([]model.Creator, 0, len(st.creators))
		for _, c := range st.creators {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Address.String() < out[j].Address.String()
	})
	return out, err
}

func (s *MemoryStore) UpdateCreatorSupply(ctx context.Context, address solana.PublicKey, supply uint64) error {
	return s.write(ctx, func(st *memState) error {
		c, ok := st.creators[address]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrCreatorNotFound, address)
		}
		c.CurrentSupply = supply
		st.creators[address] = c
		return nil
	})
}

func (s *MemoryStore) UpdateCreatorEventCount(ctx context.Context, address solana.PublicKey, count uint64) error {
	return s.write(ctx, func(st *memState) error {
		c, ok := st.creators[address]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrCreatorNotFound, address)
		}
		c.EventCount = count
		st.creators[address] = c
		return nil
	})
}

// --- Events ---

func (s *MemoryStore) CreateEvent(ctx context.Context, e *model.Event) error {
	return s.write(ctx, func(st *memState) error {
		if _, ok := st.events[e.Address]; ok {
			return fmt.Errorf("%w: event %s", model.ErrAlreadyExists, e.Address)
		}
		if _, ok := st.creators[e.Creator]; !ok {
			return fmt.Errorf("%w: %s", model.ErrCreatorNotFound, e.Creator)
		}
		st.events[e.Address] = *e
		return nil
	})
}

func (s *MemoryStore) GetEvent(ctx context.Context, address solana.PublicKey) (*model.Event, error) {
	var out model.Event
	err := s.read(ctx, func(st *memState) error {
		e, ok := st.events[address]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrEventNotFound, address)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) ListEventsByCreator(ctx context.Context, creator solana.PublicKey) ([]model.Event, error) {
	var out []model.Event
	err := s.read(ctx, func(st *memState) error {
		for _, e := range st.events {
			if e.Creator.Equals(creator) {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}

// --- Balances ---

func (s *MemoryStore) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	var bal uint64
	err := s.read(ctx, func(st *memState) error {
		bal = st.balances[address]
		return nil
	})
	return bal, err
}

func (s *MemoryStore) Credit(ctx context.Context, address solana.PublicKey, amount uint64) error {
	return s.write(ctx, func(st *memState) error {
		return st.credit(address, amount)
	})
}

func (s *MemoryStore) Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	return s.write(ctx, func(st *memState) error {
		bal := st.balances[from]
		if bal < amount {
			return fmt.Errorf("%w: %s has %d, needs %d", model.ErrInsufficientBalance, from, bal, amount)
		}
		st.balances[from] = bal - amount
		return st.credit(to, amount)
	})
}

func (st *memState) credit(address solana.PublicKey, amount uint64) error {
	bal := st.balances[address]
	if bal+amount < bal {
		return fmt.Errorf("%w: %s", model.ErrBalanceOverflow, address)
	}
	st.balances[address] = bal + amount
	return nil
}

// --- Ledger ---

func (s *MemoryStore) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	return s.write(ctx, func(st *memState) error {
		st.ledger = append(st.ledger, *entry)
		return nil
	})
}

func (s *MemoryStore) GetLedgerEntriesByCreator(ctx context.Context, creator solana.PublicKey) ([]model.LedgerEntry, error) {
	return s.filterLedger(ctx, func(e *model.LedgerEntry) bool { return e.Creator.Equals(creator) })
}

func (s *MemoryStore) GetLedgerEntriesByTrader(ctx context.Context, trader solana.PublicKey) ([]model.LedgerEntry, error) {
	return s.filterLedger(ctx, func(e *model.LedgerEntry) bool { return e.Trader.Equals(trader) })
}

func (s *MemoryStore) filterLedger(ctx context.Context, keep func(e *model.LedgerEntry) bool) ([]model.LedgerEntry, error) {
	var result []model.LedgerEntry
	err := s.read(ctx, func(st *memState) error {
		for i := range st.ledger {
			if keep(&st.ledger[i]) {
				result = append(result, st.ledger[i])
			}
		}
		return nil
	})
	return result, err
}

// GetTraderHoldings aggregates ledger entries into holdings per creator.
func (s *MemoryStore) GetTraderHoldings(ctx context.Context, trader solana.PublicKey) ([]model.Holding, error) {
	entries, err := s.GetLedgerEntriesByTrader(ctx, trader)
	if err != nil {
		return nil, err
	}

	agg := make(map[solana.PublicKey]*model.Holding)
	for _, e := range entries {
		h, ok := agg[e.Creator]
		if !ok {
			h = &model.Holding{Trader: trader, Creator: e.Creator}
			agg[e.Creator] = h
		}
		amount, net := model.Units(e.Amount), model.Units(e.Net)
		if e.Side == model.SideBuy {
			h.Bought = h.Bought.Add(amount)
			h.NetCost = h.NetCost.Add(net)
		} else {
			h.Sold = h.Sold.Add(amount)
			h.NetCost = h.NetCost.Sub(net)
		}
	}

	holdings := make([]model.Holding, 0, len(agg))
	for _, h := range agg {
		h.NetShares = h.Bought.Sub(h.Sold)
		holdings = append(holdings, *h)
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Creator.String() < holdings[j].Creator.String()
	})
	return holdings, nil
}

var _ Store = (*MemoryStore)(nil)
