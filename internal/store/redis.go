package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"

	"github.com/gravitas/share-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for creator and event records. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary. Balances and the ledger are never cached.
//
// Reads made inside a transaction always go to the primary so they see the
// transaction's own writes. Invalidations issued inside a transaction are
// deferred until it commits.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		logger:  slog.Default(),
	}
}

type cacheTxKey struct{}

type pendingKeys struct {
	mu   sync.Mutex
	keys []string
}

func pendingFrom(ctx context.Context) *pendingKeys {
	p, _ := ctx.Value(cacheTxKey{}).(*pendingKeys)
	return p
}

func (s *CachedStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if pendingFrom(ctx) != nil {
		return s.primary.WithTx(ctx, fn)
	}

	p := &pendingKeys{}
	if err := s.primary.WithTx(context.WithValue(ctx, cacheTxKey{}, p), fn); err != nil {
		return err
	}
	if len(p.keys) > 0 {
		s.del(context.WithoutCancel(ctx), p.keys...)
	}
	return nil
}

// invalidate drops keys now, or at commit when ctx carries a transaction.
func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if p := pendingFrom(ctx); p != nil {
		p.mu.Lock()
		p.keys = append(p.keys, keys...)
		p.mu.Unlock()
		return
	}
	s.del(ctx, keys...)
}

// del removes keys from Redis. A failure leaves stale entries until their
// TTL expires.
func (s *CachedStore) del(ctx context.Context, keys ...string) {
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "err", err)
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateCreator(ctx context.Context, c *model.Creator) error {
	if err := s.primary.CreateCreator(ctx, c); err != nil {
		return err
	}
	s.invalidate(ctx, creatorKey(c.Address))
	return nil
}

func (s *CachedStore) UpdateCreatorSupply(ctx context.Context, address solana.PublicKey, supply uint64) error {
	if err := s.primary.UpdateCreatorSupply(ctx, address, supply); err != nil {
		return err
	}
	s.invalidate(ctx, creatorKey(address))
	return nil
}

func (s *CachedStore) UpdateCreatorEventCount(ctx context.Context, address solana.PublicKey, count uint64) error {
	if err := s.primary.UpdateCreatorEventCount(ctx, address, count); err != nil {
		return err
	}
	s.invalidate(ctx, creatorKey(address), eventsKey(address))
	return nil
}

func (s *CachedStore) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := s.primary.CreateEvent(ctx, e); err != nil {
		return err
	}
	s.invalidate(ctx, eventKey(e.Address), eventsKey(e.Creator))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetCreator(ctx context.Context, address solana.PublicKey) (*model.Creator, error) {
	if pendingFrom(ctx) != nil {
		return s.primary.GetCreator(ctx, address)
	}
	var c model.Creator
	if s.load(ctx, creatorKey(address), &c) {
		return &c, nil
	}

	// Cache miss: read from primary.
	got, err := s.primary.GetCreator(ctx, address)
	if err != nil {
		return nil, err
	}
	s.save(ctx, creatorKey(address), got)
	return got, nil
}

func (s *CachedStore) GetEvent(ctx context.Context, address solana.PublicKey) (*model.Event, error) {
	if pendingFrom(ctx) != nil {
		return s.primary.GetEvent(ctx, address)
	}
	var e model.Event
	if s.load(ctx, eventKey(address), &e) {
		return &e, nil
	}

	got, err := s.primary.GetEvent(ctx, address)
	if err != nil {
		return nil, err
	}
	s.save(ctx, eventKey(address), got)
	return got, nil
}

func (s *CachedStore) ListEventsByCreator(ctx context.Context, creator solana.PublicKey) ([]model.Event, error) {
	if pendingFrom(ctx) != nil {
		return s.primary.ListEventsByCreator(ctx, creator)
	}
	var events []model.Event
	if s.load(ctx, eventsKey(creator), &events) {
		return events, nil
	}

	events, err := s.primary.ListEventsByCreator(ctx, creator)
	if err != nil {
		return nil, err
	}
	s.save(ctx, eventsKey(creator), events)
	return events, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetCreatorForUpdate(ctx context.Context, address solana.PublicKey) (*model.Creator, error) {
	return s.primary.GetCreatorForUpdate(ctx, address)
}

func (s *CachedStore) ListCreators(ctx context.Context) ([]model.Creator, error) {
	return s.primary.ListCreators(ctx)
}

func (s *CachedStore) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	return s.primary.GetBalance(ctx, address)
}

func (s *CachedStore) Credit(ctx context.Context, address solana.PublicKey, amount uint64) error {
	return s.primary.Credit(ctx, address, amount)
}

func (s *CachedStore) Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error {
	return s.primary.Transfer(ctx, from, to, amount)
}

func (s *CachedStore) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	return s.primary.InsertLedgerEntry(ctx, entry)
}

func (s *CachedStore) GetLedgerEntriesByCreator(ctx context.Context, creator solana.PublicKey) ([]model.LedgerEntry, error) {
	return s.primary.GetLedgerEntriesByCreator(ctx, creator)
}

func (s *CachedStore) GetLedgerEntriesByTrader(ctx context.Context, trader solana.PublicKey) ([]model.LedgerEntry, error) {
	return s.primary.GetLedgerEntriesByTrader(ctx, trader)
}

func (s *CachedStore) GetTraderHoldings(ctx context.Context, trader solana.PublicKey) ([]model.Holding, error) {
	return s.primary.GetTraderHoldings(ctx, trader)
}

// --- Cache helpers ---

func (s *CachedStore) load(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) save(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func creatorKey(a solana.PublicKey) string { return fmt.Sprintf("share:creator:%s", a) }
func eventsKey(a solana.PublicKey) string  { return fmt.Sprintf("share:creator:%s:events", a) }
func eventKey(a solana.PublicKey) string   { return fmt.Sprintf("share:event:%s", a) }

var _ Store = (*CachedStore)(nil)
