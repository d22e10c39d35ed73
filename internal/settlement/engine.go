// Package settlement prices and settles share trades against a creator's
// bonding curve.
//
// A buy moves the curve cost from the trader into the pool account and a
// commission from the trader to the creator record; a sell pays the curve
// proceeds out of the pool, less a commission that also goes to the creator.
// Every trade is one store transaction: both transfers, the supply update and
// the ledger append commit together or not at all.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/gravitas/share-engine/internal/address"
	"github.com/gravitas/share-engine/internal/clock"
	"github.com/gravitas/share-engine/internal/curve"
	"github.com/gravitas/share-engine/internal/limits"
	"github.com/gravitas/share-engine/internal/model"
	"github.com/gravitas/share-engine/internal/store"
)

// Commission rates, in percent of the curve value.
const (
	BuyCommissionPercent  uint64 = 20
	SellCommissionPercent uint64 = 5
)

// Engine settles trades. It holds the only handle able to move pool funds.
type Engine struct {
	store   store.Store
	curve   *curve.Curve
	pool    poolSigner
	limiter *limits.TradeLimiter
	clock   clock.Clock
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCurve overrides the default curve (A=100, B=10).
func WithCurve(c *curve.Curve) Option {
	return func(e *Engine) { e.curve = c }
}

// WithLimiter enables buy limits.
func WithLimiter(l *limits.TradeLimiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithClock sets the clock used to timestamp ledger entries.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over st. The pool account is derived from deriver's
// program id.
func New(st store.Store, deriver *address.Deriver, opts ...Option) (*Engine, error) {
	pool, err := newPoolSigner(deriver)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:  st,
		curve:  curve.Default(),
		pool:   pool,
		clock:  clock.NewSystem(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// PoolAddress returns the pool account address. Anyone may fund it; only
// the engine can spend from it.
func (e *Engine) PoolAddress() solana.PublicKey {
	return e.pool.derived.Address
}

// PoolBalance returns the pool account balance.
func (e *Engine) PoolBalance(ctx context.Context) (uint64, error) {
	return e.store.GetBalance(ctx, e.pool.derived.Address)
}

// Curve returns the pricing curve in use.
func (e *Engine) Curve() *curve.Curve {
	return e.curve
}

// poolSigner authorizes transfers out of the pool account. It re-derives
// the address from seed and bump before every transfer, so a signer built
// for one program id cannot spend another's pool.
type poolSigner struct {
	deriver *address.Deriver
	derived address.Derived
}

func newPoolSigner(deriver *address.Deriver) (poolSigner, error) {
	derived, err := deriver.Pool()
	if err != nil {
		return poolSigner{}, fmt.Errorf("derive pool: %w", err)
	}
	return poolSigner{deriver: deriver, derived: derived}, nil
}

func (p poolSigner) transfer(ctx context.Context, st store.Store, to solana.PublicKey, amount uint64) error {
	if err := p.deriver.VerifyPool(p.derived); err != nil {
		return err
	}
	err := st.Transfer(ctx, p.derived.Address, to, amount)
	if errors.Is(err, model.ErrInsufficientBalance) {
		return fmt.Errorf("%w: %v", model.ErrInsufficientContractBalance, err)
	}
	return err
}
