// Package limits implements optional caps on share purchases.
//
// Holdings are informational in the share engine (sells are bounded by
// creator supply, not by what a trader bought), so limits apply to buys
// only. A zero limit disables that check.
package limits

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var (
	// ErrTradeAmountExceeded is returned when a single buy asks for more
	// shares than MaxTradeAmount.
	ErrTradeAmountExceeded = errors.New("limits: trade amount limit exceeded")

	// ErrPerCreatorLimitExceeded is returned when a buy would push the
	// trader's net shares in one creator beyond MaxPerCreator.
	ErrPerCreatorLimitExceeded = errors.New("limits: per-creator holding limit exceeded")

	// ErrTotalLimitExceeded is returned when a buy would push the trader's
	// net shares across all creators beyond MaxTotal.
	ErrTotalLimitExceeded = errors.New("limits: total holding limit exceeded")
)

// TradeLimiter enforces per-trade and per-trader holding caps.
type TradeLimiter struct {
	// MaxTradeAmount caps the shares in a single buy.
	MaxTradeAmount decimal.Decimal

	// MaxPerCreator caps a trader's net shares in any single creator.
	MaxPerCreator decimal.Decimal

	// MaxTotal caps a trader's net shares summed over all creators.
	// Negative net positions (sold more than bought) count as zero.
	MaxTotal decimal.Decimal
}

// NewTradeLimiter creates a limiter. Pass decimal.Zero to disable a cap.
func NewTradeLimiter(maxTradeAmount, maxPerCreator, maxTotal decimal.Decimal) *TradeLimiter {
	return &TradeLimiter{
		MaxTradeAmount: maxTradeAmount,
		MaxPerCreator:  maxPerCreator,
		MaxTotal:       maxTotal,
	}
}

// Enabled reports whether any cap is set.
func (l *TradeLimiter) Enabled() bool {
	return l != nil && (l.MaxTradeAmount.IsPositive() || l.MaxPerCreator.IsPositive() || l.MaxTotal.IsPositive())
}

// CheckBuy validates a buy of amount shares of creator against the trader's
// existing net shares per creator. Returns nil if the buy is within limits.
func (l *TradeLimiter) CheckBuy(
	creator solana.PublicKey,
	amount decimal.Decimal,
	netShares map[solana.PublicKey]decimal.Decimal,
) error {
	if !l.Enabled() {
		return nil
	}

	// 1. Single trade.
	if l.MaxTradeAmount.IsPositive() && amount.GreaterThan(l.MaxTradeAmount) {
		return ErrTradeAmountExceeded
	}

	// 2. Per-creator holding.
	newPosition := nonNegative(netShares[creator]).Add(amount)
	if l.MaxPerCreator.IsPositive() && newPosition.GreaterThan(l.MaxPerCreator) {
		return ErrPerCreatorLimitExceeded
	}

	// 3. Total across creators.
	if l.MaxTotal.IsPositive() {
		total := newPosition
		for c, shares := range netShares {
			if c.Equals(creator) {
				continue // already counted via newPosition above
			}
			total = total.Add(nonNegative(shares))
		}
		if total.GreaterThan(l.MaxTotal) {
			return ErrTotalLimitExceeded
		}
	}

	return nil
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
