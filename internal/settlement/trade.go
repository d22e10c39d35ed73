package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gravitas/share-engine/internal/curve"
	"github.com/gravitas/share-engine/internal/limits"
	"github.com/gravitas/share-engine/internal/metrics"
	"github.com/gravitas/share-engine/internal/model"
)

// BuyShares buys amount shares of creator for trader. The trader pays the
// curve cost into the pool plus a 20% commission to the creator.
//
// Fails with ErrInvalidAmount for a zero amount or one that would overflow
// the supply, ErrInsufficientFunds if the trader cannot cover cost plus
// commission, ErrInvalidTrader if trader is a program-derived account,
// ErrCreatorNotFound, or a limits error when a limiter is set.
// Nothing is written on failure.
func (e *Engine) BuyShares(ctx context.Context, creator, trader solana.PublicKey, amount uint64) (*model.LedgerEntry, error) {
	start := time.Now()
	if amount == 0 {
		return nil, e.reject(model.SideBuy, creator, trader, amount, model.ErrInvalidAmount)
	}
	if err := checkTrader(trader); err != nil {
		return nil, e.reject(model.SideBuy, creator, trader, amount, err)
	}

	var entry *model.LedgerEntry
	err := e.store.WithTx(ctx, func(txCtx context.Context) error {
		c, err := e.store.GetCreatorForUpdate(txCtx, creator)
		if err != nil {
			return err
		}
		supply := c.CurrentSupply
		if supply+amount < supply {
			return fmt.Errorf("%w: supply %d cannot grow by %d", model.ErrInvalidAmount, supply, amount)
		}
		if err := e.checkLimits(txCtx, creator, trader, amount); err != nil {
			return err
		}

		cost := e.curve.BuyCost(supply, amount)
		commission := curve.Commission(cost, BuyCommissionPercent)
		total := curve.Total(cost, commission)

		balance, err := e.store.GetBalance(txCtx, trader)
		if err != nil {
			return err
		}
		if balance < total {
			return fmt.Errorf("%w: balance %d, need %d", model.ErrInsufficientFunds, balance, total)
		}

		if err := e.debitTrader(txCtx, trader, e.PoolAddress(), cost); err != nil {
			return err
		}
		if err := e.debitTrader(txCtx, trader, c.Address, commission); err != nil {
			return err
		}
		if err := e.store.UpdateCreatorSupply(txCtx, creator, supply+amount); err != nil {
			return err
		}

		entry = &model.LedgerEntry{
			ID:           uuid.New().String(),
			Creator:      creator,
			Trader:       trader,
			Side:         model.SideBuy,
			Amount:       amount,
			Cost:         cost,
			Commission:   commission,
			Net:          total,
			SupplyBefore: supply,
			SupplyAfter:  supply + amount,
			Timestamp:    e.clock.Now(),
		}
		return e.store.InsertLedgerEntry(txCtx, entry)
	})
	if err != nil {
		return nil, e.reject(model.SideBuy, creator, trader, amount, err)
	}

	e.settled(ctx, entry, start)
	return entry, nil
}

// SellShares sells amount shares of creator for trader. The pool pays the
// curve proceeds less a 5% commission to the trader and the commission to
// the creator.
//
// Fails with ErrInvalidAmount for a zero amount, ErrInsufficientShares if
// amount exceeds the creator's supply, ErrInsufficientContractBalance if the
// pool cannot cover the proceeds, ErrInvalidTrader if trader is a
// program-derived account, or ErrCreatorNotFound. Nothing is written on
// failure.
func (e *Engine) SellShares(ctx context.Context, creator, trader solana.PublicKey, amount uint64) (*model.LedgerEntry, error) {
	start := time.Now()
	if amount == 0 {
		return nil, e.reject(model.SideSell, creator, trader, amount, model.ErrInvalidAmount)
	}
	if err := checkTrader(trader); err != nil {
		return nil, e.reject(model.SideSell, creator, trader, amount, err)
	}

	var entry *model.LedgerEntry
	err := e.store.WithTx(ctx, func(txCtx context.Context) error {
		c, err := e.store.GetCreatorForUpdate(txCtx, creator)
		if err != nil {
			return err
		}
		supply := c.CurrentSupply
		proceeds, err := e.curve.SellProceeds(supply, amount)
		if err != nil {
			return err
		}
		commission := curve.Commission(proceeds, SellCommissionPercent)
		payout := proceeds - commission

		poolBalance, err := e.store.GetBalance(txCtx, e.PoolAddress())
		if err != nil {
			return err
		}
		if poolBalance < proceeds {
			return fmt.Errorf("%w: pool holds %d, owes %d", model.ErrInsufficientContractBalance, poolBalance, proceeds)
		}

		if err := e.pool.transfer(txCtx, e.store, trader, payout); err != nil {
			return err
		}
		if err := e.pool.transfer(txCtx, e.store, c.Address, commission); err != nil {
			return err
		}
		if err := e.store.UpdateCreatorSupply(txCtx, creator, supply-amount); err != nil {
			return err
		}

		entry = &model.LedgerEntry{
			ID:           uuid.New().String(),
			Creator:      creator,
			Trader:       trader,
			Side:         model.SideSell,
			Amount:       amount,
			Cost:         proceeds,
			Commission:   commission,
			Net:          payout,
			SupplyBefore: supply,
			SupplyAfter:  supply - amount,
			Timestamp:    e.clock.Now(),
		}
		return e.store.InsertLedgerEntry(txCtx, entry)
	})
	if err != nil {
		return nil, e.reject(model.SideSell, creator, trader, amount, err)
	}

	e.settled(ctx, entry, start)
	return entry, nil
}

// checkTrader rejects program-derived addresses (the pool, creator and event
// accounts). They have no private key, so no caller can trade as them.
func checkTrader(trader solana.PublicKey) error {
	if !solana.IsOnCurve(trader.Bytes()) {
		return fmt.Errorf("%w: %s", model.ErrInvalidTrader, trader)
	}
	return nil
}

// debitTrader moves trader funds, reporting a shortfall as ErrInsufficientFunds.
func (e *Engine) debitTrader(ctx context.Context, trader, to solana.PublicKey, amount uint64) error {
	err := e.store.Transfer(ctx, trader, to, amount)
	if errors.Is(err, model.ErrInsufficientBalance) {
		return fmt.Errorf("%w: %v", model.ErrInsufficientFunds, err)
	}
	return err
}

func (e *Engine) checkLimits(ctx context.Context, creator, trader solana.PublicKey, amount uint64) error {
	if !e.limiter.Enabled() {
		return nil
	}
	holdings, err := e.store.GetTraderHoldings(ctx, trader)
	if err != nil {
		return err
	}
	netShares := make(map[solana.PublicKey]decimal.Decimal, len(holdings))
	for _, h := range holdings {
		netShares[h.Creator] = h.NetShares
	}
	if err := e.limiter.CheckBuy(creator, model.Units(amount), netShares); err != nil {
		metrics.LimitRejections.Inc()
		return err
	}
	return nil
}

func (e *Engine) settled(ctx context.Context, entry *model.LedgerEntry, start time.Time) {
	side := string(entry.Side)
	metrics.TradesTotal.WithLabelValues(side).Inc()
	metrics.TradeLatency.WithLabelValues(side).Observe(time.Since(start).Seconds())
	metrics.ShareVolume.WithLabelValues(side).Add(float64(entry.Amount))
	metrics.CommissionPaid.WithLabelValues(side).Add(float64(entry.Commission))
	if bal, err := e.PoolBalance(ctx); err == nil {
		metrics.PoolBalance.Set(float64(bal))
	}

	e.logger.Info("trade settled",
		"id", entry.ID,
		"side", side,
		"creator", entry.Creator.String(),
		"trader", entry.Trader.String(),
		"amount", entry.Amount,
		"cost", entry.Cost,
		"commission", entry.Commission,
		"net", entry.Net,
		"supply", entry.SupplyAfter,
	)
}

func (e *Engine) reject(side model.Side, creator, trader solana.PublicKey, amount uint64, err error) error {
	metrics.TradeRejections.WithLabelValues(string(side), rejectReason(err)).Inc()
	e.logger.Debug("trade rejected",
		"side", string(side),
		"creator", creator.String(),
		"trader", trader.String(),
		"amount", amount,
		"err", err,
	)
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, model.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, model.ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, model.ErrInsufficientContractBalance):
		return "insufficient_contract_balance"
	case errors.Is(err, model.ErrCreatorNotFound):
		return "creator_not_found"
	case errors.Is(err, model.ErrInvalidTrader):
		return "invalid_trader"
	case errors.Is(err, limits.ErrTradeAmountExceeded),
		errors.Is(err, limits.ErrPerCreatorLimitExceeded),
		errors.Is(err, limits.ErrTotalLimitExceeded):
		return "limit"
	default:
		return "internal"
	}
}
