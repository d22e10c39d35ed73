package settlement

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/gravitas/share-engine/internal/curve"
	"github.com/gravitas/share-engine/internal/model"
)

// GetBuyPrice returns the curve cost, before commission, of buying amount
// shares at the creator's current supply.
func (e *Engine) GetBuyPrice(ctx context.Context, creator solana.PublicKey, amount uint64) (uint64, error) {
	price, _, err := e.PriceAt(ctx, creator, model.SideBuy, amount)
	return price, err
}

// GetSellPrice returns the curve proceeds, before commission, of selling
// amount shares at the creator's current supply. Fails with
// ErrInsufficientShares when amount exceeds the supply.
func (e *Engine) GetSellPrice(ctx context.Context, creator solana.PublicKey, amount uint64) (uint64, error) {
	price, _, err := e.PriceAt(ctx, creator, model.SideSell, amount)
	return price, err
}

// PriceAt returns the pre-commission curve value of trading amount shares
// together with the supply it was priced at. Both come from one read of the
// creator record.
func (e *Engine) PriceAt(ctx context.Context, creator solana.PublicKey, side model.Side, amount uint64) (price, supply uint64, err error) {
	c, err := e.store.GetCreator(ctx, creator)
	if err != nil {
		return 0, 0, err
	}
	supply = c.CurrentSupply
	switch side {
	case model.SideBuy:
		price = e.curve.BuyCost(supply, amount)
	case model.SideSell:
		if price, err = e.curve.SellProceeds(supply, amount); err != nil {
			return 0, supply, err
		}
	default:
		return 0, supply, fmt.Errorf("unknown side %q", side)
	}
	return price, supply, nil
}

// GetCurrentSupply returns the creator's outstanding share supply.
func (e *Engine) GetCurrentSupply(ctx context.Context, creator solana.PublicKey) (uint64, error) {
	c, err := e.store.GetCreator(ctx, creator)
	if err != nil {
		return 0, err
	}
	return c.CurrentSupply, nil
}

// Quote prices a trade without settling it. Net is the total a buyer would
// be charged or the payout a seller would receive.
func (e *Engine) Quote(ctx context.Context, creator solana.PublicKey, side model.Side, amount uint64) (*model.Quote, error) {
	if amount == 0 {
		return nil, model.ErrInvalidAmount
	}
	c, err := e.store.GetCreator(ctx, creator)
	if err != nil {
		return nil, err
	}

	q := &model.Quote{Creator: creator, Side: side, Amount: amount, Supply: c.CurrentSupply}
	switch side {
	case model.SideBuy:
		if c.CurrentSupply+amount < c.CurrentSupply {
			return nil, model.ErrInvalidAmount
		}
		q.Cost = e.curve.BuyCost(c.CurrentSupply, amount)
		q.Commission = curve.Commission(q.Cost, BuyCommissionPercent)
		q.Net = curve.Total(q.Cost, q.Commission)
	case model.SideSell:
		if q.Cost, err = e.curve.SellProceeds(c.CurrentSupply, amount); err != nil {
			return nil, err
		}
		q.Commission = curve.Commission(q.Cost, SellCommissionPercent)
		q.Net = q.Cost - q.Commission
	default:
		return nil, fmt.Errorf("unknown side %q", side)
	}
	q.AvgPrice = curve.AvgPrice(q.Net, amount)
	return q, nil
}

// History returns the settled trades of a creator, oldest first.
func (e *Engine) History(ctx context.Context, creator solana.PublicKey) ([]model.LedgerEntry, error) {
	if _, err := e.store.GetCreator(ctx, creator); err != nil {
		return nil, err
	}
	return e.store.GetLedgerEntriesByCreator(ctx, creator)
}

// Portfolio values a trader's holdings at each creator's current spot price.
func (e *Engine) Portfolio(ctx context.Context, trader solana.PublicKey) (*model.Portfolio, error) {
	balance, err := e.store.GetBalance(ctx, trader)
	if err != nil {
		return nil, err
	}
	holdings, err := e.store.GetTraderHoldings(ctx, trader)
	if err != nil {
		return nil, err
	}

	p := &model.Portfolio{
		Trader:     trader,
		Balance:    balance,
		Holdings:   holdings,
		TotalValue: decimal.Zero,
		TotalPnL:   decimal.Zero,
	}
	if p.Holdings == nil {
		p.Holdings = []model.Holding{}
	}
	for i := range p.Holdings {
		h := &p.Holdings[i]
		c, err := e.store.GetCreator(ctx, h.Creator)
		if err != nil {
			return nil, err
		}
		h.SpotPrice = model.Units(e.curve.Price(c.CurrentSupply))
		h.CurrentValue = h.NetShares.Mul(h.SpotPrice)
		h.UnrealizedPnL = h.CurrentValue.Sub(h.NetCost)
		p.TotalValue = p.TotalValue.Add(h.CurrentValue)
		p.TotalPnL = p.TotalPnL.Add(h.UnrealizedPnL)
	}
	return p, nil
}
