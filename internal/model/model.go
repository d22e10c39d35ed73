// Package model defines the core domain types shared across the share engine.
// Native currency and share quantities are uint64 base units; decimal is used
// only for derived, reporting-side values (averages, valuations).
package model

import (
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Text bounds, in bytes.
const (
	MaxNameLen  = 32
	MaxBioLen   = 256
	MaxTitleLen = 100
)

// InitialSupply is the share supply of a freshly registered creator.
const InitialSupply uint64 = 1

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Creator is the ledger record of a share-issuing creator. Its address is
// derived from the owner, so there is at most one record per owner.
// CurrentSupply is written only by trade settlement; EventCount only by the
// event gate.
type Creator struct {
	Address       solana.PublicKey `json:"address" db:"address"`
	Owner         solana.PublicKey `json:"owner" db:"owner"`
	Name          string           `json:"name" db:"name"`
	Bio           string           `json:"bio" db:"bio"`
	CurrentSupply uint64           `json:"current_supply" db:"current_supply"`
	EventCount    uint64           `json:"event_count" db:"event_count"`
	Bump          uint8            `json:"bump" db:"bump"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// Event is a time-boxed event gated behind a minimum share holding.
// Sequence is the creator's EventCount at creation and is part of the
// derived address. Events are never mutated or deleted.
type Event struct {
	Address        solana.PublicKey `json:"address" db:"address"`
	Creator        solana.PublicKey `json:"creator" db:"creator"`
	Sequence       uint64           `json:"sequence" db:"sequence"`
	Title          string           `json:"title" db:"title"`
	Date           time.Time        `json:"date" db:"date"`
	RequiredShares uint64           `json:"required_shares" db:"required_shares"`
	Bump           uint8            `json:"bump" db:"bump"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// LedgerEntry is an immutable record of a settled trade.
// For buys Net is the total charged to the trader (Cost + Commission);
// for sells it is the payout (Cost - Commission).
type LedgerEntry struct {
	ID           string           `json:"id" db:"id"`
	Creator      solana.PublicKey `json:"creator" db:"creator"`
	Trader       solana.PublicKey `json:"trader" db:"trader"`
	Side         Side             `json:"side" db:"side"`
	Amount       uint64           `json:"amount" db:"amount"`
	Cost         uint64           `json:"cost" db:"cost"` // curve cost or proceeds
	Commission   uint64           `json:"commission" db:"commission"`
	Net          uint64           `json:"net" db:"net"`
	SupplyBefore uint64           `json:"supply_before" db:"supply_before"`
	SupplyAfter  uint64           `json:"supply_after" db:"supply_after"`
	Timestamp    time.Time        `json:"timestamp" db:"timestamp"`
}

// Holding aggregates a trader's ledger entries for one creator.
// Holdings are informational: sells are bounded by creator supply, not by
// what the trader bought.
type Holding struct {
	Trader        solana.PublicKey `json:"trader"`
	Creator       solana.PublicKey `json:"creator"`
	Bought        decimal.Decimal  `json:"bought"`
	Sold          decimal.Decimal  `json:"sold"`
	NetShares     decimal.Decimal  `json:"net_shares"`     // bought - sold
	NetCost       decimal.Decimal  `json:"net_cost"`       // charged - paid out
	SpotPrice     decimal.Decimal  `json:"spot_price"`     // marginal price at current supply
	CurrentValue  decimal.Decimal  `json:"current_value"`  // net shares at spot
	UnrealizedPnL decimal.Decimal  `json:"unrealized_pnl"` // currentValue - netCost
}

// Portfolio aggregates all holdings for a trader.
type Portfolio struct {
	Trader     solana.PublicKey `json:"trader"`
	Balance    uint64           `json:"balance"`
	Holdings   []Holding        `json:"holdings"`
	TotalValue decimal.Decimal  `json:"total_value"`
	TotalPnL   decimal.Decimal  `json:"total_pnl"`
}

// Quote is a priced but unsettled trade.
type Quote struct {
	Creator    solana.PublicKey `json:"creator"`
	Side       Side             `json:"side"`
	Amount     uint64           `json:"amount"`
	Supply     uint64           `json:"supply"`
	Cost       uint64           `json:"cost"`
	Commission uint64           `json:"commission"`
	Net        uint64           `json:"net"`
	AvgPrice   decimal.Decimal  `json:"avg_price"`
}

// Units converts a base-unit quantity to a decimal for reporting.
func Units(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
