// Package curve implements the bonding curve that prices creator shares.
//
// The marginal price is a discretized linear approximation of exponential
// bonding, A * e^(B*supply/10^6):
//
//	price(s) = A + A * floor(s*B / 10^6)
//
// Aggregate cost over a traded range uses the two-point trapezoid, which is
// exact for the piecewise-linear curve above:
//
//	buyCost(s, n)      = (price(s)   + price(s+n)) * n / 2
//	sellProceeds(s, n) = (price(s-n) + price(s))   * n / 2
//
// All arithmetic is unsigned integer. Intermediate products are carried in
// 256 bits and every result saturates at math.MaxUint64 instead of wrapping,
// so an extreme supply yields a large bounded price, never a small corrupted
// one.
package curve

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/gravitas/share-engine/internal/model"
)

const (
	// DefaultBase is A, the price of a share at zero supply, in base units.
	DefaultBase uint64 = 100

	// DefaultSteepness is B, the growth factor per million shares.
	DefaultSteepness uint64 = 10

	// Scale is the supply divisor applied to s*B.
	Scale uint64 = 1_000_000

	// PriceScale is the number of decimal places for average prices.
	PriceScale int32 = 8
)

// ErrInvalidBase is returned when A is zero.
var ErrInvalidBase = errors.New("curve: base price must be positive")

// Curve is stateless: supply is passed in, never stored.
type Curve struct {
	base      uint64
	steepness uint64
}

// New creates a curve with base price a and steepness b.
func New(a, b uint64) (*Curve, error) {
	if a == 0 {
		return nil, ErrInvalidBase
	}
	return &Curve{base: a, steepness: b}, nil
}

// Default returns the production curve (A = 100, B = 10).
func Default() *Curve {
	return &Curve{base: DefaultBase, steepness: DefaultSteepness}
}

// Base returns A.
func (c *Curve) Base() uint64 { return c.base }

// Steepness returns B.
func (c *Curve) Steepness() uint64 { return c.steepness }

// Price returns the marginal price at the given supply. It is total and
// non-decreasing in supply, and never below Base.
func (c *Curve) Price(supply uint64) uint64 {
	factor := mulSat(supply, c.steepness) / Scale
	return addSat(c.base, mulSat(c.base, factor))
}

// BuyCost returns the base cost, before commission, of buying amount shares
// when supply shares are outstanding.
func (c *Curve) BuyCost(supply, amount uint64) uint64 {
	return trapezoid(c.Price(supply), c.Price(addSat(supply, amount)), amount)
}

// SellProceeds returns the base proceeds, before commission, of selling
// amount shares back into a supply of supply. Selling more than the supply
// would price negative supply and fails with ErrInsufficientShares.
func (c *Curve) SellProceeds(supply, amount uint64) (uint64, error) {
	if amount > supply {
		return 0, model.ErrInsufficientShares
	}
	return trapezoid(c.Price(supply-amount), c.Price(supply), amount), nil
}

// Commission returns floor(value * percent / 100).
func Commission(value, percent uint64) uint64 {
	v := new(uint256.Int).Mul(uint256.NewInt(value), uint256.NewInt(percent))
	return saturate(v.Div(v, uint256.NewInt(100)))
}

// Total returns cost + commission, saturating at math.MaxUint64.
func Total(cost, commission uint64) uint64 {
	return addSat(cost, commission)
}

// AvgPrice returns total/amount as a decimal rounded to PriceScale.
// A zero amount has no average and yields zero.
func AvgPrice(total, amount uint64) decimal.Decimal {
	if amount == 0 {
		return decimal.Zero
	}
	return model.Units(total).Div(model.Units(amount)).Round(PriceScale)
}

// trapezoid computes (p0 + p1) * n / 2 without intermediate overflow.
func trapezoid(p0, p1, n uint64) uint64 {
	sum := new(uint256.Int).Add(uint256.NewInt(p0), uint256.NewInt(p1))
	sum.Mul(sum, uint256.NewInt(n))
	return saturate(sum.Div(sum, uint256.NewInt(2)))
}

func mulSat(a, b uint64) uint64 {
	return saturate(new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b)))
}

func addSat(a, b uint64) uint64 {
	return saturate(new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b)))
}

func saturate(v *uint256.Int) uint64 {
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}
