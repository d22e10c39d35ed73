package curve

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/gravitas/share-engine/internal/model"
)

// --- Constructor tests ---

func TestNew_Valid(t *testing.T) {
	c, err := New(100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Base() != 100 || c.Steepness() != 10 {
		t.Errorf("expected A=100 B=10, got A=%d B=%d", c.Base(), c.Steepness())
	}
}

func TestNew_ZeroBase(t *testing.T) {
	if _, err := New(0, 10); err != ErrInvalidBase {
		t.Errorf("expected ErrInvalidBase, got %v", err)
	}
}

// --- Price function tests ---

func TestPrice_Steps(t *testing.T) {
	c := Default()
	tests := []struct {
		supply uint64
		want   uint64
	}{
		{0, 100},
		{1, 100},
		{11, 100},
		{99_999, 100},
		{100_000, 200},
		{199_999, 200},
		{200_000, 300},
		{1_000_000, 1100},
	}
	for _, tt := range tests {
		if got := c.Price(tt.supply); got != tt.want {
			t.Errorf("Price(%d) = %d, want %d", tt.supply, got, tt.want)
		}
	}
}

func TestPrice_SaturatesInsteadOfWrapping(t *testing.T) {
	c := Default()
	// supply*B clamps to MaxUint64 before the division.
	const ceiling uint64 = 100 + 100*(math.MaxUint64/1_000_000)

	if got := c.Price(math.MaxUint64); got != ceiling {
		t.Errorf("Price(MaxUint64) = %d, want %d", got, ceiling)
	}
	justOver := uint64(math.MaxUint64/10) + 1
	if got := c.Price(justOver); got != ceiling {
		t.Errorf("Price(%d) = %d, want %d", justOver, got, ceiling)
	}
	if c.Price(justOver) < c.Price(justOver-1) {
		t.Error("price must not drop when supply*B crosses the ceiling")
	}
}

func TestPrice_SaturatingAddition(t *testing.T) {
	c, _ := New(math.MaxUint64/2, 1_000_000)
	if got := c.Price(10); got != math.MaxUint64 {
		t.Errorf("expected saturated price, got %d", got)
	}
}

// --- Integrator tests ---

func TestBuyCost_RoundTripExample(t *testing.T) {
	c := Default()

	cost := c.BuyCost(1, 10)
	if cost != 1000 {
		t.Fatalf("BuyCost(1, 10) = %d, want 1000", cost)
	}
	if got := Commission(cost, 20); got != 200 {
		t.Errorf("buy commission = %d, want 200", got)
	}

	proceeds, err := c.SellProceeds(11, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proceeds != 1000 {
		t.Fatalf("SellProceeds(11, 10) = %d, want 1000", proceeds)
	}
	if got := Commission(proceeds, 5); got != 50 {
		t.Errorf("sell commission = %d, want 50", got)
	}
}

func TestBuyCost_AcrossStep(t *testing.T) {
	c := Default()
	// price(99_990) = 100, price(100_010) = 200.
	if got := c.BuyCost(99_990, 20); got != 3000 {
		t.Errorf("BuyCost(99990, 20) = %d, want 3000", got)
	}
}

func TestBuyCost_ZeroAmount(t *testing.T) {
	if got := Default().BuyCost(500, 0); got != 0 {
		t.Errorf("expected zero cost for zero amount, got %d", got)
	}
}

func TestBuyCost_Saturates(t *testing.T) {
	c := Default()
	if got := c.BuyCost(0, math.MaxUint64); got != math.MaxUint64 {
		t.Errorf("expected saturated cost, got %d", got)
	}
	if got := c.BuyCost(math.MaxUint64, math.MaxUint64); got != math.MaxUint64 {
		t.Errorf("expected saturated cost at saturated supply, got %d", got)
	}
}

func TestSellProceeds_OverSupply(t *testing.T) {
	_, err := Default().SellProceeds(5, 6)
	if !errors.Is(err, model.ErrInsufficientShares) {
		t.Errorf("expected ErrInsufficientShares, got %v", err)
	}
}

func TestSellProceeds_EntireSupply(t *testing.T) {
	got, err := Default().SellProceeds(1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100 {
		t.Errorf("SellProceeds(1, 1) = %d, want 100", got)
	}
}

func TestCommission_Wide(t *testing.T) {
	if got := Commission(math.MaxUint64, 20); got != math.MaxUint64/5 {
		t.Errorf("Commission(MaxUint64, 20) = %d, want %d", got, uint64(math.MaxUint64/5))
	}
	if got := Commission(19, 5); got != 0 {
		t.Errorf("Commission(19, 5) = %d, want 0 (floor)", got)
	}
}

func TestTotal(t *testing.T) {
	if got := Total(1000, 200); got != 1200 {
		t.Errorf("Total(1000, 200) = %d, want 1200", got)
	}
	if got := Total(math.MaxUint64-10, Commission(math.MaxUint64-10, 20)); got != math.MaxUint64 {
		t.Errorf("Total near the ceiling = %d, want MaxUint64", got)
	}
}

func TestAvgPrice(t *testing.T) {
	if got := AvgPrice(1000, 10); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100, got %s", got)
	}
	if got := AvgPrice(10, 3); !got.Equal(decimal.RequireFromString("3.33333333")) {
		t.Errorf("expected 3.33333333, got %s", got)
	}
	if got := AvgPrice(10, 0); !got.IsZero() {
		t.Errorf("expected zero for zero amount, got %s", got)
	}
}

// --- Properties ---

func TestProperty_PriceFloorAndMonotone(t *testing.T) {
	c := Default()
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.Uint64().Draw(t, "supply")
		k := rapid.Uint64Range(0, 1<<40).Draw(t, "step")

		p := c.Price(s)
		if p < c.Base() {
			t.Fatalf("price(%d) = %d below base", s, p)
		}
		next := s + k
		if next < s {
			next = math.MaxUint64
		}
		if c.Price(next) < p {
			t.Fatalf("price decreased from supply %d to %d", s, next)
		}
	})
}

func TestProperty_BuyCostStrictlyIncreasing(t *testing.T) {
	c := Default()
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.Uint64Range(0, 1_000_000_000_000).Draw(t, "supply")
		a := rapid.Uint64Range(0, 1_000_000_000).Draw(t, "amount")

		if c.BuyCost(s, a+1) <= c.BuyCost(s, a) {
			t.Fatalf("buyCost(%d, %d) not increasing", s, a)
		}
	})
}

func TestProperty_RoundTripNeverDrainsPool(t *testing.T) {
	c := Default()
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.Uint64Range(0, 1_000_000_000_000).Draw(t, "supply")
		n := rapid.Uint64Range(1, 1_000_000_000).Draw(t, "amount")

		cost := c.BuyCost(s, n)
		charged := Total(cost, Commission(cost, 20))

		proceeds, err := c.SellProceeds(s+n, n)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		payout := proceeds - Commission(proceeds, 5)

		if proceeds > cost {
			t.Fatalf("pool pays %d for shares it sold for %d", proceeds, cost)
		}
		if payout > charged {
			t.Fatalf("trader gains on round trip: charged %d, paid %d", charged, payout)
		}
	})
}
