package limits

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

func key(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	return k.PublicKey()
}

func TestCheckBuy_Disabled(t *testing.T) {
	var nilLimiter *TradeLimiter
	if err := nilLimiter.CheckBuy(key(t), d(1_000_000), nil); err != nil {
		t.Errorf("nil limiter: expected no error, got %v", err)
	}

	limiter := NewTradeLimiter(decimal.Zero, decimal.Zero, decimal.Zero)
	if limiter.Enabled() {
		t.Error("zero caps should leave the limiter disabled")
	}
	if err := limiter.CheckBuy(key(t), d(1_000_000), nil); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckBuy_TradeAmountExceeded(t *testing.T) {
	limiter := NewTradeLimiter(d(50), decimal.Zero, decimal.Zero)

	if err := limiter.CheckBuy(key(t), d(50), nil); err != nil {
		t.Errorf("amount at cap: expected no error, got %v", err)
	}
	if err := limiter.CheckBuy(key(t), d(51), nil); err != ErrTradeAmountExceeded {
		t.Errorf("expected ErrTradeAmountExceeded, got %v", err)
	}
}

func TestCheckBuy_PerCreatorExceeded(t *testing.T) {
	limiter := NewTradeLimiter(decimal.Zero, d(1000), decimal.Zero)
	creator := key(t)

	// Existing position of 950 + new 100 = 1050 > 1000.
	existing := map[solana.PublicKey]decimal.Decimal{creator: d(950)}
	if err := limiter.CheckBuy(creator, d(100), existing); err != ErrPerCreatorLimitExceeded {
		t.Errorf("expected ErrPerCreatorLimitExceeded, got %v", err)
	}

	existing[creator] = d(500)
	if err := limiter.CheckBuy(creator, d(100), existing); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckBuy_NegativePositionCountsAsZero(t *testing.T) {
	limiter := NewTradeLimiter(decimal.Zero, d(100), decimal.Zero)
	creator := key(t)

	// Sold more than bought; the deficit does not extend the cap.
	existing := map[solana.PublicKey]decimal.Decimal{creator: d(-500)}
	if err := limiter.CheckBuy(creator, d(101), existing); err != ErrPerCreatorLimitExceeded {
		t.Errorf("expected ErrPerCreatorLimitExceeded, got %v", err)
	}
}

func TestCheckBuy_TotalExceeded(t *testing.T) {
	limiter := NewTradeLimiter(decimal.Zero, d(1000), d(2000))
	a, b, c := key(t), key(t), key(t)

	existing := map[solana.PublicKey]decimal.Decimal{
		a: d(800),
		b: d(800),
		c: d(300),
	}

	// 800 + 800 + 300 + 200 = 2100 > 2000.
	if err := limiter.CheckBuy(key(t), d(200), existing); err != ErrTotalLimitExceeded {
		t.Errorf("expected ErrTotalLimitExceeded, got %v", err)
	}

	// Buying more of an existing holding counts it once: 900 + 800 + 300 = 2000.
	if err := limiter.CheckBuy(a, d(100), existing); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
