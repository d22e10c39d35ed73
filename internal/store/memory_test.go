package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/gravitas/share-engine/internal/model"
)

func randomKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func seedCreator(t *testing.T, s Store) *model.Creator {
	t.Helper()
	c := &model.Creator{
		Address:       randomKey(t),
		Owner:         randomKey(t),
		Name:          "alice",
		CurrentSupply: model.InitialSupply,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.CreateCreator(context.Background(), c))
	return c
}

func TestMemory_CreateCreatorDuplicate(t *testing.T) {
	s := NewMemoryStore()
	c := seedCreator(t, s)

	err := s.CreateCreator(context.Background(), c)
	require.ErrorIs(t, err, model.ErrCreatorExists)

	sameOwner := *c
	sameOwner.Address = randomKey(t)
	err = s.CreateCreator(context.Background(), &sameOwner)
	require.ErrorIs(t, err, model.ErrCreatorExists)
}

func TestMemory_TxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := seedCreator(t, s)
	trader := randomKey(t)
	require.NoError(t, s.Credit(ctx, trader, 500))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.Transfer(txCtx, trader, c.Address, 200))
		require.NoError(t, s.UpdateCreatorSupply(txCtx, c.Address, 9))

		// Reads inside the transaction see its writes.
		bal, err := s.GetBalance(txCtx, trader)
		require.NoError(t, err)
		require.Equal(t, uint64(300), bal)
		return boom
	})
	require.ErrorIs(t, err, boom)

	bal, err := s.GetBalance(ctx, trader)
	require.NoError(t, err)
	require.Equal(t, uint64(500), bal)

	got, err := s.GetCreator(ctx, c.Address)
	require.NoError(t, err)
	require.Equal(t, model.InitialSupply, got.CurrentSupply)
}

func TestMemory_NestedTxJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	acct := randomKey(t)

	err := s.WithTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.WithTx(txCtx, func(inner context.Context) error {
			return s.Credit(inner, acct, 10)
		}))
		return errors.New("outer fails")
	})
	require.Error(t, err)

	bal, err := s.GetBalance(ctx, acct)
	require.NoError(t, err)
	require.Zero(t, bal)
}

func TestMemory_TransferInsufficient(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	from, to := randomKey(t), randomKey(t)
	require.NoError(t, s.Credit(ctx, from, 5))

	err := s.Transfer(ctx, from, to, 6)
	require.ErrorIs(t, err, model.ErrInsufficientBalance)

	bal, _ := s.GetBalance(ctx, from)
	require.Equal(t, uint64(5), bal)
	bal, _ = s.GetBalance(ctx, to)
	require.Zero(t, bal)

	// A zero transfer is a no-op even from an empty account.
	require.NoError(t, s.Transfer(ctx, to, from, 0))
}

func TestMemory_CreditOverflow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	acct := randomKey(t)
	require.NoError(t, s.Credit(ctx, acct, ^uint64(0)))

	err := s.Credit(ctx, acct, 1)
	require.ErrorIs(t, err, model.ErrBalanceOverflow)
}

func TestMemory_EventsOrderedBySequence(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := seedCreator(t, s)

	for _, seq := range []uint64{2, 0, 1} {
		require.NoError(t, s.CreateEvent(ctx, &model.Event{
			Address: randomKey(t), Creator: c.Address, Sequence: seq, Title: "t", RequiredShares: 1,
		}))
	}
	events, err := s.ListEventsByCreator(ctx, c.Address)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		require.Equal(t, uint64(i), e.Sequence)
	}

	err = s.CreateEvent(ctx, &model.Event{Address: randomKey(t), Creator: randomKey(t), RequiredShares: 1})
	require.ErrorIs(t, err, model.ErrCreatorNotFound)
}

func TestMemory_Holdings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := seedCreator(t, s)
	trader := randomKey(t)

	for _, e := range []model.LedgerEntry{
		{ID: "1", Creator: c.Address, Trader: trader, Side: model.SideBuy, Amount: 3, Net: 420},
		{ID: "2", Creator: c.Address, Trader: trader, Side: model.SideSell, Amount: 1, Net: 95},
		{ID: "3", Creator: c.Address, Trader: randomKey(t), Side: model.SideBuy, Amount: 7, Net: 999},
	} {
		e := e
		require.NoError(t, s.InsertLedgerEntry(ctx, &e))
	}

	holdings, err := s.GetTraderHoldings(ctx, trader)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	h := holdings[0]
	require.Equal(t, "3", h.Bought.String())
	require.Equal(t, "1", h.Sold.String())
	require.Equal(t, "2", h.NetShares.String())
	require.Equal(t, "325", h.NetCost.String())
}

func TestMemory_ConcurrentTransfersConserveTotal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a, b := randomKey(t), randomKey(t)
	require.NoError(t, s.Credit(ctx, a, 1000))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = s.Transfer(ctx, a, b, 7) }()
		go func() { defer wg.Done(); _ = s.Transfer(ctx, b, a, 3) }()
	}
	wg.Wait()

	balA, _ := s.GetBalance(ctx, a)
	balB, _ := s.GetBalance(ctx, b)
	require.Equal(t, uint64(1000), balA+balB)
}
