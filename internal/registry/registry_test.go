package registry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/gravitas/share-engine/internal/address"
	"github.com/gravitas/share-engine/internal/clock"
	"github.com/gravitas/share-engine/internal/model"
	"github.com/gravitas/share-engine/internal/store"
)

func newRegistry(t *testing.T) (*Registry, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(store.NewMemoryStore(), address.NewDeriver(address.DefaultProgramID), clk, nil), clk
}

func newOwner(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func TestCreateCreator(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()
	owner := newOwner(t)

	c, err := r.CreateCreator(ctx, owner, "alice", "makes things")
	require.NoError(t, err)
	require.Equal(t, model.InitialSupply, c.CurrentSupply)
	require.Zero(t, c.EventCount)
	require.Equal(t, owner, c.Owner)

	derived, err := address.NewDeriver(address.DefaultProgramID).Creator(owner)
	require.NoError(t, err)
	require.Equal(t, derived.Address, c.Address)
	require.Equal(t, derived.Bump, c.Bump)

	byOwner, err := r.GetByOwner(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, c.Address, byOwner.Address)
}

func TestCreateCreator_Bounds(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	_, err := r.CreateCreator(ctx, newOwner(t), strings.Repeat("n", model.MaxNameLen), strings.Repeat("b", model.MaxBioLen))
	require.NoError(t, err)

	_, err = r.CreateCreator(ctx, newOwner(t), strings.Repeat("n", model.MaxNameLen+1), "")
	require.ErrorIs(t, err, model.ErrNameTooLong)

	_, err = r.CreateCreator(ctx, newOwner(t), "", strings.Repeat("b", model.MaxBioLen+1))
	require.ErrorIs(t, err, model.ErrBioTooLong)

	// Lengths are bytes: 11 three-byte runes exceed 32.
	_, err = r.CreateCreator(ctx, newOwner(t), strings.Repeat("€", 11), "")
	require.ErrorIs(t, err, model.ErrNameTooLong)
}

func TestCreateCreator_Duplicate(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()
	owner := newOwner(t)

	_, err := r.CreateCreator(ctx, owner, "alice", "")
	require.NoError(t, err)
	_, err = r.CreateCreator(ctx, owner, "alice again", "")
	require.ErrorIs(t, err, model.ErrCreatorExists)
}

func TestList_NewestFirst(t *testing.T) {
	r, clk := newRegistry(t)
	ctx := context.Background()

	first, err := r.CreateCreator(ctx, newOwner(t), "first", "")
	require.NoError(t, err)
	clk.Advance(time.Minute)
	second, err := r.CreateCreator(ctx, newOwner(t), "second", "")
	require.NoError(t, err)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, second.Address, all[0].Address)
	require.Equal(t, first.Address, all[1].Address)

	_, err = r.Get(ctx, newOwner(t))
	require.ErrorIs(t, err, model.ErrCreatorNotFound)
}
