package address

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func newOwner(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func TestCreator_Deterministic(t *testing.T) {
	d := NewDeriver(DefaultProgramID)
	owner := newOwner(t)

	a, err := d.Creator(owner)
	require.NoError(t, err)
	b, err := d.Creator(owner)
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.False(t, a.Address.Equals(owner))
}

func TestCreator_DistinctOwners(t *testing.T) {
	d := NewDeriver(DefaultProgramID)

	a, err := d.Creator(newOwner(t))
	require.NoError(t, err)
	b, err := d.Creator(newOwner(t))
	require.NoError(t, err)

	require.NotEqual(t, a.Address, b.Address)
}

func TestEvent_SequenceAddressesDistinct(t *testing.T) {
	d := NewDeriver(DefaultProgramID)
	creator, err := d.Creator(newOwner(t))
	require.NoError(t, err)

	seen := make(map[solana.PublicKey]uint64)
	for seq := uint64(0); seq < 16; seq++ {
		ev, err := d.Event(creator.Address, seq)
		require.NoError(t, err)
		prev, dup := seen[ev.Address]
		require.Falsef(t, dup, "sequence %d collides with %d", seq, prev)
		seen[ev.Address] = seq
	}
}

func TestPool_VerifiesOwnBump(t *testing.T) {
	d := NewDeriver(DefaultProgramID)
	pool, err := d.Pool()
	require.NoError(t, err)
	require.NoError(t, d.VerifyPool(pool))

	forged := pool
	forged.Address = newOwner(t)
	require.Error(t, d.VerifyPool(forged))
}

func TestPool_DependsOnProgram(t *testing.T) {
	a, err := NewDeriver(DefaultProgramID).Pool()
	require.NoError(t, err)
	b, err := NewDeriver(newOwner(t)).Pool()
	require.NoError(t, err)
	require.NotEqual(t, a.Address, b.Address)
}
