package eventgate

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

var epoch = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	st      *store.MemoryStore
	gate    *Gate
	clk     *clock.Manual
	deriver *address.Deriver
	creator *model.Creator
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func newTestEnv(t *testing.T, supply uint64) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	deriver := address.NewDeriver(address.DefaultProgramID)
	clk := clock.NewManual(epoch)

	owner := newKey(t)
	derived, err := deriver.Creator(owner)
	require.NoError(t, err)
	c := &model.Creator{Address: derived.Address, Owner: owner, Name: "alice", CurrentSupply: supply, Bump: derived.Bump}
	require.NoError(t, st.CreateCreator(context.Background(), c))

	return &testEnv{st: st, gate: New(st, deriver, clk, nil), clk: clk, deriver: deriver, creator: c}
}

func (env *testEnv) eventCount(t *testing.T) uint64 {
	t.Helper()
	c, err := env.st.GetCreator(context.Background(), env.creator.Address)
	require.NoError(t, err)
	return c.EventCount
}

func TestCreateEvent_AssignsSequence(t *testing.T) {
	env := newTestEnv(t, 5)
	ctx := context.Background()

	for seq := uint64(0); seq < 3; seq++ {
		ev, err := env.gate.CreateEvent(ctx, env.creator.Owner, env.creator.Address, "meetup", epoch.Add(time.Hour), 5)
		require.NoError(t, err)
		require.Equal(t, seq, ev.Sequence)

		want, err := env.deriver.Event(env.creator.Address, seq)
		require.NoError(t, err)
		require.Equal(t, want.Address, ev.Address)
		require.Equal(t, seq+1, env.eventCount(t))
	}

	events, err := env.gate.ListEvents(ctx, env.creator.Address)
	require.NoError(t, err)
	require.Len(t, events, 3)

	got, err := env.gate.GetEvent(ctx, events[1].Address)
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.Sequence)
	require.Equal(t, "meetup", got.Title)
}

func TestCreateEvent_Rejections(t *testing.T) {
	future := epoch.Add(time.Hour)

	tests := []struct {
		name     string
		caller   func(env *testEnv) solana.PublicKey
		title    string
		date     time.Time
		required uint64
		want     error
	}{
		{
			name:     "caller is not the owner",
			caller:   func(env *testEnv) solana.PublicKey { return env.creator.Address },
			title:    "x",
			date:     future,
			required: 1,
			want:     model.ErrUnauthorizedCreator,
		},
		{
			name:     "unauthorized is checked before title",
			caller:   func(env *testEnv) solana.PublicKey { return solana.PublicKey{} },
			title:    strings.Repeat("t", model.MaxTitleLen+1),
			date:     epoch,
			required: 0,
			want:     model.ErrUnauthorizedCreator,
		},
		{
			name:     "title too long",
			title:    strings.Repeat("t", model.MaxTitleLen+1),
			date:     epoch,
			required: 0,
			want:     model.ErrTitleTooLong,
		},
		{
			name:     "date equal to now",
			title:    "x",
			date:     epoch,
			required: 0,
			want:     model.ErrInvalidDate,
		},
		{
			name:     "date within the current second",
			title:    "x",
			date:     epoch.Add(999 * time.Millisecond),
			required: 1,
			want:     model.ErrInvalidDate,
		},
		{
			name:     "date in the past",
			title:    "x",
			date:     epoch.Add(-time.Hour),
			required: 1,
			want:     model.ErrInvalidDate,
		},
		{
			name:     "zero required shares",
			title:    "x",
			date:     future,
			required: 0,
			want:     model.ErrInvalidRequiredShares,
		},
		{
			name:     "required shares above supply",
			title:    "x",
			date:     future,
			required: 4,
			want:     model.ErrInvalidRequiredShares,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 3)
			caller := env.creator.Owner
			if tt.caller != nil {
				caller = tt.caller(env)
			}

			_, err := env.gate.CreateEvent(context.Background(), caller, env.creator.Address, tt.title, tt.date, tt.required)
			require.ErrorIs(t, err, tt.want)
			require.Zero(t, env.eventCount(t))

			events, err := env.gate.ListEvents(context.Background(), env.creator.Address)
			require.NoError(t, err)
			require.Empty(t, events)
		})
	}
}

func TestCreateEvent_BoundaryValues(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	ev, err := env.gate.CreateEvent(ctx, env.creator.Owner, env.creator.Address,
		strings.Repeat("t", model.MaxTitleLen), epoch.Add(time.Second), 3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), ev.RequiredShares)
}

func TestCreateEvent_UnknownCreator(t *testing.T) {
	env := newTestEnv(t, 1)
	_, err := env.gate.CreateEvent(context.Background(), env.creator.Owner, newKey(t), "x", epoch.Add(time.Hour), 1)
	require.ErrorIs(t, err, model.ErrCreatorNotFound)

	_, err = env.gate.GetEvent(context.Background(), newKey(t))
	require.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestCreateEvent_OccupiedAddress(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	squatted, err := env.deriver.Event(env.creator.Address, 0)
	require.NoError(t, err)
	require.NoError(t, env.st.CreateEvent(ctx, &model.Event{
		Address: squatted.Address, Creator: env.creator.Address, Title: "old", RequiredShares: 1,
	}))

	_, err = env.gate.CreateEvent(ctx, env.creator.Owner, env.creator.Address, "new", epoch.Add(time.Hour), 1)
	require.ErrorIs(t, err, model.ErrAlreadyExists)
	require.Zero(t, env.eventCount(t))
}
