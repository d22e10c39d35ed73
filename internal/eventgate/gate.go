// Package eventgate lets a creator announce events that only holders of a
// minimum number of the creator's shares may attend.
package eventgate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/gravitas/share-engine/internal/address"
	"github.com/gravitas/share-engine/internal/clock"
	"github.com/gravitas/share-engine/internal/metrics"
	"github.com/gravitas/share-engine/internal/model"
	"github.com/gravitas/share-engine/internal/store"
)

// Gate creates and reads gated events.
type Gate struct {
	store   store.Store
	deriver *address.Deriver
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates an event gate. clk is the ledger clock event dates are
// checked against.
func New(st store.Store, deriver *address.Deriver, clk clock.Clock, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: st, deriver: deriver, clock: clk, logger: logger}
}

// CreateEvent records an event for creator. Only the creator's owner may
// call it. Checks run in order: caller, title length in bytes, date strictly
// after now at second precision, then 0 < requiredShares <= current supply.
// The event takes the creator's next sequence number and the creator's
// event count advances by one in the same transaction.
func (g *Gate) CreateEvent(
	ctx context.Context,
	caller, creator solana.PublicKey,
	title string,
	date time.Time,
	requiredShares uint64,
) (*model.Event, error) {
	var ev *model.Event
	err := g.store.WithTx(ctx, func(txCtx context.Context) error {
		c, err := g.store.GetCreatorForUpdate(txCtx, creator)
		if err != nil {
			return err
		}
		if !c.Owner.Equals(caller) {
			return model.ErrUnauthorizedCreator
		}
		if len(title) > model.MaxTitleLen {
			return model.ErrTitleTooLong
		}
		if date.Unix() <= g.clock.Now().Unix() {
			return model.ErrInvalidDate
		}
		if requiredShares == 0 || requiredShares > c.CurrentSupply {
			return model.ErrInvalidRequiredShares
		}

		derived, err := g.deriver.Event(c.Address, c.EventCount)
		if err != nil {
			return err
		}
		ev = &model.Event{
			Address:        derived.Address,
			Creator:        c.Address,
			Sequence:       c.EventCount,
			Title:          title,
			Date:           date.UTC(),
			RequiredShares: requiredShares,
			Bump:           derived.Bump,
			CreatedAt:      g.clock.Now(),
		}
		if err := g.store.CreateEvent(txCtx, ev); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		return g.store.UpdateCreatorEventCount(txCtx, c.Address, c.EventCount+1)
	})
	if err != nil {
		g.logger.Debug("event rejected",
			"creator", creator.String(),
			"caller", caller.String(),
			"err", err,
		)
		return nil, err
	}

	metrics.EventsCreated.Inc()
	g.logger.Info("event created",
		"event", ev.Address.String(),
		"creator", ev.Creator.String(),
		"sequence", ev.Sequence,
		"required_shares", ev.RequiredShares,
		"date", ev.Date,
	)
	return ev, nil
}

// GetEvent returns the event stored at addr.
func (g *Gate) GetEvent(ctx context.Context, addr solana.PublicKey) (*model.Event, error) {
	return g.store.GetEvent(ctx, addr)
}

// ListEvents returns a creator's events ordered by sequence.
func (g *Gate) ListEvents(ctx context.Context, creator solana.PublicKey) ([]model.Event, error) {
	if _, err := g.store.GetCreator(ctx, creator); err != nil {
		return nil, err
	}
	return g.store.ListEventsByCreator(ctx, creator)
}
