// Package registry registers creators. Each owner gets at most one creator
// record, stored at the address derived from the owner's key.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/gravitas/share-engine/internal/address"
	"github.com/gravitas/share-engine/internal/clock"
	"github.com/gravitas/share-engine/internal/metrics"
	"github.com/gravitas/share-engine/internal/model"
	"github.com/gravitas/share-engine/internal/store"
)

// Registry creates and looks up creator records.
type Registry struct {
	store   store.Store
	deriver *address.Deriver
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a registry.
func New(st store.Store, deriver *address.Deriver, clk clock.Clock, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: st, deriver: deriver, clock: clk, logger: logger}
}

// CreateCreator registers owner as a creator with an initial supply of one
// share. Name and bio lengths are measured in bytes.
func (r *Registry) CreateCreator(ctx context.Context, owner solana.PublicKey, name, bio string) (*model.Creator, error) {
	if len(name) > model.MaxNameLen {
		return nil, model.ErrNameTooLong
	}
	if len(bio) > model.MaxBioLen {
		return nil, model.ErrBioTooLong
	}

	derived, err := r.deriver.Creator(owner)
	if err != nil {
		return nil, err
	}
	c := &model.Creator{
		Address:       derived.Address,
		Owner:         owner,
		Name:          name,
		Bio:           bio,
		CurrentSupply: model.InitialSupply,
		EventCount:    0,
		Bump:          derived.Bump,
		CreatedAt:     r.clock.Now(),
	}
	if err := r.store.CreateCreator(ctx, c); err != nil {
		return nil, fmt.Errorf("register creator: %w", err)
	}

	metrics.CreatorsRegistered.Inc()
	r.logger.Info("creator registered",
		"creator", c.Address.String(),
		"owner", owner.String(),
		"name", name,
	)
	return c, nil
}

// Get returns the creator stored at address.
func (r *Registry) Get(ctx context.Context, addr solana.PublicKey) (*model.Creator, error) {
	return r.store.GetCreator(ctx, addr)
}

// GetByOwner returns the creator record owned by owner.
func (r *Registry) GetByOwner(ctx context.Context, owner solana.PublicKey) (*model.Creator, error) {
	derived, err := r.deriver.Creator(owner)
	if err != nil {
		return nil, err
	}
	return r.store.GetCreator(ctx, derived.Address)
}

// List returns all creators, newest first.
func (r *Registry) List(ctx context.Context) ([]model.Creator, error) {
	return r.store.ListCreators(ctx)
}
