// Package trade provides the HTTP handlers for registering creators,
// trading their shares, creating gated events, and querying balances and
// portfolios.
//
// Amounts are uint64 base units on the wire. Decimal values appear only in
// derived figures (average prices, valuations).
package trade

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/gravitas/share-engine/internal/eventgate"
	"github.com/gravitas/share-engine/internal/registry"
	"github.com/gravitas/share-engine/internal/settlement"
	"github.com/gravitas/share-engine/internal/store"
)

// CallerHeader carries the base58 public key of the authenticated caller.
// Authentication happens upstream; the engine trusts this header.
const CallerHeader = "X-Caller"

// Service wires the share engine components to HTTP.
type Service struct {
	engine    *settlement.Engine
	registry  *registry.Registry
	gate      *eventgate.Gate
	accounts  store.Store
	wsHub     *WSHub // optional WebSocket hub for real-time broadcasts
	faucetMax uint64 // 0 disables the faucet
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(
	engine *settlement.Engine,
	reg *registry.Registry,
	gate *eventgate.Gate,
	accounts store.Store,
	hub *WSHub,
	faucetMax uint64,
) *Service {
	return &Service{
		engine:    engine,
		registry:  reg,
		gate:      gate,
		accounts:  accounts,
		wsHub:     hub,
		faucetMax: faucetMax,
	}
}

// Routes registers every API route on r. Mount it under /api/v1.
func (s *Service) Routes(r chi.Router) {
	r.Get("/creators", s.ListCreators)
	r.With(RequireCaller).Post("/creators", s.CreateCreator)

	r.Route("/creators/{address}", func(r chi.Router) {
		r.Get("/", s.GetCreator)
		r.Get("/supply", s.GetSupply)
		r.Get("/price/buy", s.GetBuyPrice)
		r.Get("/price/sell", s.GetSellPrice)
		r.Get("/quote", s.GetQuote)
		r.Get("/history", s.GetHistory)
		r.Get("/events", s.ListEvents)

		r.Group(func(r chi.Router) {
			r.Use(RequireCaller)
			r.Post("/buy", s.BuyShares)
			r.Post("/sell", s.SellShares)
			r.Post("/events", s.CreateEvent)
		})
	})

	r.Get("/events/{address}", s.GetEvent)

	r.Get("/accounts/{address}/balance", s.GetBalance)
	r.Post("/accounts/{address}/airdrop", s.Airdrop)

	r.Get("/pool", s.GetPool)
	r.Get("/portfolio/{trader}", s.GetPortfolio)
}

// --- Caller identity ---

type callerKey struct{}

// RequireCaller parses the X-Caller header and stores the key in the
// request context. Requests without a valid key are rejected.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(CallerHeader)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, codeMissingCaller, CallerHeader+" header is required")
			return
		}
		caller, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidAddress, "invalid "+CallerHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFrom(ctx context.Context) solana.PublicKey {
	caller, _ := ctx.Value(callerKey{}).(solana.PublicKey)
	return caller
}

// --- Helpers ---

// pathKey parses a base58 address URL parameter, writing a 400 on failure.
func pathKey(w http.ResponseWriter, r *http.Request, param string) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidAddress, "invalid "+param)
		return solana.PublicKey{}, false
	}
	return key, true
}

// queryAmount parses the amount query parameter, writing a 400 on failure.
func queryAmount(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidAmount, "amount must be an unsigned integer")
		return 0, false
	}
	return amount, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
