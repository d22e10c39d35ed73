package trade

import (
	"log/slog"
	"net/http"

	"github.com/gagliardetto/solana-go"
)

// BalanceResponse is returned by the balance and airdrop endpoints.
type BalanceResponse struct {
	Address solana.PublicKey `json:"address"`
	Balance uint64           `json:"balance"`
}

// AirdropRequest is the JSON body for the development faucet.
type AirdropRequest struct {
	Amount uint64 `json:"amount"`
}

// GetBalance handles GET /api/v1/accounts/{address}/balance
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	bal, err := s.accounts.GetBalance(r.Context(), addr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Address: addr, Balance: bal})
}

// Airdrop handles POST /api/v1/accounts/{address}/airdrop
// Credits up to the configured faucet maximum. Disabled when the maximum is 0.
func (s *Service) Airdrop(w http.ResponseWriter, r *http.Request) {
	if s.faucetMax == 0 {
		writeError(w, http.StatusForbidden, codeFaucetDisabled, "faucet is disabled")
		return
	}
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	var req AirdropRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount == 0 || req.Amount > s.faucetMax {
		writeError(w, http.StatusBadRequest, codeInvalidAmount, "amount must be between 1 and the faucet maximum")
		return
	}

	ctx := r.Context()
	if err := s.accounts.Credit(ctx, addr, req.Amount); err != nil {
		writeDomainError(w, r, err)
		return
	}
	bal, err := s.accounts.GetBalance(ctx, addr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.Info("airdrop", "address", addr.String(), "amount", req.Amount, "balance", bal)
	writeJSON(w, http.StatusOK, BalanceResponse{Address: addr, Balance: bal})
}

// GetPool handles GET /api/v1/pool
func (s *Service) GetPool(w http.ResponseWriter, r *http.Request) {
	bal, err := s.engine.PoolBalance(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Address: s.engine.PoolAddress(), Balance: bal})
}

// GetPortfolio handles GET /api/v1/portfolio/{trader}
// Returns balance, holdings per creator, and unrealized P&L at spot.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	trader, ok := pathKey(w, r, "trader")
	if !ok {
		return
	}
	p, err := s.engine.Portfolio(r.Context(), trader)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
