package trade

import (
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/gravitas/share-engine/internal/curve"
	"github.com/gravitas/share-engine/internal/model"
)

// --- Request/Response types ---

// CreateCreatorRequest is the JSON body for creator registration. The
// caller becomes the owner.
type CreateCreatorRequest struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// TradeRequest is the JSON body for POST /buy and /sell. The caller is the
// trader.
type TradeRequest struct {
	Amount uint64 `json:"amount"`
}

// TradeResponse is the settled ledger entry plus post-trade pricing.
type TradeResponse struct {
	model.LedgerEntry
	AvgPrice  decimal.Decimal `json:"avg_price"`  // net per share
	SpotPrice uint64          `json:"spot_price"` // marginal price at the new supply
}

// PriceResponse is returned by the price endpoints.
type PriceResponse struct {
	Creator solana.PublicKey `json:"creator"`
	Supply  uint64           `json:"supply"`
	Amount  uint64           `json:"amount"`
	Price   uint64           `json:"price"`
}

// SupplyResponse is returned by GET /creators/{address}/supply.
type SupplyResponse struct {
	Creator   solana.PublicKey `json:"creator"`
	Supply    uint64           `json:"supply"`
	SpotPrice uint64           `json:"spot_price"`
}

// --- HTTP Handlers ---

// CreateCreator handles POST /api/v1/creators
func (s *Service) CreateCreator(w http.ResponseWriter, r *http.Request) {
	var req CreateCreatorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.registry.CreateCreator(r.Context(), callerFrom(r.Context()), req.Name, req.Bio)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListCreators handles GET /api/v1/creators
func (s *Service) ListCreators(w http.ResponseWriter, r *http.Request) {
	creators, err := s.registry.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if creators == nil {
		creators = []model.Creator{}
	}
	writeJSON(w, http.StatusOK, creators)
}

// GetCreator handles GET /api/v1/creators/{address}
func (s *Service) GetCreator(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	c, err := s.registry.Get(r.Context(), addr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetSupply handles GET /api/v1/creators/{address}/supply
func (s *Service) GetSupply(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	supply, err := s.engine.GetCurrentSupply(r.Context(), addr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SupplyResponse{
		Creator:   addr,
		Supply:    supply,
		SpotPrice: s.engine.Curve().Price(supply),
	})
}

// GetBuyPrice handles GET /api/v1/creators/{address}/price/buy?amount=N
// Returns the curve cost before commission.
func (s *Service) GetBuyPrice(w http.ResponseWriter, r *http.Request) {
	s.getPrice(w, r, model.SideBuy)
}

// GetSellPrice handles GET /api/v1/creators/{address}/price/sell?amount=N
// Returns the curve proceeds before commission.
func (s *Service) GetSellPrice(w http.ResponseWriter, r *http.Request) {
	s.getPrice(w, r, model.SideSell)
}

func (s *Service) getPrice(w http.ResponseWriter, r *http.Request, side model.Side) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	amount, ok := queryAmount(w, r)
	if !ok {
		return
	}

	price, supply, err := s.engine.PriceAt(r.Context(), addr, side, amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PriceResponse{Creator: addr, Supply: supply, Amount: amount, Price: price})
}

// GetQuote handles GET /api/v1/creators/{address}/quote?side=buy|sell&amount=N
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	side, ok := parseSide(r.URL.Query().Get("side"))
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidSide, "side must be buy or sell")
		return
	}
	amount, ok := queryAmount(w, r)
	if !ok {
		return
	}

	q, err := s.engine.Quote(r.Context(), addr, side, amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// BuyShares handles POST /api/v1/creators/{address}/buy
func (s *Service) BuyShares(w http.ResponseWriter, r *http.Request) {
	s.executeTrade(w, r, model.SideBuy)
}

// SellShares handles POST /api/v1/creators/{address}/sell
func (s *Service) SellShares(w http.ResponseWriter, r *http.Request) {
	s.executeTrade(w, r, model.SideSell)
}

func (s *Service) executeTrade(w http.ResponseWriter, r *http.Request, side model.Side) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	var req TradeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	trader := callerFrom(ctx)

	var entry *model.LedgerEntry
	var err error
	if side == model.SideBuy {
		entry, err = s.engine.BuyShares(ctx, addr, trader, req.Amount)
	} else {
		entry, err = s.engine.SellShares(ctx, addr, trader, req.Amount)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	spot := s.engine.Curve().Price(entry.SupplyAfter)
	if s.wsHub != nil {
		s.wsHub.Broadcast(tradeMessage(entry, spot))
	}

	writeJSON(w, http.StatusOK, TradeResponse{
		LedgerEntry: *entry,
		AvgPrice:    curve.AvgPrice(entry.Net, entry.Amount),
		SpotPrice:   spot,
	})
}

// GetHistory handles GET /api/v1/creators/{address}/history
// Returns the creator's settled trades, oldest first.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathKey(w, r, "address")
	if !ok {
		return
	}
	entries, err := s.engine.History(r.Context(), addr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func parseSide(raw string) (model.Side, bool) {
	switch strings.ToUpper(raw) {
	case string(model.SideBuy):
		return model.SideBuy, true
	case string(model.SideSell):
		return model.SideSell, true
	}
	return "", false
}
