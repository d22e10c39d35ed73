package trade

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gravitas/share-engine/internal/limits"
	"github.com/gravitas/share-engine/internal/model"
)

const (
	codeInvalidRequestBody          = "invalid_request_body"
	codeInvalidAddress              = "invalid_address"
	codeMissingCaller               = "missing_caller"
	codeInvalidAmount               = "invalid_amount"
	codeInvalidSide                 = "invalid_side"
	codeInvalidDate                 = "invalid_date"
	codeNameTooLong                 = "name_too_long"
	codeBioTooLong                  = "bio_too_long"
	codeTitleTooLong                = "title_too_long"
	codeInvalidRequiredShares       = "invalid_required_shares"
	codeInsufficientShares          = "insufficient_shares"
	codeInsufficientFunds           = "insufficient_funds"
	codeInsufficientContractBalance = "insufficient_contract_balance"
	codeUnauthorizedCreator         = "unauthorized_creator"
	codeInvalidTrader               = "invalid_trader"
	codeCreatorNotFound             = "creator_not_found"
	codeEventNotFound               = "event_not_found"
	codeCreatorExists               = "creator_exists"
	codeAlreadyExists               = "already_exists"
	codeBalanceOverflow             = "balance_overflow"
	codeLimitExceeded               = "limit_exceeded"
	codeFaucetDisabled              = "faucet_disabled"
	codeInternalError               = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// errorMapping pairs a domain error with its HTTP status and code.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrInvalidAmount, http.StatusBadRequest, codeInvalidAmount},
	{model.ErrNameTooLong, http.StatusBadRequest, codeNameTooLong},
	{model.ErrBioTooLong, http.StatusBadRequest, codeBioTooLong},
	{model.ErrTitleTooLong, http.StatusBadRequest, codeTitleTooLong},
	{model.ErrInvalidDate, http.StatusBadRequest, codeInvalidDate},
	{model.ErrInvalidRequiredShares, http.StatusBadRequest, codeInvalidRequiredShares},
	{model.ErrUnauthorizedCreator, http.StatusForbidden, codeUnauthorizedCreator},
	{model.ErrInvalidTrader, http.StatusForbidden, codeInvalidTrader},
	{model.ErrCreatorNotFound, http.StatusNotFound, codeCreatorNotFound},
	{model.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{model.ErrInsufficientShares, http.StatusConflict, codeInsufficientShares},
	{model.ErrInsufficientFunds, http.StatusConflict, codeInsufficientFunds},
	{model.ErrInsufficientContractBalance, http.StatusConflict, codeInsufficientContractBalance},
	{model.ErrCreatorExists, http.StatusConflict, codeCreatorExists},
	{model.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists},
	{model.ErrBalanceOverflow, http.StatusConflict, codeBalanceOverflow},
	{limits.ErrTradeAmountExceeded, http.StatusConflict, codeLimitExceeded},
	{limits.ErrPerCreatorLimitExceeded, http.StatusConflict, codeLimitExceeded},
	{limits.ErrTotalLimitExceeded, http.StatusConflict, codeLimitExceeded},
}

// writeDomainError maps err to a status and code. Unknown errors are logged
// and reported as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}
	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
