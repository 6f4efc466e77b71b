package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bimakw/swap-router/internal/domain/entities"
)

// TokensHandler serves the token and pool listings the swap form is built from
type TokensHandler struct {
	registry *entities.PoolRegistry
}

func NewTokensHandler(registry *entities.PoolRegistry) *TokensHandler {
	return &TokensHandler{registry: registry}
}

type TokensResponse struct {
	Tokens []entities.Token `json:"tokens"`
}

// ListTokens handles GET /api/v1/tokens
func (h *TokensHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TokensResponse{Tokens: h.registry.AvailableTokens()})
}

// Counterparts handles GET /api/v1/tokens/{token}/counterparts
func (h *TokensHandler) Counterparts(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "token is required")
		return
	}
	writeJSON(w, http.StatusOK, TokensResponse{Tokens: h.registry.CounterpartTokens(token)})
}

// FindPool handles GET /api/v1/pools?tokenA=&tokenB=
func (h *TokensHandler) FindPool(w http.ResponseWriter, r *http.Request) {
	tokenA := r.URL.Query().Get("tokenA")
	tokenB := r.URL.Query().Get("tokenB")
	if tokenA == "" || tokenB == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "tokenA and tokenB are required")
		return
	}

	pool, ok := h.registry.FindPoolByTokens(tokenA, tokenB)
	if !ok {
		writeError(w, http.StatusNotFound, "pool_not_found", "no pool trades these tokens")
		return
	}
	writeJSON(w, http.StatusOK, pool)
}
