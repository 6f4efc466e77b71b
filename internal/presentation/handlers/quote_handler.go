package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bimakw/swap-router/internal/domain/entities"
	"github.com/bimakw/swap-router/internal/domain/services"
)

// AmountsVerifier prices a path on chain, one amount per token of the path
type AmountsVerifier interface {
	AmountsOut(ctx context.Context, amountIn *big.Int, path []string) ([]*big.Int, error)
}

// QuoteHandler handles route quote requests
type QuoteHandler struct {
	routerService      *services.RouterService
	registry           *entities.PoolRegistry
	verifier           AmountsVerifier
	defaultSlippageBps uint64
	logger             zerolog.Logger
}

// NewQuoteHandler creates a new quote handler. verifier may be nil, which
// disables on-chain verification.
func NewQuoteHandler(routerService *services.RouterService, registry *entities.PoolRegistry, verifier AmountsVerifier, defaultSlippageBps uint64, logger zerolog.Logger) *QuoteHandler {
	return &QuoteHandler{
		routerService:      routerService,
		registry:           registry,
		verifier:           verifier,
		defaultSlippageBps: defaultSlippageBps,
		logger:             logger,
	}
}

// RouteResponse represents a route quote response
type RouteResponse struct {
	QuoteID            string     `json:"quoteId"`
	TokenIn            string     `json:"tokenIn"`
	TokenOut           string     `json:"tokenOut"`
	Path               []string   `json:"path"`
	Hops               []RouteHop `json:"hops"`
	AmountIn           string     `json:"amountIn"`
	AmountOut          string     `json:"amountOut"`
	AmountOutFormatted string     `json:"amountOutFormatted"`
	MinAmountOut       string     `json:"minAmountOut"`
	SlippageBps        uint64     `json:"slippageBps"`
	PriceImpact        string     `json:"priceImpact"`
	FeeBps             uint64     `json:"feeBps"`
	Viable             bool       `json:"viable"`
	OnchainAmountOut   string     `json:"onchainAmountOut,omitempty"`
}

// RouteHop represents a hop in the route
type RouteHop struct {
	Pool      string `json:"pool"`
	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetRoute handles GET /api/v1/route
func (h *QuoteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tokenInParam := strings.TrimSpace(q.Get("tokenIn"))
	tokenOutParam := strings.TrimSpace(q.Get("tokenOut"))
	amountInStr := strings.TrimSpace(q.Get("amountIn"))

	if tokenInParam == "" || tokenOutParam == "" || amountInStr == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "tokenIn, tokenOut, and amountIn are required")
		return
	}

	decimals := int32(entities.DefaultDecimals)
	if s := q.Get("decimals"); s != "" {
		d, err := strconv.ParseUint(s, 10, 8)
		if err != nil || d > 77 {
			writeError(w, http.StatusBadRequest, "invalid_decimals", "decimals must be 0-77")
			return
		}
		decimals = int32(d)
	}

	amountIn, err := parseAmount(amountInStr, decimals)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		return
	}

	// Parse slippage (optional, in basis points)
	slippageBps := h.defaultSlippageBps
	if s := q.Get("slippage"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil || v > entities.MaxBps {
			writeError(w, http.StatusBadRequest, "invalid_slippage", "slippage must be 0-10000 basis points")
			return
		}
		slippageBps = v
	}

	tokenIn := h.registry.ResolveToken(tokenInParam)
	tokenOut := h.registry.ResolveToken(tokenOutParam)
	if entities.NormalizeToken(tokenIn) == entities.NormalizeToken(tokenOut) {
		writeError(w, http.StatusBadRequest, "same_token", "tokenIn and tokenOut must differ")
		return
	}

	route, err := h.routerService.Quote(r.Context(), h.registry.Pools(), tokenIn, tokenOut, amountIn, slippageBps)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		case errors.Is(err, entities.ErrInvalidPool):
			writeError(w, http.StatusBadRequest, "invalid_pools", err.Error())
		case errors.Is(err, services.ErrAllReservesFailed):
			writeError(w, http.StatusBadGateway, "reserves_unavailable", "no pool reserves could be read")
		default:
			h.logger.Error().Err(err).Msg("Route search failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "route search failed")
		}
		return
	}

	response := buildRouteResponse(route, tokenInParam, tokenOutParam, decimals)

	if q.Get("verify") == "true" && h.verifier != nil && route.Viable() && len(route.Path) > 1 {
		amounts, err := h.verifier.AmountsOut(r.Context(), amountIn, route.Path)
		if err != nil {
			h.logger.Warn().Err(err).Strs("path", route.Path).Msg("On-chain verification failed")
		} else if len(amounts) > 0 {
			response.OnchainAmountOut = amounts[len(amounts)-1].String()
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseAmount reads a base-unit integer, or a token-unit decimal when the
// value has a fractional part
func parseAmount(s string, decimals int32) (*big.Int, error) {
	if !strings.Contains(s, ".") {
		amount, ok := new(big.Int).SetString(s, 10)
		if !ok || amount.Sign() <= 0 {
			return nil, errors.New("amountIn must be a positive integer or decimal")
		}
		return amount, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.New("amountIn must be a positive integer or decimal")
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, errors.New("amountIn has more fractional digits than the token's decimals")
	}
	amount := scaled.BigInt()
	if amount.Sign() <= 0 {
		return nil, errors.New("amountIn must be positive")
	}
	return amount, nil
}

// buildRouteResponse converts a Route to a RouteResponse
func buildRouteResponse(route *entities.Route, tokenIn, tokenOut string, decimals int32) RouteResponse {
	hops := make([]RouteHop, 0, len(route.Hops))
	for _, hop := range route.Hops {
		hops = append(hops, RouteHop{
			Pool:      hop.Pool.Address,
			TokenIn:   hop.TokenIn,
			TokenOut:  hop.TokenOut,
			AmountIn:  hop.AmountIn.String(),
			AmountOut: hop.AmountOut.String(),
		})
	}

	priceImpactBps := "0"
	if route.PriceImpact != nil {
		priceImpactBps = route.PriceImpact.String()
	}

	minAmountOut := "0"
	if route.MinAmountOut != nil {
		minAmountOut = route.MinAmountOut.String()
	}

	return RouteResponse{
		QuoteID:            uuid.NewString(),
		TokenIn:            tokenIn,
		TokenOut:           tokenOut,
		Path:               route.Path,
		Hops:               hops,
		AmountIn:           route.AmountIn.String(),
		AmountOut:          route.AmountOut.String(),
		AmountOutFormatted: decimal.NewFromBigInt(route.AmountOut, -decimals).String(),
		MinAmountOut:       minAmountOut,
		SlippageBps:        route.SlippageBps,
		PriceImpact:        priceImpactBps,
		FeeBps:             route.Fee.FeeBps(),
		Viable:             route.Viable(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
