package handlers

import (
	"context"
	"net/http"

	"github.com/bimakw/swap-router/internal/domain/entities"
)

// BlockReader reports the latest block of the chain reserves are read from
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Pools   int    `json:"pools"`
	Block   uint64 `json:"block,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	version  string
	registry *entities.PoolRegistry
	chain    BlockReader
}

// NewHealthHandler creates a new health handler. chain may be nil, which
// skips the RPC check.
func NewHealthHandler(version string, registry *entities.PoolRegistry, chain BlockReader) *HealthHandler {
	return &HealthHandler{version: version, registry: registry, chain: chain}
}

// Health handles GET /health. The service is degraded until pools are
// loaded, and whenever the RPC endpoint does not answer.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Pools:   h.registry.Count(),
	}
	code := http.StatusOK

	if resp.Pools == 0 {
		resp.Status, code = "degraded", http.StatusServiceUnavailable
	}
	if h.chain != nil {
		block, err := h.chain.BlockNumber(r.Context())
		if err != nil {
			resp.Status, code = "degraded", http.StatusServiceUnavailable
		} else {
			resp.Block = block
		}
	}

	writeJSON(w, code, resp)
}
