package handlers

import (
	"context"
	"net/http"

	"github.com/coursecraft/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderRepairer compacts order indices across the whole catalog
type OrderRepairer interface {
	RepairAll(ctx context.Context) (int, error)
}

// InternalHandler handles service-to-service requests authenticated by API key
type InternalHandler struct {
	handlers.BaseHandler
	repairer OrderRepairer
}

// NewInternalHandler creates a new internal handler
func NewInternalHandler(repairer OrderRepairer, logger *zap.Logger) *InternalHandler {
	return &InternalHandler{
		BaseHandler: handlers.BaseHandler{Logger: logger},
		repairer:    repairer,
	}
}

// RegisterRoutes registers all internal handler routes
func (h *InternalHandler) RegisterRoutes(r chi.Router) {
	r.Post("/internal/order/repair", h.RepairAll)
}

// RepairAll handles POST /internal/order/repair
// @Summary Compact order indices of every course with gaps
// @Tags internal
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} handlers.Envelope "Number of repaired courses"
// @Failure 401 {object} handlers.Envelope "Invalid API key"
// @Router /internal/order/repair [post]
func (h *InternalHandler) RepairAll(w http.ResponseWriter, r *http.Request) {
	repaired, err := h.repairer.RepairAll(r.Context())
	if err != nil {
		h.RespondAppError(w, r, err)
		return
	}
	h.Logger.Info("order repair finished", zap.Int("repaired", repaired))
	h.RespondData(w, http.StatusOK, map[string]int{"repaired": repaired})
}
