package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/handlers"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
)

// decodeBody decodes a JSON request body into dst
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// respondReorder reports a reorder result, keeping the partial result when some updates failed
func respondReorder(h *handlers.BaseHandler, w http.ResponseWriter, r *http.Request, result *models.ReorderResult, err error) {
	if err == nil {
		h.RespondData(w, http.StatusOK, result)
		return
	}
	if apperr.Is(err, apperr.KindPartialFailure) && result != nil {
		h.Logger.Warn("reorder partially failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.RespondJSON(w, http.StatusMultiStatus, handlers.Envelope{Success: false, Error: apperr.Message(err), Data: result})
		return
	}
	h.RespondAppError(w, r, err)
}

// respondBulk reports the outcome of a bulk mutation as updatedCount or deletedCount
func respondBulk(h *handlers.BaseHandler, w http.ResponseWriter, r *http.Request, updated bool, count int, err error) {
	if err != nil {
		status := apperr.Status(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("bulk operation failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
		h.RespondJSON(w, status, BulkResponse{Success: false, Error: apperr.Message(err)})
		return
	}
	resp := BulkResponse{Success: true}
	if updated {
		resp.UpdatedCount = &count
	} else {
		resp.DeletedCount = &count
	}
	h.RespondJSON(w, http.StatusOK, resp)
}
