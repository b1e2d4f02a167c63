package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/middlewares"
	"go.uber.org/zap"
)

// Envelope is the body of every JSON response
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondData sends a successful envelope carrying data
func (h *BaseHandler) RespondData(w http.ResponseWriter, status int, data any) {
	h.RespondJSON(w, status, Envelope{Success: true, Data: data})
}

// RespondError sends a failed envelope with the message
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, Envelope{Success: false, Error: message})
}

// RespondAppError reports err with the status of its kind
//
// Server side failures are logged with the request ID.
func (h *BaseHandler) RespondAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("request_id", middlewares.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	h.RespondError(w, status, apperr.Message(err))
}
