package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBaseHandler_RespondData(t *testing.T) {
	h := &BaseHandler{Logger: zap.NewNop()}
	rec := httptest.NewRecorder()

	h.RespondData(rec, http.StatusCreated, map[string]int{"id": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"id":3}}`, rec.Body.String())
}

func TestBaseHandler_RespondAppError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
		expectLog      bool
	}{
		{
			name:           "conflict",
			err:            apperr.Conflict("Course with this slug already exists"),
			expectedStatus: http.StatusConflict,
			expectedBody:   "Course with this slug already exists",
		},
		{
			name:           "query failed",
			err:            apperr.Wrap(apperr.KindQueryFailed, "Failed to fetch chapters", errors.New("timeout")),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Failed to fetch chapters",
			expectLog:      true,
		},
		{
			name:           "untyped error hides details",
			err:            errors.New("pq: syntax error"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "internal server error",
			expectLog:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			h := &BaseHandler{Logger: zap.New(core)}
			rec := httptest.NewRecorder()

			h.RespondAppError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.expectedBody, body.Error)
			assert.Equal(t, tt.expectLog, logs.Len() == 1)
		})
	}
}
