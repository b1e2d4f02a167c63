package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubRepairer struct {
	repaired int
	err      error
	calls    int
}

func (s *stubRepairer) RepairAll(ctx context.Context) (int, error) {
	s.calls++
	return s.repaired, s.err
}

func TestNewScheduler(t *testing.T) {
	_, err := NewScheduler("0 3 * * *", &stubRepairer{}, zap.NewNop())
	require.NoError(t, err)

	_, err = NewScheduler("every night", &stubRepairer{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewScheduler("0 0 3 * * *", &stubRepairer{}, zap.NewNop())
	assert.Error(t, err, "seconds field is not accepted")
}

func TestScheduler_RepairOrder(t *testing.T) {
	tests := []struct {
		name          string
		repairer      *stubRepairer
		expectedLevel zapcore.Level
		expectedMsg   string
	}{
		{
			name:          "success",
			repairer:      &stubRepairer{repaired: 3},
			expectedLevel: zapcore.InfoLevel,
			expectedMsg:   "Order repair finished",
		},
		{
			name:          "failure",
			repairer:      &stubRepairer{err: errors.New("connection refused")},
			expectedLevel: zapcore.ErrorLevel,
			expectedMsg:   "Order repair failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			s, err := NewScheduler("@every 1h", tt.repairer, zap.New(core))
			require.NoError(t, err)

			s.repairOrder()

			assert.Equal(t, 1, tt.repairer.calls)
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.expectedLevel, entry.Level)
			assert.Equal(t, tt.expectedMsg, entry.Message)
		})
	}
}
