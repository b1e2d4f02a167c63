package main

import (
	"fmt"

	"go.uber.org/zap"
)

// asynqLogger routes asynq server logs into zap
type asynqLogger struct {
	logger *zap.Logger
}

func newAsynqLogger(logger *zap.Logger) *asynqLogger {
	return &asynqLogger{logger: logger.With(zap.String("component", "asynq"))}
}

func (l *asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }

// Fatal does not exit the process
func (l *asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
