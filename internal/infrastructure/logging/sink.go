package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink receives diagnostic lines from the sandbox and the host. It must be
// safe for concurrent use.
type Sink interface {
	Log(level zapcore.Level, message string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(level zapcore.Level, message string)

// Log implements Sink.
func (f SinkFunc) Log(level zapcore.Level, message string) {
	f(level, message)
}

// ZapSink forwards sink lines to a structured logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps logger. A nil logger discards.
func NewZapSink(logger *Logger) *ZapSink {
	if logger == nil {
		return &ZapSink{logger: zap.NewNop()}
	}
	return &ZapSink{logger: logger.Logger}
}

// Log implements Sink.
func (s *ZapSink) Log(level zapcore.Level, message string) {
	if ce := s.logger.Check(level, message); ce != nil {
		ce.Write(zap.String("source", "sandbox"))
	}
}

// MultiSink fans a line out to every sink in order.
type MultiSink struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewMultiSink creates a fan-out sink. Nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add appends a sink.
func (m *MultiSink) Add(s Sink) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

// Log implements Sink.
func (m *MultiSink) Log(level zapcore.Level, message string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sinks {
		s.Log(level, message)
	}
}
