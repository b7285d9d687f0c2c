package submission

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
)

// DefaultErrorLogSize bounds the client error log.
const DefaultErrorLogSize = 500

// ErrorRecord is one reported client error
type ErrorRecord struct {
	ID        string    `json:"error_id"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"message"`
	Time      time.Time `json:"timestamp"`
}

// ErrorLog keeps the newest client errors
type ErrorLog struct {
	mu      sync.Mutex
	max     int
	records []ErrorRecord
	sink    logging.Sink
}

// NewErrorLog creates a log holding at most max records. Each record is
// also forwarded to sink when it is non-nil.
func NewErrorLog(max int, sink logging.Sink) *ErrorLog {
	if max <= 0 {
		max = DefaultErrorLogSize
	}
	return &ErrorLog{max: max, sink: sink}
}

// Record stores a message and returns it with a fresh ERR- id.
func (l *ErrorLog) Record(sessionID, message string) ErrorRecord {
	rec := ErrorRecord{
		ID:        NewErrorID(),
		SessionID: sessionID,
		Message:   message,
		Time:      time.Now().UTC(),
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	if over := len(l.records) - l.max; over > 0 {
		l.records = append([]ErrorRecord(nil), l.records[over:]...)
	}
	l.mu.Unlock()

	if l.sink != nil {
		l.sink.Log(zapcore.ErrorLevel, fmt.Sprintf("[%s] %s", rec.ID, message))
	}
	return rec
}

// Recent returns stored records, oldest first.
func (l *ErrorLog) Recent() []ErrorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ErrorRecord(nil), l.records...)
}

// Find looks up a record by id.
func (l *ErrorLog) Find(id string) (ErrorRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return ErrorRecord{}, false
}

// NewErrorID returns "ERR-" followed by 8 hex characters.
func NewErrorID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ERR-" + hex[:8]
}
