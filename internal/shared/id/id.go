// Package id provides prefixed ULID generation for the service.
//
// IDs are lexicographically sortable and carry a type prefix so log lines
// stay readable:
//   - sbx_*  sandbox sessions (one realm per execution)
//   - sess_* participant sessions
//   - req_*  HTTP requests
//   - sub_*  stored submissions
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SandboxID identifies one sandbox session
type SandboxID string

// SessionID identifies a participant session
type SessionID string

// RequestID identifies an API request
type RequestID string

// SubmissionID identifies a stored code submission
type SubmissionID string

const (
	SandboxPrefix    = "sbx"
	SessionPrefix    = "sess"
	RequestPrefix    = "req"
	SubmissionPrefix = "sub"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSandboxID generates a new sandbox session ID
func NewSandboxID() SandboxID {
	return SandboxID(Default().GenerateWithPrefix(SandboxPrefix))
}

// NewSessionID generates a new participant session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewSubmissionID generates a new submission ID
func NewSubmissionID() SubmissionID {
	return SubmissionID(Default().GenerateWithPrefix(SubmissionPrefix))
}

func (id SandboxID) String() string    { return string(id) }
func (id SessionID) String() string    { return string(id) }
func (id RequestID) String() string    { return string(id) }
func (id SubmissionID) String() string { return string(id) }

// SplitPrefixed separates "prefix_ULID" into its parts and validates the ULID.
func SplitPrefixed(id string) (string, ulid.ULID, error) {
	prefix, raw, ok := strings.Cut(id, "_")
	if !ok || prefix == "" {
		return "", ulid.ULID{}, fmt.Errorf("id %q has no prefix", id)
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("id %q: %w", id, err)
	}
	return prefix, parsed, nil
}

// HasPrefix reports whether id is a well-formed ID of the given type.
func HasPrefix(id, prefix string) bool {
	p, _, err := SplitPrefixed(id)
	return err == nil && p == prefix
}
