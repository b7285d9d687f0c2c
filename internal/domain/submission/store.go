package submission

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/shared/id"
)

// FileName is the only file a participant may save.
const FileName = "game.js"

// DefaultTemplate is served when a session has not saved anything yet.
const DefaultTemplate = `var game = {
  canvas: stage.createCanvas(400, 300),
  score: 0,
  start: function () {
    stage.log("start");
  }
};
`

var (
	ErrInvalidFile    = errors.New("invalid file name")
	ErrInvalidSession = errors.New("invalid session id")
	ErrNotFound       = errors.New("no saved code for session")
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validator screens code before it is stored
type Validator interface {
	Validate(code string) validator.Report
}

// Saved describes one save attempt. ID is set only when code was written.
type Saved struct {
	ID     id.SubmissionID
	Report validator.Report
}

// Store persists one submission per session
type Store struct {
	dir       string
	validator Validator
	mu        sync.Mutex
}

// NewStore creates the store directory if needed.
func NewStore(dir string, v Validator) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create submission dir: %w", err)
	}
	return &Store{dir: dir, validator: v}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates code and writes it for the session under a fresh
// submission id. A blocked submission returns its report together with a
// *validator.ValidationError and leaves any previously stored code
// untouched.
func (s *Store) Save(sessionID, file, code string) (Saved, error) {
	if file != FileName {
		return Saved{}, fmt.Errorf("%w: %q", ErrInvalidFile, file)
	}
	path, err := s.path(sessionID)
	if err != nil {
		return Saved{}, err
	}

	saved := Saved{Report: s.validator.Validate(code)}
	if err := saved.Report.Err(); err != nil {
		return saved, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(path, []byte(code)); err != nil {
		return saved, fmt.Errorf("save submission: %w", err)
	}
	saved.ID = id.NewSubmissionID()
	return saved, nil
}

// Load returns the stored code, or ErrNotFound.
func (s *Store) Load(sessionID string) (string, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load submission: %w", err)
	}
	return string(data), nil
}

// LoadOrTemplate returns the stored code, falling back to DefaultTemplate.
func (s *Store) LoadOrTemplate(sessionID string) (string, error) {
	code, err := s.Load(sessionID)
	if errors.Is(err, ErrNotFound) {
		return DefaultTemplate, nil
	}
	return code, err
}

// Delete removes the stored code. Missing files are not an error.
func (s *Store) Delete(sessionID string) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}

func (s *Store) path(sessionID string) (string, error) {
	if !sessionPattern.MatchString(sessionID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSession, sessionID)
	}
	return filepath.Join(s.dir, "game_"+sessionID+".js"), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".game-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
