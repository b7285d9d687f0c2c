package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/scriptgate/internal/shared/id"
)

func newTestManager(limit int) *Manager {
	return NewManager(NewBuilder(BuildConfig{
		Sandbox:   sandbox.DefaultConfig(),
		Validator: validator.Default(),
	}), limit)
}

func TestOpenReusesWorkspace(t *testing.T) {
	m := newTestManager(0)
	defer m.CloseAll()

	sid := id.NewSessionID()
	first, err := m.Open(sid)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	second, err := m.Open(sid)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if first != second {
		t.Error("Expected the same workspace for one session")
	}
	if first.ID != sid {
		t.Errorf("Expected id %s, got %s", sid, first.ID)
	}
	if m.Stats().Workspaces != 1 {
		t.Errorf("Expected 1 workspace, got %d", m.Stats().Workspaces)
	}
}

func TestWorkspacesAreIsolated(t *testing.T) {
	m := newTestManager(0)
	defer m.CloseAll()

	a, _ := m.Open(id.NewSessionID())
	b, _ := m.Open(id.NewSessionID())

	code := `var c = stage.createCanvas(10, 10); console.log("drawn");`
	if _, err := a.Runner.Execute(context.Background(), code); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if a.Host.Transplants() != 1 {
		t.Errorf("Expected 1 transplant in a, got %d", a.Host.Transplants())
	}
	if b.Host.Transplants() != 0 {
		t.Errorf("Expected no transplant in b, got %d", b.Host.Transplants())
	}
	if a.Console.Len() == 0 {
		t.Error("Expected console output in a")
	}
	if b.Console.Len() != 0 {
		t.Error("Expected empty console in b")
	}
}

func TestExecuteWithoutCanvas(t *testing.T) {
	m := newTestManager(0)
	defer m.CloseAll()

	ws, err := m.Open(id.NewSessionID())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	session, err := ws.Runner.Execute(context.Background(), "function add(a,b){return a+b;}")
	if err != nil {
		t.Fatalf("Expected plain function to run, got %v", err)
	}
	if ws.Host.SessionID() != session.ID() {
		t.Errorf("Expected host to track %s, got %s", session.ID(), ws.Host.SessionID())
	}
	if inner, _ := ws.Host.Container(); inner != "" {
		t.Errorf("Expected empty container, got %q", inner)
	}
	for _, e := range ws.Console.Entries() {
		if e.Level >= zapcore.WarnLevel {
			t.Errorf("Unexpected console line: %s", e.Message)
		}
	}
}

func TestLimit(t *testing.T) {
	m := newTestManager(1)
	defer m.CloseAll()

	if _, err := m.Open(id.NewSessionID()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_, err := m.Open(id.NewSessionID())
	if !errors.Is(err, ErrLimitReached) {
		t.Errorf("Expected ErrLimitReached, got %v", err)
	}
}

func TestCloseAndSweep(t *testing.T) {
	m := newTestManager(0)

	keep := id.NewSessionID()
	drop := id.NewSessionID()
	m.Open(keep)
	ws, _ := m.Open(drop)

	if !m.Close(drop) {
		t.Error("Expected Close to report removal")
	}
	if m.Close(drop) {
		t.Error("Expected second Close to report nothing")
	}
	if ws.Runner.Active() != nil {
		t.Error("Expected closed workspace to have no realm")
	}

	if n := m.Sweep(time.Hour); n != 0 {
		t.Errorf("Expected no stale workspaces, got %d", n)
	}
	if n := m.Sweep(-time.Second); n != 1 {
		t.Errorf("Expected 1 swept workspace, got %d", n)
	}
	if len(m.List()) != 0 {
		t.Error("Expected empty list after sweep")
	}
}

func TestBuildFailure(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager(func(sid id.SessionID) (*Workspace, error) { return nil, boom }, 0)

	_, err := m.Open(id.NewSessionID())
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped build error, got %v", err)
	}
	if m.Stats().Workspaces != 0 {
		t.Error("Expected no workspace after failed build")
	}
}
