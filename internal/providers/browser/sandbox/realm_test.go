package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
)

func newTestSession(t *testing.T) (*Session, *logging.RingLog) {
	t.Helper()
	ring := logging.NewRingLog(logging.DefaultRingCapacity)
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	s, err := newSession(cfg, ring, noopMetrics{})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	t.Cleanup(s.Close)
	return s, ring
}

func exportGame(t *testing.T, s *Session) interface{} {
	t.Helper()
	h := s.Game()
	if h == nil {
		t.Fatal("expected a game binding")
	}
	v, err := h.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	return v
}

func TestRealmShadowsEscapeHatches(t *testing.T) {
	names := []string{
		"eval", "Function", "document", "window", "localStorage", "sessionStorage",
		"indexedDB", "fetch", "XMLHttpRequest", "WebSocket", "importScripts",
		"globalThis", "self", "parent", "top",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestSession(t)
			if err := s.run(context.Background(), "var game = typeof "+name+";"); err != nil {
				t.Fatalf("run: %v", err)
			}
			if got := exportGame(t, s); got != "undefined" {
				t.Errorf("typeof %s = %v, want undefined", name, got)
			}
		})
	}
}

func TestRealmKeepsAllowlist(t *testing.T) {
	s, _ := newTestSession(t)

	code := `var game = [typeof Math, typeof JSON, typeof Array, typeof Date, typeof Map, typeof Promise].join(",");`
	if err := s.run(context.Background(), code); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := exportGame(t, s); got != "object,object,function,function,function,function" {
		t.Errorf("allowlisted globals = %v", got)
	}
}

func TestRealmStripsOtherGlobals(t *testing.T) {
	for _, name := range []string{"Proxy", "Reflect", "escape", "unescape", "require", "process"} {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestSession(t)
			if err := s.run(context.Background(), "var game = typeof "+name+";"); err != nil {
				t.Fatalf("run: %v", err)
			}
			if got := exportGame(t, s); got != "undefined" {
				t.Errorf("typeof %s = %v, want undefined", name, got)
			}
		})
	}
}

func TestRealmSealsFunctionConstructor(t *testing.T) {
	scripts := []string{
		"(function(){}).constructor('return 1')();",
		"(() => 1).constructor('return 1')();",
		"Object.getPrototypeOf(function*(){}).constructor('yield 1');",
	}

	for _, script := range scripts {
		s, _ := newTestSession(t)
		err := s.run(context.Background(), script)
		if err == nil {
			t.Errorf("expected %q to fail", script)
			continue
		}
		if !strings.Contains(err.Error(), "dynamic code generation is disabled") {
			t.Errorf("unexpected error for %q: %v", script, err)
		}
	}
}

func TestRealmStrictMode(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.run(context.Background(), "var game = (function() { return this; })() === undefined;"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := exportGame(t, s); got != true {
		t.Error("free functions must not see the global object")
	}

	s2, _ := newTestSession(t)
	if err := s2.run(context.Background(), "undeclared = 1;"); err == nil {
		t.Error("implicit globals must fail under strict mode")
	}
}

func TestConsoleRoutesToSink(t *testing.T) {
	s, ring := newTestSession(t)

	if err := s.run(context.Background(), "console.log('hello', 42); console.warn('careful'); console.error('bad');"); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries := ring.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "hello 42" {
		t.Errorf("message = %q", entries[0].Message)
	}
	if entries[2].Level.String() != "error" {
		t.Errorf("level = %s", entries[2].Level)
	}
}

func TestConsoleDisabled(t *testing.T) {
	ring := logging.NewRingLog(10)
	cfg := DefaultConfig()
	cfg.DisableConsole = true
	s, err := newSession(cfg, ring, noopMetrics{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.run(context.Background(), "console.log('quiet');"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ring.Len() != 0 {
		t.Error("console output should be dropped")
	}
}

func TestStringTimerRejected(t *testing.T) {
	s, _ := newTestSession(t)

	// The validator refuses this text; the realm refuses it again.
	err := s.run(context.Background(), "var body = 'tick()'; setTimeout(body, 10);")
	if err == nil || !strings.Contains(err.Error(), "must be a function") {
		t.Errorf("expected TypeError, got %v", err)
	}
}

func TestTimersRunAfterExecution(t *testing.T) {
	s, ring := newTestSession(t)

	code := `
var ticks = 0;
setTimeout(function (label) { console.log(label); }, 5, "fired");
var handle = setInterval(function () { ticks++; if (ticks === 3) { clearInterval(handle); console.log("done"); } }, 5);
var game = { ticks: function () { return ticks; } };
`
	if err := s.run(context.Background(), code); err != nil {
		t.Fatalf("run: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ring.Len() >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, err := s.Game().Invoke(context.Background(), "ticks")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != int64(3) {
		t.Errorf("ticks = %v, want 3", got)
	}
	if s.PendingTimers() != 0 {
		t.Errorf("pending timers = %d", s.PendingTimers())
	}
}

func TestAnimationFrames(t *testing.T) {
	s, _ := newTestSession(t)

	code := `
var frames = 0;
function loop(ts) { frames++; if (frames < 3) requestAnimationFrame(loop); }
requestAnimationFrame(loop);
`
	if err := s.run(context.Background(), code); err != nil {
		t.Fatalf("run: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Frames() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Frames() != 3 {
		t.Errorf("frames = %d, want 3", s.Frames())
	}
}

func TestTimerCap(t *testing.T) {
	ring := logging.NewRingLog(10)
	cfg := DefaultConfig()
	cfg.MaxTimers = 2
	s, err := newSession(cfg, ring, noopMetrics{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	err = s.run(context.Background(), "for (var i = 0; i < 3; i++) { setTimeout(function(){}, 1000); }")
	if err == nil || !strings.Contains(err.Error(), ErrTooManyTimers.Error()) {
		t.Errorf("expected timer cap error, got %v", err)
	}
}

func TestCallbackErrorIsLogged(t *testing.T) {
	s, ring := newTestSession(t)

	if err := s.run(context.Background(), "setTimeout(function () { throw new Error('late'); }, 1);"); err != nil {
		t.Fatalf("run: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ring.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	entries := ring.Entries()
	if len(entries) == 0 || !strings.Contains(entries[0].Message, "late") {
		t.Errorf("callback error not logged: %+v", entries)
	}
}

func TestNoCallbacksAfterTeardown(t *testing.T) {
	s, ring := newTestSession(t)

	if err := s.run(context.Background(), "setInterval(function () { console.log('tick'); }, 5);"); err != nil {
		t.Fatalf("run: %v", err)
	}

	s.Close()
	time.Sleep(20 * time.Millisecond)
	before := ring.Len()
	time.Sleep(50 * time.Millisecond)

	if ring.Len() != before {
		t.Error("callbacks ran after teardown")
	}
	if _, err := (&GameHandle{session: s}).Export(); err != ErrSessionClosed {
		t.Errorf("Export after close = %v", err)
	}
}

func TestStageCanvas(t *testing.T) {
	s, _ := newTestSession(t)

	code := `
var canvas = stage.createCanvas(320, 240);
var ctx = canvas.getContext("2d");
ctx.fillStyle = "#ff0000";
ctx.fillRect(0, 0, 10, 10);
ctx.fillText("score", 5, 5);
var game = { width: canvas.width, other: canvas.getContext("webgl") };
`
	if err := s.run(context.Background(), code); err != nil {
		t.Fatalf("run: %v", err)
	}

	canvases := s.Surface().Canvases()
	if len(canvases) != 1 {
		t.Fatalf("canvases = %d", len(canvases))
	}
	ops := canvases[0].Canvas.Ops()
	if len(ops) != 2 || ops[0].Name != "fillRect" || ops[0].Style != "#ff0000" {
		t.Errorf("ops = %+v", ops)
	}
	if ops[1].Text != "score" {
		t.Errorf("fillText op = %+v", ops[1])
	}

	game := exportGame(t, s).(map[string]interface{})
	if game["width"] != int64(320) || game["other"] != nil {
		t.Errorf("game = %v", game)
	}
}

func TestStageCanvasBounds(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.run(context.Background(), "stage.createCanvas(0, 10);"); err == nil {
		t.Error("zero-width canvas should fail")
	}
}

func TestStageCanvasData(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.run(context.Background(), `stage.createCanvas(8, 8).setData("level", "2");`); err != nil {
		t.Fatalf("run: %v", err)
	}
	elem := s.Surface().Canvases()[0]
	if got := elem.GetAttribute("data-level"); got != "2" {
		t.Errorf("data-level = %q", got)
	}
	changes := s.Surface().Changes()
	if last := changes[len(changes)-1]; last.Type != "set_attribute" || last.Property != "data-level" {
		t.Errorf("last change = %+v", last)
	}

	for _, key := range []string{"onclick=", "Upper", ""} {
		code := `stage.createCanvas(8, 8).setData("` + key + `", "x");`
		if err := s.run(context.Background(), code); err == nil {
			t.Errorf("setData(%q) should fail", key)
		}
	}
}

func TestGameHandleInvoke(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.run(context.Background(), "var game = { score: 0, add: function (n) { this.score += n; return this.score; } };"); err != nil {
		t.Fatalf("run: %v", err)
	}

	h := s.Game()
	got, err := h.Invoke(context.Background(), "add", 5)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != int64(5) {
		t.Errorf("add(5) = %v", got)
	}
	if _, err := h.Invoke(context.Background(), "missing"); err == nil {
		t.Error("missing method should fail")
	}

	s.Close()
	if _, err := h.Invoke(context.Background(), "add", 1); err != ErrSessionClosed {
		t.Errorf("Invoke after close = %v", err)
	}
}

func TestWrapShadowsEveryName(t *testing.T) {
	wrapped := wrap("var a = 1;")
	for _, name := range shadowed {
		if !strings.Contains(wrapped, name) {
			t.Errorf("wrapper does not shadow %s", name)
		}
	}
	if !strings.Contains(wrapped, `"use strict"`) {
		t.Error("wrapper must run the body in strict mode")
	}
}
