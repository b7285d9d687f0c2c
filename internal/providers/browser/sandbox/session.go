package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/shared/id"
)

// Session is one disposable realm created for a single Execute call. It
// lives until its teardown fires or the host closes it.
type Session struct {
	id      id.SandboxID
	cfg     Config
	sink    logging.Sink
	metrics Metrics
	started time.Time

	// mu serializes every entry into the realm: the initial run, timer
	// callbacks and host calls through the game handle.
	mu     sync.Mutex
	vm     *goja.Runtime
	dom    *DOM
	game   goja.Value
	timers map[int64]*timer
	nextID int64
	frames int
	closed bool

	jobs chan func()
	done chan struct{}

	tdMu     sync.Mutex
	teardown *Teardown
}

type timer struct {
	fn       goja.Callable
	args     []goja.Value
	interval time.Duration
	repeat   bool
	frame    bool
	t        *time.Timer
}

func newSession(cfg Config, sink logging.Sink, metrics Metrics) (*Session, error) {
	s := &Session{
		id:      id.NewSandboxID(),
		cfg:     cfg,
		sink:    sink,
		metrics: metrics,
		started: time.Now(),
		vm:      goja.New(),
		dom:     NewDOM(),
		timers:  make(map[int64]*timer),
		jobs:    make(chan func(), cfg.MaxTimers),
		done:    make(chan struct{}),
	}

	s.vm.SetMaxCallStackSize(cfg.MaxCallStackSize)

	if err := harden(s.vm); err != nil {
		return nil, err
	}
	if err := s.installConsole(); err != nil {
		return nil, fmt.Errorf("install console: %w", err)
	}
	if err := s.installTimers(); err != nil {
		return nil, fmt.Errorf("install timers: %w", err)
	}
	if err := s.installStage(); err != nil {
		return nil, fmt.Errorf("install stage: %w", err)
	}

	go s.loop()
	metrics.SessionOpened()
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() id.SandboxID {
	return s.id
}

// Surface returns the realm's render surface. It stays readable after
// teardown.
func (s *Session) Surface() *DOM {
	return s.dom
}

// Game returns the handle to the top-level game binding, or nil when the
// admitted code declared none.
func (s *Session) Game() *GameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil || goja.IsUndefined(s.game) || goja.IsNull(s.game) {
		return nil
	}
	return &GameHandle{session: s, value: s.game}
}

// Frames returns how many animation frames have been delivered.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// PendingTimers returns the number of scheduled callbacks.
func (s *Session) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Closed reports whether the realm has been destroyed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Done is closed once the realm is destroyed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Teardown returns the scheduled teardown token, nil until execution ends.
func (s *Session) Teardown() *Teardown {
	s.tdMu.Lock()
	defer s.tdMu.Unlock()
	return s.teardown
}

// Close destroys the realm now. Safe to call more than once.
func (s *Session) Close() {
	if td := s.Teardown(); td != nil {
		td.Fire()
	}
	s.destroy()
}

func (s *Session) scheduleTeardown(grace time.Duration) *Teardown {
	s.tdMu.Lock()
	defer s.tdMu.Unlock()
	if s.teardown == nil {
		s.teardown = newTeardown(grace, s.destroy)
	}
	return s.teardown
}

// run executes admitted code synchronously.
func (s *Session) run(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	// A standalone parse first, so unbalanced input cannot close the wrapper.
	if _, err := goja.Compile("submission.js", code, true); err != nil {
		return &ExecutionError{SessionID: s.id.String(), Message: err.Error(), Err: err}
	}

	var result goja.Value
	err := s.guard(ctx, func() error {
		var runErr error
		result, runErr = s.vm.RunScript("submission.js", wrap(code))
		return runErr
	})
	if err != nil {
		return &ExecutionError{SessionID: s.id.String(), Message: exceptionMessage(err), Err: err}
	}

	s.game = result
	return nil
}

// guard bounds one entry into the realm by the configured timeout and ctx.
func (s *Session) guard(ctx context.Context, fn func() error) error {
	var (
		mu       sync.Mutex
		finished bool
	)
	interrupt := func(reason string) {
		mu.Lock()
		defer mu.Unlock()
		if !finished {
			s.vm.Interrupt(reason)
		}
	}

	deadline := time.AfterFunc(s.cfg.Timeout, func() { interrupt("execution timeout exceeded") })
	stop := context.AfterFunc(ctx, func() { interrupt("context cancelled") })

	err := fn()

	mu.Lock()
	finished = true
	mu.Unlock()
	deadline.Stop()
	stop()
	s.vm.ClearInterrupt()

	return err
}

func (s *Session) installTimers() error {
	fns := map[string]func(goja.FunctionCall) goja.Value{
		"setTimeout":  func(call goja.FunctionCall) goja.Value { return s.setTimer(call, false) },
		"setInterval": func(call goja.FunctionCall) goja.Value { return s.setTimer(call, true) },
		"clearTimeout": func(call goja.FunctionCall) goja.Value {
			s.clearTimer(call.Argument(0).ToInteger())
			return goja.Undefined()
		},
		"clearInterval": func(call goja.FunctionCall) goja.Value {
			s.clearTimer(call.Argument(0).ToInteger())
			return goja.Undefined()
		},
		"requestAnimationFrame": func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(call.Argument(0))
			if !ok {
				panic(s.vm.NewTypeError("requestAnimationFrame callback must be a function"))
			}
			return s.vm.ToValue(s.schedule(fn, nil, s.cfg.FrameInterval, false, true))
		},
		"cancelAnimationFrame": func(call goja.FunctionCall) goja.Value {
			s.clearTimer(call.Argument(0).ToInteger())
			return goja.Undefined()
		},
	}
	for name, fn := range fns {
		if err := s.vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// minInterval keeps a zero-delay setInterval from spinning the loop.
const minInterval = 4 * time.Millisecond

func (s *Session) setTimer(call goja.FunctionCall, repeat bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(s.vm.NewTypeError("timer callback must be a function"))
	}

	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	if repeat && delay < minInterval {
		delay = minInterval
	}

	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}
	return s.vm.ToValue(s.schedule(fn, args, delay, repeat, false))
}

// schedule runs with mu held, from inside the realm.
func (s *Session) schedule(fn goja.Callable, args []goja.Value, delay time.Duration, repeat, frame bool) int64 {
	if len(s.timers) >= s.cfg.MaxTimers {
		panic(s.vm.NewGoError(ErrTooManyTimers))
	}

	s.nextID++
	timerID := s.nextID
	t := &timer{fn: fn, args: args, interval: delay, repeat: repeat, frame: frame}
	t.t = time.AfterFunc(delay, func() {
		s.enqueue(func() { s.fire(timerID) })
	})
	s.timers[timerID] = t
	return timerID
}

func (s *Session) clearTimer(timerID int64) {
	if t, ok := s.timers[timerID]; ok {
		t.t.Stop()
		delete(s.timers, timerID)
	}
}

func (s *Session) enqueue(job func()) {
	select {
	case s.jobs <- job:
	case <-s.done:
	}
}

func (s *Session) loop() {
	for {
		select {
		case job := <-s.jobs:
			job()
		case <-s.done:
			return
		}
	}
}

func (s *Session) fire(timerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	t, ok := s.timers[timerID]
	if !ok {
		return
	}
	if !t.repeat {
		delete(s.timers, timerID)
	}

	args := t.args
	if t.frame {
		s.frames++
		elapsed := float64(time.Since(s.started).Microseconds()) / 1000
		args = []goja.Value{s.vm.ToValue(elapsed)}
	}

	err := s.guard(context.Background(), func() error {
		_, callErr := t.fn(goja.Undefined(), args...)
		return callErr
	})
	if err != nil {
		s.sink.Log(zapcore.ErrorLevel, "uncaught error in callback: "+exceptionMessage(err))
	}

	if t.repeat && !s.closed {
		if _, still := s.timers[timerID]; still {
			t.t.Reset(t.interval)
		}
	}
}

func (s *Session) destroy() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for timerID, t := range s.timers {
		t.t.Stop()
		delete(s.timers, timerID)
	}
	close(s.done)
	s.game = nil
	s.vm = nil
	s.mu.Unlock()

	s.metrics.SessionClosed()
	s.sink.Log(zapcore.DebugLevel, fmt.Sprintf("sandbox session %s torn down", s.id))
}

// GameHandle lets the host reach the game object after execution, as long
// as the session is alive.
type GameHandle struct {
	session *Session
	value   goja.Value
}

// SessionID returns the owning session's identifier.
func (h *GameHandle) SessionID() id.SandboxID {
	return h.session.id
}

// Invoke calls a method on the game object inside the realm.
func (h *GameHandle) Invoke(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	s := h.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	obj := h.value.ToObject(s.vm)
	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		return nil, fmt.Errorf("game has no method %q", method)
	}

	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = s.vm.ToValue(a)
	}

	var out goja.Value
	err := s.guard(ctx, func() error {
		var callErr error
		out, callErr = fn(obj, values...)
		return callErr
	})
	if err != nil {
		return nil, &ExecutionError{SessionID: s.id.String(), Message: exceptionMessage(err), Err: err}
	}
	if out == nil || goja.IsUndefined(out) || goja.IsNull(out) {
		return nil, nil
	}
	return out.Export(), nil
}

// Export returns a Go copy of the game value.
func (h *GameHandle) Export() (interface{}, error) {
	s := h.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return h.value.Export(), nil
}
