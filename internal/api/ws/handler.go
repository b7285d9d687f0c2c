package ws

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptgate/internal/api/middleware"
	"github.com/GriffinCanCode/scriptgate/internal/domain/harness"
	"github.com/GriffinCanCode/scriptgate/internal/domain/session"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/monitoring"
)

const (
	// runTimeout bounds one conformance run over the socket.
	runTimeout = 2 * time.Minute
	// writeWait bounds a single frame write to a slow client.
	writeWait = 10 * time.Second
	// consoleBuffer is how many console entries may queue per connection
	// before new ones are dropped.
	consoleBuffer = 64
)

// Message is a client request
type Message struct {
	Type  string `json:"type"`
	Suite string `json:"suite,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Handler manages WebSocket connections
type Handler struct {
	validator  harness.Validator
	workspaces *session.Manager
	metrics    *monitoring.Metrics
	logger     *logging.Logger
	upgrader   websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. Origins are checked against
// allowed; "*" or an empty list accepts any origin.
func NewHandler(v harness.Validator, workspaces *session.Manager, metrics *monitoring.Metrics, logger *logging.Logger, allowed []string) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		validator:  v,
		workspaces: workspaces,
		metrics:    metrics,
		logger:     logger.Component("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowed),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return len(allowed) == 0
	}
}

// conn serializes writes; console entries arrive from sandbox goroutines.
type conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	metrics *monitoring.Metrics
}

func (c *conn) send(msgType string, data gin.H) error {
	if data == nil {
		data = gin.H{}
	}
	data["type"] = msgType
	data["timestamp"] = time.Now().Unix()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", msgType)
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(data)
}

func (c *conn) sendError(msg string) error {
	return c.send("error", gin.H{"message": msg})
}

// consoleFeed forwards ring entries to one client. The ring subscriber
// only enqueues, so a slow client never stalls the sandbox that logged.
type consoleFeed struct {
	entries     chan logging.Entry
	quit        chan struct{}
	unsubscribe func()
	dropped     atomic.Int64
}

func newConsoleFeed(ring *logging.RingLog, deliver func(logging.Entry)) *consoleFeed {
	f := &consoleFeed{
		entries: make(chan logging.Entry, consoleBuffer),
		quit:    make(chan struct{}),
	}
	f.unsubscribe = ring.Subscribe(func(e logging.Entry) {
		select {
		case f.entries <- e:
		default:
			f.dropped.Add(1)
		}
	})

	go func() {
		for {
			select {
			case e := <-f.entries:
				deliver(e)
			case <-f.quit:
				return
			}
		}
	}()
	return f
}

// Dropped returns how many entries were discarded for this client.
func (f *consoleFeed) Dropped() int64 {
	return f.dropped.Load()
}

func (f *consoleFeed) close() {
	f.unsubscribe()
	close(f.quit)
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	cn := &conn{ws: raw, metrics: h.metrics}
	sid := middleware.SessionID(c)
	reqCtx := c.Request.Context()

	var feed *consoleFeed
	defer func() {
		if feed != nil {
			feed.close()
		}
	}()

	cn.send("system", gin.H{"message": "Connected to scriptgate", "session_id": sid})

	for {
		var msg Message
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "run":
			h.handleRun(reqCtx, cn, msg.Suite)
		case "validate":
			cn.send("validation", gin.H{"report": h.validator.Validate(msg.Code)})
		case "subscribe_console":
			ws, err := h.workspaces.Open(sid)
			if err != nil {
				cn.sendError(err.Error())
				continue
			}
			if feed != nil {
				feed.close()
			}
			cn.send("subscribed", gin.H{"entries": ws.Console.Entries()})
			feed = newConsoleFeed(ws.Console, func(e logging.Entry) {
				if err := cn.send("console", gin.H{"entry": e}); err != nil {
					h.logger.Debug("Console frame not delivered", zap.Error(err))
				}
			})
		case "ping":
			cn.send("pong", nil)
		default:
			cn.sendError("unknown message type")
		}
	}
}

func (h *Handler) handleRun(reqCtx context.Context, cn *conn, suite string) {
	ctx, cancel := context.WithTimeout(reqCtx, runTimeout)
	defer cancel()

	run := harness.New(h.validator, nil,
		harness.WithLogger(h.logger),
		harness.WithProgress(func(index, total int, result harness.TestResult) {
			cn.send("case_result", gin.H{
				"index":  index,
				"total":  total,
				"result": result,
			})
		}),
	)

	cn.send("run_start", gin.H{"suite": suite})

	var report *harness.Report
	switch suite {
	case "malicious":
		report = run.RunMalicious(ctx)
	case "benign":
		report = run.RunBenign(ctx)
	default:
		report = run.RunAll(ctx)
	}
	if h.metrics != nil {
		h.metrics.RecordHarness(report)
	}

	cn.send("report", gin.H{
		"summary":                 report.Summary,
		"security_effectiveness":  report.Effectiveness,
		"false_positive_analysis": report.FalsePositive,
		"critical_security_gaps":  report.CriticalGaps,
	})
	cn.send("complete", nil)
}
