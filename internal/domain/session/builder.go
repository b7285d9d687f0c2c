package session

import (
	"time"

	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/bridge"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/scriptgate/internal/shared/id"
)

// BuildConfig holds what every workspace shares
type BuildConfig struct {
	Sandbox     sandbox.Config
	Validator   sandbox.Validator
	Metrics     sandbox.Metrics
	Logger      *logging.Logger
	Page        string
	ContainerID string
	ConsoleSize int
}

// NewBuilder returns a Builder wiring a runner to a fresh host page. The
// runner writes to the workspace console and, when Logger is set, to the
// service log as well.
func NewBuilder(cfg BuildConfig) Builder {
	if cfg.Page == "" {
		cfg.Page = bridge.DefaultPage
	}
	if cfg.ContainerID == "" {
		cfg.ContainerID = bridge.DefaultContainerID
	}

	return func(sid id.SessionID) (*Workspace, error) {
		host, err := bridge.NewHost(cfg.Page, cfg.ContainerID)
		if err != nil {
			return nil, err
		}

		console := logging.NewRingLog(cfg.ConsoleSize)
		sink := logging.NewMultiSink(console)
		if cfg.Logger != nil {
			sink.Add(logging.NewZapSink(cfg.Logger.Component("sandbox").Session(sid.String())))
		}

		opts := []sandbox.Option{
			sandbox.WithSink(sink),
			sandbox.WithAttacher(host),
		}
		if cfg.Metrics != nil {
			opts = append(opts, sandbox.WithMetrics(cfg.Metrics))
		}

		return &Workspace{
			ID:        sid,
			Runner:    sandbox.NewRunner(cfg.Sandbox, cfg.Validator, opts...),
			Host:      host,
			Console:   console,
			CreatedAt: time.Now(),
		}, nil
	}
}
