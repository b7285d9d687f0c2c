package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/scriptgate/internal/domain/harness"
	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
)

// corpusPattern selects case files when --corpus names a directory.
const corpusPattern = "**/*.{yaml,yml,toml,json}"

type options struct {
	maliciousOnly bool
	benignOnly    bool
	verbose       bool
	jsonOut       bool
	exportPath    string
	corpora       []string
	execute       bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "sectest",
		Short:         "Measure detection and false-positive rates of the code validator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.maliciousOnly && opts.benignOnly {
				return errors.New("--malicious-only and --benign-only are mutually exclusive")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.BoolVar(&opts.maliciousOnly, "malicious-only", false, "run only the malicious corpus")
	f.BoolVar(&opts.benignOnly, "benign-only", false, "run only the benign corpus")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print every case as it runs")
	f.BoolVar(&opts.jsonOut, "json", false, "print the full report as JSON")
	f.StringVar(&opts.exportPath, "export-report", "", "write the report to FILE (.html, .json or text; .gz compresses)")
	f.StringSliceVar(&opts.corpora, "corpus", nil, "extra case file or directory (repeatable)")
	f.BoolVar(&opts.execute, "execute", false, "also run admitted cases in the sandbox")
	return cmd
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Service:     "sectest",
		Level:       level,
		Development: true,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engine, err := validator.New(cfg.ValidatorConfig())
	if err != nil {
		return fmt.Errorf("compile rule catalog: %w", err)
	}

	var exec harness.Executor
	if opts.execute {
		exec = sandbox.NewRunner(cfg.SandboxConfig(), engine,
			sandbox.WithSink(logging.NewZapSink(logger.Component("sandbox"))))
	}

	hopts := []harness.Option{harness.WithLogger(logger)}
	if opts.verbose && !opts.jsonOut {
		hopts = append(hopts, harness.WithProgress(printProgress(stderr)))
	}
	h := harness.New(engine, exec, hopts...)

	for _, path := range opts.corpora {
		cases, err := loadCorpus(path)
		if err != nil {
			return err
		}
		for _, tc := range cases {
			h.AddCase(tc)
		}
		logger.Info("Loaded corpus", zap.String("path", path), zap.Int("cases", len(cases)))
	}

	var report *harness.Report
	switch {
	case opts.maliciousOnly:
		report = h.RunMalicious(ctx)
	case opts.benignOnly:
		report = h.RunBenign(ctx)
	default:
		report = h.RunAll(ctx)
	}

	if opts.jsonOut {
		err = report.WriteJSON(stdout)
	} else {
		err = report.WriteSummary(stdout)
	}
	if err != nil {
		return err
	}

	if opts.exportPath != "" {
		if err := report.Save(opts.exportPath); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "report written to %s\n", opts.exportPath)
	}

	if report.HasCriticalGaps() {
		return errCriticalGaps
	}
	return nil
}

func loadCorpus(path string) ([]harness.TestCase, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return harness.LoadDir(filepath.Clean(path), corpusPattern)
	}
	return harness.LoadCases(path)
}

func printProgress(w io.Writer) harness.Progress {
	return func(index, total int, r harness.TestResult) {
		verdict := "ALLOWED"
		if r.WasBlocked {
			verdict = "BLOCKED"
		}
		status := "ok  "
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%d/%d] %s %-7s %s (%s)\n", index, total, status, verdict, r.Case.Name, r.Case.Category)
	}
}
