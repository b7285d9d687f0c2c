package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the code admission pipeline over HTTP",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if dev {
				cfg.Logging.Development = true
				cfg.Logging.Level = "debug"
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8000", "server port (overrides PORT)")
	cmd.Flags().BoolVar(&dev, "dev", false, "development logging")
	return cmd
}

func run(cfg *config.Config) error {
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		return srv.Close()
	case err := <-errChan:
		_ = srv.Close()
		return err
	}
}
