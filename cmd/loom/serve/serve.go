// Package servecmder provides the serve command, which runs the loom HTTP
// and MCP API.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/loom/api"
	"github.com/papercomputeco/loom/cmd/loom/bootstrap"
	"github.com/papercomputeco/loom/pkg/config"
	"github.com/papercomputeco/loom/pkg/logger"
)

const serveLongDesc string = `Run the loom API server.

The server advances conversations over HTTP and exposes the same agent as
MCP tools at /mcp:
  POST /v1/conversations/:id/turns   Advance a conversation
  GET  /v1/conversations/:id         Read a conversation checkpoint
  GET  /v1/users/:id/memory          Read a user's long-term memory

Examples:
  loom serve
  loom serve --listen :9000 --provider openai --postgres-dsn postgres://...`

const serveShortDesc string = "Run the loom API server"

const shutdownTimeout = 10 * time.Second

var serveFlags = slices.Concat(bootstrap.EngineFlags, []string{config.FlagAPIListen})

type serveCommander struct {
	disableMCP bool
	logFile    string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.disableMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs, with source locations, to this file")
	config.AddFlags(cmd, config.Flags, serveFlags)

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	opts, err := bootstrap.OptionsFromCommand(cmd, serveFlags, "api")
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		log = logger.Multi(log, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithSource(true),
			logger.WithWriter(f),
		))
	}
	opts.Logger = log

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("closing runtime", "error", err)
		}
	}()

	server, err := api.NewServer(api.Config{
		ListenAddr: opts.Config.API.Listen,
		DisableMCP: c.disableMCP,
	}, rt.Engine, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	log.Info("serving",
		"listen", opts.Config.API.Listen,
		"provider", opts.Config.Model.Provider,
		"model", rt.ModelName,
		"storage", opts.Config.Storage.Driver,
		"mcp", !c.disableMCP,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
