package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-audit/internal/application"
)

// AppContext carries the state every command needs after the root pre-run.
type AppContext struct {
	Logger     *zap.Logger
	ResultsDir string
	LogDir     string
	Config     *CLIConfig

	// Services is built on first use so catalog and version never touch the network stack.
	Services *application.Container
}

var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if globalAppContext == nil {
		globalAppContext = &AppContext{Logger: zap.NewNop(), Config: newCLIConfig()}
	}
	return globalAppContext
}

// services returns the engine container, creating it from the current config.
func (a *AppContext) services() (*application.Container, error) {
	if a.Services != nil {
		return a.Services, nil
	}
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	container, err := application.NewContainer(a.Config.Settings(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.Services = container
	return container, nil
}

// close releases the engines. Safe to call when they were never built.
func (a *AppContext) close() {
	if a == nil || a.Services == nil {
		return
	}
	if err := a.Services.Close(); err != nil {
		cliLogger().Warnf("failed to stop services: %v", err)
	}
	a.Services = nil
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// cliLogger returns the command logger, or a no-op one before the root pre-run.
func cliLogger() *zap.SugaredLogger {
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}
