package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/sha1n/relic-corpus/internal/config"
	"github.com/sha1n/relic-corpus/internal/docset"
	mcputil "github.com/sha1n/relic-corpus/internal/mcp"
)

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings) error
	CreateServer      func(*config.Settings) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging()

	slog.Info("Starting RELIC corpus server", "version", version)
	config.Log(settings)

	mcpServer, cleanup, err := params.CreateServer(settings)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Start server
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	} else {
		slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
		return params.StartSSEServer(mcpServer, settings)
	}
}

// CreateMCPServer builds the corpus and creates the MCP server with the corpus
// tools registered. A failed build leaves the server running without tools.
func CreateMCPServer(settings *config.Settings) (*mcp.Server, func(), error) {
	var docsetSvc *docset.Service
	var cleanup func()

	svc, err := docset.NewService(&settings.Corpus)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create docset service: %w", err)
	}

	// Initialize in background context (not tied to request context)
	if err := svc.Initialize(context.Background()); err != nil {
		slog.Error("Corpus initialization failed", "error", err)
		if closeErr := svc.Close(); closeErr != nil {
			slog.Error("Failed to close docset service", "error", closeErr)
		}
	} else {
		docsetSvc = svc
		cleanup = func() {
			if err := svc.Close(); err != nil {
				slog.Error("Failed to close docset service", "error", err)
			}
		}
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    "relic-corpus",
		Version: "1.0.0",
		Docset:  docsetSvc,
	})

	return server, cleanup, nil
}
