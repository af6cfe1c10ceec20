package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/relic-corpus/internal/docset"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Docset serves the corpus tools. Without it the server has no tools.
	Docset *docset.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Docset != nil {
		docset.RegisterLookupTool(s, cfg.Docset)
		docset.RegisterSearchTool(s, cfg.Docset)
		docset.RegisterMembersTool(s, cfg.Docset)
	}

	return s
}
