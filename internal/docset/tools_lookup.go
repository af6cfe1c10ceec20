package docset

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LookupArgument defines lookup parameters.
type LookupArgument struct {
	Name string `json:"name" jsonschema_description:"Fully qualified symbol name (e.g., std::vector::push_back) or a 40 character hex symbol ID"`
}

// LookupHandler handles the lookup MCP tool.
type LookupHandler struct {
	service *Service
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(service *Service) *LookupHandler {
	return &LookupHandler{
		service: service,
	}
}

// Handle resolves a symbol and returns its rendered documentation. Overloads
// sharing a name are all returned in canonical order.
func (h *LookupHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args LookupArgument) (*mcp.CallToolResult, any, error) {
	c, err := h.service.Corpus()
	if err != nil {
		return errorResult("Lookup is not available. The corpus is still being built. Please try again later."), nil, nil
	}

	if strings.TrimSpace(args.Name) == "" {
		return errorResult("Name cannot be empty"), nil, nil
	}

	matches := resolve(c, args.Name)
	if len(matches) == 0 {
		return errorResult(fmt.Sprintf("Symbol not found: %s", args.Name)), nil, nil
	}

	var sb strings.Builder
	if len(matches) > 1 {
		fmt.Fprintf(&sb, "%d symbols named '%s':\n\n", len(matches), args.Name)
	}
	for i, info := range matches {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString(renderSymbol(c, info))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}, nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *LookupHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "lookup_symbol",
		Description: "Show the documentation and declaration details of a C++ symbol by qualified name or symbol ID",
	}
}

// RegisterLookupTool registers the lookup tool with an MCP server.
func RegisterLookupTool(server *mcp.Server, service *Service) {
	handler := NewLookupHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}
