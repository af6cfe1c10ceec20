package docset

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/relic-corpus/internal/corpus"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

// MembersArgument defines list_members parameters.
type MembersArgument struct {
	Scope string `json:"scope,omitempty" jsonschema_description:"Qualified name or hex ID of a namespace or class; empty for the global namespace"`
}

// MembersHandler handles the list_members MCP tool.
type MembersHandler struct {
	service *Service
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(service *Service) *MembersHandler {
	return &MembersHandler{
		service: service,
	}
}

// Handle lists the direct children of a scope in canonical order.
func (h *MembersHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args MembersArgument) (*mcp.CallToolResult, any, error) {
	c, err := h.service.Corpus()
	if err != nil {
		return errorResult("Listing members is not available. The corpus is still being built. Please try again later."), nil, nil
	}

	scope := strings.TrimSpace(args.Scope)
	var children []string
	label := "(global namespace)"

	if scope == "" {
		children = memberLines(c, corpus.Children(c.GlobalNamespace()))
	} else {
		matches := resolve(c, scope)
		if len(matches) == 0 {
			return errorResult(fmt.Sprintf("Scope not found: %s", scope)), nil, nil
		}
		label = scope
		for _, info := range matches {
			children = append(children, memberLines(c, corpus.Children(info))...)
		}
	}

	if len(children) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("%s has no members", label)},
			},
		}, nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s has %d members:\n\n", label, len(children))
	for _, line := range children {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}, nil, nil
}

func memberLines(c *corpus.Corpus, ids []symbols.SymbolID) []string {
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		info, ok := c.Get(id)
		if !ok {
			lines = append(lines, fmt.Sprintf("- (unresolved) `%s`", id))
			continue
		}
		line := fmt.Sprintf("- %s `%s`", info.Kind(), displayName(c, id))
		if brief := info.Base().Doc.Brief(); brief != "" {
			line += ": " + brief
		}
		lines = append(lines, line)
	}
	return lines
}

// GetToolDefinition returns the MCP tool definition.
func (h *MembersHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_members",
		Description: "List the members of a C++ namespace or class in canonical order",
	}
}

// RegisterMembersTool registers the list_members tool with an MCP server.
func RegisterMembersTool(server *mcp.Server, service *Service) {
	handler := NewMembersHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
