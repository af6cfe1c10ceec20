package docset

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/relic-corpus/internal/domain"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query string `json:"query" jsonschema_description:"Search query matched against symbol names and documentation"`
	Kind  string `json:"kind,omitempty" jsonschema_description:"Filter by symbol kind (namespace, record, function, enum, typedef, variable, field, specialization)"`
}

// SearchHandler handles the search MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	index, err := h.service.Index()
	if err != nil {
		return errorResult("Search is not available. The corpus is still being indexed. Please try again later."), nil, nil
	}

	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	kind := strings.ToLower(strings.TrimSpace(args.Kind))
	if kind != "" && symbols.ParseKind(kind) == symbols.KindNone {
		return errorResult(fmt.Sprintf("Unknown symbol kind: %s", args.Kind)), nil, nil
	}

	searchReq := bleve.NewSearchRequest(buildSearchQuery(args.Query, kind))
	searchReq.Size = h.service.Settings().MaxResults
	searchReq.Fields = []string{domain.SymbolFieldQualifiedName, domain.SymbolFieldKind, domain.SymbolFieldBrief, domain.SymbolFieldFile}
	searchReq.Highlight = bleve.NewHighlight()
	searchReq.Highlight.AddField(domain.SymbolFieldDoc)

	results, err := index.SearchInContext(ctx, searchReq)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return formatSearchResults(results, args.Query), nil, nil
}

// buildSearchQuery matches names ahead of documentation, optionally restricted to one kind.
func buildSearchQuery(q string, kind string) query.Query {
	nameQuery := bleve.NewMatchQuery(q)
	nameQuery.SetField(domain.SymbolFieldName)
	nameQuery.SetBoost(5.0)

	qualifiedQuery := bleve.NewMatchQuery(q)
	qualifiedQuery.SetField(domain.SymbolFieldQualifiedName)
	qualifiedQuery.SetBoost(3.0)

	briefQuery := bleve.NewMatchQuery(q)
	briefQuery.SetField(domain.SymbolFieldBrief)
	briefQuery.SetBoost(2.0)

	docQuery := bleve.NewMatchQuery(q)
	docQuery.SetField(domain.SymbolFieldDoc)

	searchQuery := bleve.NewDisjunctionQuery(nameQuery, qualifiedQuery, briefQuery, docQuery)
	if kind == "" {
		return searchQuery
	}

	kindQuery := bleve.NewTermQuery(kind)
	kindQuery.SetField(domain.SymbolFieldKind)
	return bleve.NewConjunctionQuery(searchQuery, kindQuery)
}

func formatSearchResults(results *bleve.SearchResult, queryStr string) *mcp.CallToolResult {
	if results.Total == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("No results found for query: %s", queryStr)},
			},
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", results.Total, queryStr)

	for i, hit := range results.Hits {
		name, _ := hit.Fields[domain.SymbolFieldQualifiedName].(string)
		kind, _ := hit.Fields[domain.SymbolFieldKind].(string)
		brief, _ := hit.Fields[domain.SymbolFieldBrief].(string)
		file, _ := hit.Fields[domain.SymbolFieldFile].(string)

		fmt.Fprintf(&sb, "### %d. %s `%s`\n", i+1, kind, name)
		fmt.Fprintf(&sb, "**ID**: `%s`\n", hit.ID)
		if file != "" {
			fmt.Fprintf(&sb, "**File**: %s\n", file)
		}
		fmt.Fprintf(&sb, "**Score**: %.4f\n\n", hit.Score)
		if brief != "" {
			sb.WriteString(brief + "\n\n")
		}

		if fragments, ok := hit.Fragments[domain.SymbolFieldDoc]; ok {
			for _, fragment := range fragments {
				sb.WriteString("> " + fragment + "\n")
			}
			sb.WriteString("\n")
		}
	}

	if results.Total > uint64(len(results.Hits)) {
		fmt.Fprintf(&sb, "... and %d more results\n", results.Total-uint64(len(results.Hits)))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: sb.String()},
		},
	}
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_symbols",
		Description: "Search C++ symbols by name and documentation using full-text search",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
