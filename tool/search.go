package tool

import (
	"context"
	"fmt"
	"strings"
)

// excerptLimit bounds the per-document excerpt length in runes.
const excerptLimit = 300

// SearchTool queries the knowledge base by vector similarity and formats the
// top matches for the model. Backend failures are flattened into content so a
// broken retrieval backend never kills the conversation.
type SearchTool struct {
	topK int
}

// NewSearchTool creates the search tool returning up to topK results per
// query. Values below one fall back to 3.
func NewSearchTool(topK int) *SearchTool {
	if topK < 1 {
		topK = 3
	}
	return &SearchTool{topK: topK}
}

// Name returns the tool identifier.
func (t *SearchTool) Name() string { return "search" }

// Description returns the tool description shown to the model.
func (t *SearchTool) Description() string {
	return "Search the shared knowledge base for documents relevant to a query. " +
		"Use this to answer questions about company policies and onboarding procedures."
}

// Parameters returns the JSON schema for tool arguments.
func (t *SearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to match against the knowledge base.",
			},
		},
		"required": []string{"query"},
	}
}

// Call runs the similarity query and formats each match with its source, a
// percentage relevance score and a truncated excerpt.
func (t *SearchTool) Call(ctx context.Context, inv *Invocation, args map[string]any) Result {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Content: "Invalid query: query cannot be empty"}
	}

	results, err := inv.Vectors.Query(ctx, query, t.topK)
	if err != nil {
		inv.Log().Error("tool.search.backend", "error", err.Error())
		return Result{Content: fmt.Sprintf("Error searching knowledge base: %v", err)}
	}
	if len(results) == 0 {
		return Result{Content: fmt.Sprintf("No relevant documents found in knowledge base for query: '%s'", query)}
	}

	var b strings.Builder
	b.WriteString("Knowledge Base Search Results:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[Result %d] (Relevance: %.2f%%)\n", i+1, r.Score*100)
		fmt.Fprintf(&b, "Source: %s\n", r.Document.Metadata.Source)
		fmt.Fprintf(&b, "Content: %s\n\n", excerpt(r.Document.Content))
	}

	inv.Log().Info("tool.search", "query", query, "results", len(results))
	return Result{Content: b.String()}
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLimit {
		return content
	}
	return string(runes[:excerptLimit]) + "..."
}
