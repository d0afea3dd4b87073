package tools

// RegisterChatTools creates and registers the chat tools (calculator,
// search_documents) with the provided registry.
//
// This is called per-request so the search tool is scoped to the calling
// user and its source tracking starts empty. The search tool instance is
// returned so the caller can read Sources() after the conversation round.
func RegisterChatTools(registry *ToolRegistry, userID string, topK int, searcher Searcher) *SearchTool {
	calculator := NewCalculatorTool()
	search := NewSearchTool(userID, topK, searcher)

	registry.Register(CalculatorDefinition(), calculator)
	registry.Register(SearchDocumentsDefinition(), search)

	return search
}
