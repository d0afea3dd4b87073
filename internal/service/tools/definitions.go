package tools

// Definition describes a tool to the reasoning backend: its name, what it
// does, and a JSON Schema for its input.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// CalculatorDefinition returns the schema for the 'calculator' tool.
func CalculatorDefinition() Definition {
	return Definition{
		Name:        "calculator",
		Description: "Evaluate an arithmetic expression and return the exact numeric result. Supports +, -, *, /, parentheses, and sqrt(x). Use this for any calculation instead of computing it yourself.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "The arithmetic expression to evaluate, e.g. '(3 + 5) * 2' or 'sqrt(144)'.",
				},
			},
			"required": []string{"expression"},
		},
	}
}

// SearchDocumentsDefinition returns the schema for the 'search_documents' tool.
func SearchDocumentsDefinition() Definition {
	return Definition{
		Name:        "search_documents",
		Description: "Search the user's uploaded documents for passages relevant to a query. Returns the most similar passages with their source filenames. Use this to ground answers about the user's documents; if it returns nothing, say so rather than guessing.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to look for, phrased as a short natural-language query.",
				},
			},
			"required": []string{"query"},
		},
	}
}
