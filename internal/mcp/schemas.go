package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// mapRepositoryTool returns the tool definition for map_repository
func mapRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "map_repository",
		Description: "Generate (or fetch the cached) structural map of an Elixir repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root",
				},
				"refresh": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rescan and regenerate even when a cached map exists",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// findEntitiesTool returns the tool definition for find_entities
func findEntitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_entities",
		Description: "Search mapped entities by name or signature with a case-insensitive pattern",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root",
				},
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Regular expression matched against entity names and signatures; invalid patterns fall back to literal substring search",
				},
			},
			Required: []string{"path", "pattern"},
		},
	}
}

// getRelatedTool returns the tool definition for get_related
func getRelatedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_related",
		Description: "List entities within N hops of a given entity in the call/import/contains graph",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root",
				},
				"entity_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of the entity to start from (as returned by find_entities)",
				},
				"depth": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum traversal depth in hops (1-10)",
					"default":     2,
					"minimum":     1,
					"maximum":     10,
				},
			},
			Required: []string{"path", "entity_id"},
		},
	}
}

// getContextTool returns the tool definition for get_context
func getContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_context",
		Description: "Render a token-bounded repository context focused on a task description",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root",
				},
				"task": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language description of the task; its keywords steer entity selection",
				},
				"token_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Approximate token budget for the rendered context (1 token ~ 4 characters)",
					"default":     4000,
					"minimum":     100,
					"maximum":     100000,
				},
			},
			Required: []string{"path", "task"},
		},
	}
}

// cacheStatsTool returns the tool definition for cache_stats
func cacheStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cache_stats",
		Description: "Report size and hit/miss/eviction counters of the in-memory map cache",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{},
		},
	}
}
