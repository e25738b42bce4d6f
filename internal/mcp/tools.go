package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/exmap/exmap-mcp/internal/repomap"
	"github.com/exmap/exmap-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeGenerationFailed = -32001 // Repository scan or map generation failed
	ErrorCodeEntityNotFound   = -32002 // Entity id not present in the map
	ErrorCodeEmptyQuery       = -32003 // Pattern or task parameter is empty
)

// handleMapRepository handles the map_repository tool invocation
func (s *Server) handleMapRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	refresh := getBoolDefault(args, "refresh", false)

	var (
		bundle *repomap.Bundle
		err    error
	)
	if refresh {
		bundle, err = s.svc.Refresh(ctx, path)
	} else {
		bundle, err = s.svc.GetOrGenerate(ctx, path)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeGenerationFailed, "map generation failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}

	stats := bundle.Map.Stats
	response := map[string]interface{}{
		"generated":        true,
		"generation_id":    bundle.GenerationID,
		"generated_at":     bundle.GeneratedAt.Format(time.RFC3339),
		"entity_count":     stats.EntityCount,
		"file_count":       stats.FileCount,
		"avg_entity_lines": stats.AvgEntityLines,
		"entities_by_type": stats.ByType,
		"graph": map[string]interface{}{
			"vertices": bundle.Graph.VertexCount(),
			"edges":    bundle.Graph.EdgeCount(),
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindEntities handles the find_entities tool invocation
func (s *Server) handleFindEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "pattern parameter is required and cannot be empty", map[string]interface{}{
			"param":  "pattern",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	matches, err := s.svc.FindEntities(ctx, path, pattern)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "entity search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	rows := make([]map[string]interface{}, 0, len(matches))
	for _, e := range matches {
		rows = append(rows, map[string]interface{}{
			"id":        e.ID,
			"name":      e.Name,
			"type":      string(e.Type),
			"file":      e.FilePath,
			"lines":     fmt.Sprintf("%d-%d", e.LineStart, e.LineEnd),
			"signature": e.Signature,
		})
	}
	response := map[string]interface{}{
		"pattern": pattern,
		"count":   len(rows),
		"results": rows,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetRelated handles the get_related tool invocation
func (s *Server) handleGetRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	entityID, ok := args["entity_id"].(string)
	if !ok || entityID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "entity_id parameter is required", map[string]interface{}{
			"param":  "entity_id",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	depth := getIntDefault(args, "depth", repomap.DefaultRelatedDepth)
	if depth < 1 || depth > 10 {
		return nil, newMCPError(ErrorCodeInvalidParams, "depth must be between 1 and 10", map[string]interface{}{
			"param": "depth",
			"value": depth,
		})
	}

	related, err := s.svc.GetRelated(ctx, path, entityID, depth)
	if errors.Is(err, types.ErrEntityNotFound) {
		return nil, newMCPError(ErrorCodeEntityNotFound, "entity not found", map[string]interface{}{
			"entity_id": entityID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "related lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	rows := make([]map[string]interface{}, 0, len(related))
	for _, r := range related {
		rows = append(rows, map[string]interface{}{
			"id":       r.Entity.ID,
			"name":     r.Entity.Name,
			"type":     string(r.Entity.Type),
			"file":     r.Entity.FilePath,
			"distance": r.Distance,
		})
	}
	response := map[string]interface{}{
		"entity_id": entityID,
		"depth":     depth,
		"count":     len(rows),
		"related":   rows,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetContext handles the get_context tool invocation. Unlike the other
// tools it returns the rendered map text directly, not JSON: the text is the
// product, meant to be pasted into a model prompt as-is.
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	task, ok := args["task"].(string)
	if !ok || task == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "task parameter is required and cannot be empty", map[string]interface{}{
			"param":  "task",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	tokenLimit := getIntDefault(args, "token_limit", 0)
	if tokenLimit != 0 && (tokenLimit < 100 || tokenLimit > 100000) {
		return nil, newMCPError(ErrorCodeInvalidParams, "token_limit must be between 100 and 100000", map[string]interface{}{
			"param": "token_limit",
			"value": tokenLimit,
		})
	}

	text, err := s.svc.GetContext(ctx, path, task, tokenLimit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "context rendering failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(text), nil
}

// handleCacheStats handles the cache_stats tool invocation. The tool takes no
// arguments, so a nil argument map is fine.
func (s *Server) handleCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.svc.CacheStats()
	response := map[string]interface{}{
		"size":         stats.Size,
		"approx_bytes": stats.ApproxBytes,
		"hits":         stats.Hits,
		"misses":       stats.Misses,
		"evictions":    stats.Evictions,
		"expirations":  stats.Expirations,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is a readable directory. An empty
// repository is allowed; mapping it yields an empty map rather than an error.
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
