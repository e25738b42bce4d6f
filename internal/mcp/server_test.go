package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exmap/exmap-mcp/internal/cache"
	"github.com/exmap/exmap-mcp/internal/logging"
	"github.com/exmap/exmap-mcp/internal/parser"
	"github.com/exmap/exmap-mcp/internal/repomap"
	"github.com/exmap/exmap-mcp/internal/scanner"
	"github.com/exmap/exmap-mcp/internal/syntax"
	"github.com/exmap/exmap-mcp/pkg/types"
)

const sampleSource = `defmodule Sample do
  @moduledoc "Sample module."

  def hello(name) do
    format(name)
  end

  defp format(name) do
    String.upcase(name)
  end
end
`

const billingSource = `defmodule Billing do
  @moduledoc "Billing domain."

  def charge_invoice(invoice) do
    Sample.hello(invoice)
  end
end
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixtureRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "lib/sample.ex", sampleSource)
	writeFile(t, root, "lib/billing.ex", billingSource)
	return root
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p := parser.New(syntax.NewElixir(), logging.Discard())
	sc := scanner.New(p, logging.Discard())
	c := cache.New[*repomap.Bundle](cache.Config{}, logging.Discard())
	t.Cleanup(c.Close)
	svc := repomap.New(sc, c, nil, repomap.Options{}, logging.Discard())
	return NewServer(svc, logging.Discard())
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content should be text")
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok, "expected *MCPError, got %T", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func TestNewServerWiresComponents(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.svc)
	assert.NotNil(t, s.log)
}

func TestMapRepositoryTool(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	result, err := s.handleMapRepository(context.Background(), toolRequest("map_repository", map[string]interface{}{
		"path": root,
	}))
	require.NoError(t, err)

	response := decodeResult(t, result)
	assert.Equal(t, true, response["generated"])
	assert.NotEmpty(t, response["generation_id"])
	assert.EqualValues(t, 5, response["entity_count"])
	assert.EqualValues(t, 2, response["file_count"])

	generatedAt, ok := response["generated_at"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, generatedAt)
	assert.NoError(t, err)

	byType, ok := response["entities_by_type"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, byType["module"])
	assert.EqualValues(t, 3, byType["function"])

	graphInfo, ok := response["graph"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 5, graphInfo["vertices"])
	assert.EqualValues(t, 5, graphInfo["edges"])
}

func TestMapRepositoryCachesAcrossCalls(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)
	ctx := context.Background()
	req := toolRequest("map_repository", map[string]interface{}{"path": root})

	first, err := s.handleMapRepository(ctx, req)
	require.NoError(t, err)
	second, err := s.handleMapRepository(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, decodeResult(t, first)["generation_id"], decodeResult(t, second)["generation_id"])
}

func TestMapRepositoryRefreshRegenerates(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)
	ctx := context.Background()

	first, err := s.handleMapRepository(ctx, toolRequest("map_repository", map[string]interface{}{
		"path": root,
	}))
	require.NoError(t, err)

	second, err := s.handleMapRepository(ctx, toolRequest("map_repository", map[string]interface{}{
		"path":    root,
		"refresh": true,
	}))
	require.NoError(t, err)

	assert.NotEqual(t, decodeResult(t, first)["generation_id"], decodeResult(t, second)["generation_id"])
}

func TestMapRepositoryParamValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleMapRepository(ctx, toolRequest("map_repository", map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleMapRepository(ctx, toolRequest("map_repository", map[string]interface{}{
		"path": "relative/path",
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleMapRepository(ctx, toolRequest("map_repository", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "missing"),
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestMapRepositoryRejectsNonMapArguments(t *testing.T) {
	s := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Name = "map_repository"
	req.Params.Arguments = "not a map"

	_, err := s.handleMapRepository(context.Background(), req)
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestFindEntitiesTool(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	result, err := s.handleFindEntities(context.Background(), toolRequest("find_entities", map[string]interface{}{
		"path":    root,
		"pattern": "charge",
	}))
	require.NoError(t, err)

	response := decodeResult(t, result)
	assert.EqualValues(t, 1, response["count"])

	rows, ok := response["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "charge_invoice/1", row["name"])
	assert.Equal(t, "function", row["type"])
	assert.Equal(t, "lib/billing.ex", row["file"])
	assert.Regexp(t, `^\d+-\d+$`, row["lines"])
	assert.NotEmpty(t, row["id"])
}

func TestFindEntitiesEmptyPattern(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	_, err := s.handleFindEntities(context.Background(), toolRequest("find_entities", map[string]interface{}{
		"path":    root,
		"pattern": "",
	}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)
}

func TestFindEntitiesNoMatches(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	result, err := s.handleFindEntities(context.Background(), toolRequest("find_entities", map[string]interface{}{
		"path":    root,
		"pattern": "no_such_entity",
	}))
	require.NoError(t, err)

	response := decodeResult(t, result)
	assert.EqualValues(t, 0, response["count"])
}

func TestGetRelatedTool(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)
	helloID := types.EntityID("lib/sample.ex", "hello/1", types.TypeFunction)

	result, err := s.handleGetRelated(context.Background(), toolRequest("get_related", map[string]interface{}{
		"path":      root,
		"entity_id": helloID,
	}))
	require.NoError(t, err)

	response := decodeResult(t, result)
	assert.EqualValues(t, 2, response["depth"])
	assert.EqualValues(t, 4, response["count"])

	rows, ok := response["related"].([]interface{})
	require.True(t, ok)
	distances := make(map[string]float64, len(rows))
	for _, raw := range rows {
		row := raw.(map[string]interface{})
		distances[row["name"].(string)] = row["distance"].(float64)
	}
	assert.Equal(t, map[string]float64{
		"Sample":           1,
		"format/1":         1,
		"charge_invoice/1": 1,
		"Billing":          2,
	}, distances)
}

func TestGetRelatedDepthOne(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)
	sampleID := types.EntityID("lib/sample.ex", "Sample", types.TypeModule)

	result, err := s.handleGetRelated(context.Background(), toolRequest("get_related", map[string]interface{}{
		"path":      root,
		"entity_id": sampleID,
		"depth":     float64(1),
	}))
	require.NoError(t, err)

	response := decodeResult(t, result)
	assert.EqualValues(t, 1, response["depth"])
	assert.EqualValues(t, 2, response["count"])
}

func TestGetRelatedUnknownEntity(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	_, err := s.handleGetRelated(context.Background(), toolRequest("get_related", map[string]interface{}{
		"path":      root,
		"entity_id": "0000000000000000",
	}))
	mcpErr := requireMCPError(t, err, ErrorCodeEntityNotFound)
	assert.Contains(t, mcpErr.Message, "not found")
}

func TestGetRelatedDepthBounds(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	for _, depth := range []float64{0, 11} {
		_, err := s.handleGetRelated(context.Background(), toolRequest("get_related", map[string]interface{}{
			"path":      root,
			"entity_id": "irrelevant",
			"depth":     depth,
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	}
}

func TestGetContextTool(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	result, err := s.handleGetContext(context.Background(), toolRequest("get_context", map[string]interface{}{
		"path": root,
		"task": "fix invoice charging in billing",
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "# Repository map")
	assert.Contains(t, text, "charge_invoice/1")
	// Rendered text, not JSON.
	assert.False(t, json.Valid([]byte(text)))
}

func TestGetContextEmptyTask(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	_, err := s.handleGetContext(context.Background(), toolRequest("get_context", map[string]interface{}{
		"path": root,
		"task": "",
	}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)
}

func TestGetContextTokenLimitBounds(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	for _, limit := range []float64{50, 200000} {
		_, err := s.handleGetContext(context.Background(), toolRequest("get_context", map[string]interface{}{
			"path":        root,
			"task":        "anything",
			"token_limit": limit,
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	}
}

func TestGetContextHonorsTokenLimit(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)

	result, err := s.handleGetContext(context.Background(), toolRequest("get_context", map[string]interface{}{
		"path":        root,
		"task":        "billing",
		"token_limit": float64(100),
	}))
	require.NoError(t, err)

	// 100 tokens is roughly 400 characters plus the truncation notice.
	assert.LessOrEqual(t, len(resultText(t, result)), 450)
}

func TestCacheStatsTool(t *testing.T) {
	s := newTestServer(t)
	root := fixtureRepo(t)
	ctx := context.Background()

	// No arguments at all; the handler must not require an argument map.
	result, err := s.handleCacheStats(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	response := decodeResult(t, result)
	assert.EqualValues(t, 0, response["size"])

	_, err = s.handleMapRepository(ctx, toolRequest("map_repository", map[string]interface{}{"path": root}))
	require.NoError(t, err)

	result, err = s.handleCacheStats(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)
	response = decodeResult(t, result)
	assert.EqualValues(t, 1, response["size"])
	assert.EqualValues(t, 0, response["evictions"])
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.ErrorIs(t, validatePath(""), ErrPathRequired)
	assert.ErrorIs(t, validatePath("relative/path"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath(filepath.Join(dir, "missing")), ErrPathNotFound)
	assert.ErrorIs(t, validatePath(file), ErrNotDirectory)
	assert.NoError(t, validatePath(dir))
}

func TestValidatePathAllowsEmptyDir(t *testing.T) {
	// An empty repository maps to an empty result, not a validation error.
	assert.NoError(t, validatePath(t.TempDir()))
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"flag":     true,
		"count":    float64(7),
		"explicit": 3,
	}

	assert.True(t, getBoolDefault(args, "flag", false))
	assert.False(t, getBoolDefault(args, "absent", false))
	assert.Equal(t, 7, getIntDefault(args, "count", 0))
	assert.Equal(t, 3, getIntDefault(args, "explicit", 0))
	assert.Equal(t, 42, getIntDefault(args, "absent", 42))
}

func TestMCPErrorFormat(t *testing.T) {
	err := newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{"param": "path"})
	assert.Equal(t, "MCP error -32602: invalid path", err.Error())
}
