// Package mcp implements the Model Context Protocol (MCP) server for exmap.
//
// The MCP server exposes five tools to AI coding assistants:
//   - map_repository: Generate or fetch the structural map of an Elixir repository
//   - find_entities: Search mapped entities by name or signature pattern
//   - get_related: Walk the call/import/contains graph around an entity
//   - get_context: Render a token-bounded, task-focused repository context
//   - cache_stats: Inspect the in-memory map cache
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output. stdout
// is reserved for the protocol; all logging goes to stderr.
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	exmap serve
//
// It then listens on stdin for MCP protocol messages and writes responses to stdout.
//
// # Tool: map_repository
//
// Map an Elixir repository (or return the cached map):
//
//	Request:
//	{
//	  "name": "map_repository",
//	  "arguments": {
//	    "path": "/path/to/repo",
//	    "refresh": false
//	  }
//	}
//
//	Response:
//	{
//	  "generated": true,
//	  "generation_id": "7d4c9b2e-...",
//	  "generated_at": "2026-03-14T10:22:07Z",
//	  "entity_count": 412,
//	  "file_count": 57,
//	  "avg_entity_lines": 11.3,
//	  "entities_by_type": {"module": 57, "function": 302, "struct": 12},
//	  "graph": {"vertices": 412, "edges": 1187}
//	}
//
// # Tool: find_entities
//
// Search entity names and signatures with a case-insensitive pattern:
//
//	Request:
//	{
//	  "name": "find_entities",
//	  "arguments": {
//	    "path": "/path/to/repo",
//	    "pattern": "charge_invoice"
//	  }
//	}
//
//	Response:
//	{
//	  "pattern": "charge_invoice",
//	  "count": 1,
//	  "results": [
//	    {
//	      "id": "a3f9c201d4e8b7f2",
//	      "name": "charge_invoice/2",
//	      "type": "function",
//	      "file": "lib/billing/invoices.ex",
//	      "lines": "41-68",
//	      "signature": "def charge_invoice(invoice, opts)"
//	    }
//	  ]
//	}
//
// # Tool: get_related
//
// List entities within N hops of a given entity, edges treated as undirected:
//
//	Request:
//	{
//	  "name": "get_related",
//	  "arguments": {
//	    "path": "/path/to/repo",
//	    "entity_id": "a3f9c201d4e8b7f2",
//	    "depth": 2
//	  }
//	}
//
//	Response:
//	{
//	  "entity_id": "a3f9c201d4e8b7f2",
//	  "depth": 2,
//	  "count": 3,
//	  "related": [
//	    {"id": "...", "name": "Billing.Invoices", "type": "module", "file": "lib/billing/invoices.ex", "distance": 1}
//	  ]
//	}
//
// # Tool: get_context
//
// Render a repository context focused on a task. Unlike the other tools the
// response is the rendered text itself, ready to paste into a prompt:
//
//	Request:
//	{
//	  "name": "get_context",
//	  "arguments": {
//	    "path": "/path/to/repo",
//	    "task": "fix the retry loop in invoice charging",
//	    "token_limit": 4000
//	  }
//	}
//
//	Response (text):
//	# Repository map
//	412 entities across 57 files, 11.3 lines per entity on average.
//	...
//
// # Tool: cache_stats
//
// Report cache counters; takes no arguments:
//
//	Response:
//	{
//	  "size": 2,
//	  "approx_bytes": 183220,
//	  "hits": 14,
//	  "misses": 3,
//	  "evictions": 0,
//	  "expirations": 1
//	}
//
// # MCP Client Configuration
//
// Configure in the client's MCP settings:
//
//	{
//	  "mcpServers": {
//	    "exmap": {
//	      "command": "/usr/local/bin/exmap",
//	      "args": ["serve"]
//	    }
//	  }
//	}
//
// # Error Handling
//
// The MCP server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid path",
//	    "data": {
//	      "param": "path",
//	      "reason": "path does not exist"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (search, traversal, rendering)
//   - -32001: Map generation failed (scan or parse error)
//   - -32002: Entity not found
//   - -32003: Empty pattern or task
package mcp
