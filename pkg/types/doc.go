// Package types defines the shared data model for repository maps: entities
// extracted from Elixir source, the merged parse result for one repository,
// and aggregate statistics.
//
// An Entity describes one declaration (defmodule, def/defp, defmacro/defmacrop,
// defprotocol, defimpl, defstruct) together with its location, rendered
// signature, documentation, containment links, and the unresolved call and
// import references later turned into graph edges.
//
// Entity identity is content-derived:
//
//	id := types.EntityID("lib/my_app/user.ex", "create_user/2", types.TypeFunction)
//
// The same (file path, name, type) triple always produces the same id, so ids
// are stable across scans of an unchanged file. Two declarations sharing a
// triple overwrite each other in the entity map; the last one parsed wins.
//
// Entities are immutable after a scan completes: every scan replaces the whole
// set rather than updating it incrementally.
package types
