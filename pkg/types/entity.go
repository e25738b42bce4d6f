package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// EntityType classifies a code declaration extracted from Elixir source.
type EntityType string

const (
	TypeModule   EntityType = "module"
	TypeFunction EntityType = "function"
	TypeMacro    EntityType = "macro"
	TypeProtocol EntityType = "protocol"
	TypeImpl     EntityType = "impl"
	TypeStruct   EntityType = "struct"
)

// ValidEntityTypes lists every recognized entity type in rendering order.
var ValidEntityTypes = []EntityType{
	TypeModule,
	TypeFunction,
	TypeMacro,
	TypeProtocol,
	TypeImpl,
	TypeStruct,
}

// IsValid reports whether t is one of the recognized entity types.
func (t EntityType) IsValid() bool {
	switch t {
	case TypeModule, TypeFunction, TypeMacro, TypeProtocol, TypeImpl, TypeStruct:
		return true
	default:
		return false
	}
}

// Metadata keys used by the parser. Values are type-specific: visibility and
// arity on callables, fields on structs, protocol/for on impls, behaviours on
// modules.
const (
	MetaVisibility = "visibility"
	MetaArity      = "arity"
	MetaFields     = "fields"
	MetaProtocol   = "protocol"
	MetaFor        = "for"
	MetaBehaviours = "behaviours"
)

// Visibility values stored under MetaVisibility.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Entity represents one code declaration: a module, function, macro,
// protocol, protocol implementation, or struct.
type Entity struct {
	// Identification
	ID   string     `json:"id"`
	Name string     `json:"name"` // includes arity suffix for callables, e.g. "foo/2"
	Type EntityType `json:"type"`

	// Location (1-based, inclusive)
	FilePath  string `json:"file_path"` // repo-relative
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`

	// Content
	Signature string `json:"signature,omitempty"` // rendered declaration header
	Doc       string `json:"doc,omitempty"`       // first doc attribute found in the body

	// Structure
	ParentID    string   `json:"parent_id,omitempty"`
	ChildrenIDs []string `json:"children_ids,omitempty"`

	// Unresolved references collected during parsing
	Imports []string `json:"imports,omitempty"` // use/import/alias/require targets
	Calls   []string `json:"calls,omitempty"`   // "Name/arity" or "Qualifier.Name/arity"
	Refs    []string `json:"refs,omitempty"`    // reserved

	Metadata map[string]any `json:"metadata,omitempty"`
}

// EntityID derives the stable identifier for an entity. It is a pure function
// of the (file path, name, type) triple; collisions between distinct triples
// are treated as impossible.
func EntityID(filePath, name string, t EntityType) string {
	h := sha256.New()
	h.Write([]byte(filePath))
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(t))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Validate checks structural invariants of the entity.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return ErrMissingID
	}
	if e.Name == "" {
		return ErrMissingName
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntityType, e.Type)
	}
	if e.FilePath == "" {
		return ErrMissingFilePath
	}
	if e.LineStart < 1 {
		return ErrInvalidLineRange
	}
	if e.LineEnd < e.LineStart {
		return ErrInvalidLineRange
	}
	return nil
}

// Visibility returns the visibility stored in the metadata bag, defaulting to
// public when absent.
func (e *Entity) Visibility() string {
	if e.Metadata == nil {
		return VisibilityPublic
	}
	if v, ok := e.Metadata[MetaVisibility].(string); ok && v != "" {
		return v
	}
	return VisibilityPublic
}

// IsPrivate reports whether the entity is marked private.
func (e *Entity) IsPrivate() bool {
	return e.Visibility() == VisibilityPrivate
}

// Lines returns the entity's size in source lines.
func (e *Entity) Lines() int {
	return e.LineEnd - e.LineStart + 1
}

// SortedIDs returns the entity ids in lexicographic order. Map iteration in
// Go is randomized; every pass that must be reproducible across runs
// (graph construction, query result assembly) iterates ids in this order.
func SortedIDs(entities map[string]*Entity) []string {
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
