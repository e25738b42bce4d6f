package parser

import (
	"strconv"
	"strings"

	"github.com/exmap/exmap-mcp/internal/syntax"
)

// Grammar tags matched during extraction.
const (
	kindCall          = "call"
	kindIdentifier    = "identifier"
	kindAlias         = "alias"
	kindArguments     = "arguments"
	kindDoBlock       = "do_block"
	kindBinaryOp      = "binary_operator"
	kindUnaryOp       = "unary_operator"
	kindDot           = "dot"
	kindString        = "string"
	kindQuotedContent = "quoted_content"
	kindAtom          = "atom"
	kindKeywords      = "keywords"
	kindPair          = "pair"
	kindKeyword       = "keyword"
	kindList          = "list"
)

// importKeywords are the namespace-inclusion constructs whose arguments feed
// an entity's import list.
var importKeywords = map[string]bool{
	"use":     true,
	"import":  true,
	"alias":   true,
	"require": true,
}

const maxSignatureLen = 120

// childOfKind returns the first direct child with the given tag.
func childOfKind(n syntax.Node, kind string) syntax.Node {
	for i := 0; i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

// firstArgText returns the text of a declaration's first argument, the alias
// naming a module, protocol or implementation target.
func firstArgText(decl syntax.Node) string {
	args := childOfKind(decl, kindArguments)
	if args == nil || args.ChildCount() == 0 {
		return ""
	}
	first := args.Child(0)
	if first == nil {
		return ""
	}
	return strings.TrimSpace(first.Text())
}

// keywordArgText returns the rendered value of a trailing keyword argument,
// e.g. the Target in `defimpl Proto, for: Target`.
func keywordArgText(decl syntax.Node, key string) string {
	args := childOfKind(decl, kindArguments)
	if args == nil {
		return ""
	}
	for i := 0; i < args.ChildCount(); i++ {
		kws := args.Child(i)
		if kws == nil || kws.Kind() != kindKeywords {
			continue
		}
		for j := 0; j < kws.ChildCount(); j++ {
			pair := kws.Child(j)
			if pair == nil || pair.Kind() != kindPair || pair.ChildCount() < 2 {
				continue
			}
			k := pair.Child(0)
			if k == nil || k.Kind() != kindKeyword {
				continue
			}
			if strings.TrimSuffix(strings.TrimSpace(k.Text()), ":") == key {
				return strings.TrimSpace(pair.Child(1).Text())
			}
		}
	}
	return ""
}

// declHead returns the node carrying a callable's name and parameters:
// the first argument of the def call, unwrapped from a `when` guard.
func declHead(decl syntax.Node) syntax.Node {
	args := childOfKind(decl, kindArguments)
	if args == nil || args.ChildCount() == 0 {
		return nil
	}
	head := args.Child(0)
	if head != nil && head.Kind() == kindBinaryOp && head.ChildCount() > 0 &&
		strings.Contains(head.Text(), " when ") {
		head = head.Child(0)
	}
	return head
}

// headNameArity reads "name" and parameter count from a callable head. Both
// `def foo(a, b)` (a nested call) and `def foo` (a bare identifier) occur.
func headNameArity(head syntax.Node) (string, int, bool) {
	if head == nil {
		return "", 0, false
	}
	switch head.Kind() {
	case kindIdentifier:
		return head.Text(), 0, true
	case kindCall:
		if head.ChildCount() == 0 {
			return "", 0, false
		}
		target := head.Child(0)
		if target == nil || target.Kind() != kindIdentifier {
			return "", 0, false
		}
		arity := 0
		if params := childOfKind(head, kindArguments); params != nil {
			arity = params.ChildCount()
		}
		return target.Text(), arity, true
	default:
		return "", 0, false
	}
}

// bodyNodes collects the sub-trees holding a declaration's body: do-blocks
// plus the `do:` keyword form used by one-liners.
func bodyNodes(decl syntax.Node) []syntax.Node {
	var body []syntax.Node
	for i := 0; i < decl.ChildCount(); i++ {
		if c := decl.Child(i); c != nil && c.Kind() == kindDoBlock {
			body = append(body, c)
		}
	}
	if args := childOfKind(decl, kindArguments); args != nil {
		for i := 0; i < args.ChildCount(); i++ {
			if c := args.Child(i); c != nil && c.Kind() == kindKeywords {
				body = append(body, c)
			}
		}
	}
	return body
}

// endLine returns the last line of a declaration. Bodiless declarations
// (protocol callback heads, broken shapes) fall back to a fixed ten-line
// window; callers must tolerate the inaccuracy.
func endLine(decl syntax.Node) int {
	if len(bodyNodes(decl)) == 0 {
		return decl.Line() + 10
	}
	return decl.EndLine()
}

// renderSignature flattens the declaration header into one line of display
// text, dropping the trailing `do`.
func renderSignature(decl syntax.Node) string {
	text := decl.Text()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimSuffix(text, " do")
	if len(text) > maxSignatureLen {
		text = text[:maxSignatureLen-3] + "..."
	}
	return text
}

// scrapeCalls collects every call-shaped node in a callable body, rendered as
// "Name/arity" or "Qualifier.Name/arity". This is a syntactic scrape with the
// arity as written, so piped calls undercount by one; resolution later treats
// these as best-effort hints. Nested declaration forms are the walk's
// business and are not recorded as calls.
func scrapeCalls(body []syntax.Node) []string {
	var calls []string
	seen := make(map[string]bool)

	var visit func(n syntax.Node)
	visit = func(n syntax.Node) {
		if n == nil {
			return
		}
		if n.Kind() == kindCall {
			if _, isDecl := matchDecl(n); !isDecl {
				if ref, ok := renderCallRef(n); ok && !seen[ref] {
					seen[ref] = true
					calls = append(calls, ref)
				}
			}
		}
		for i := 0; i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	for _, b := range body {
		visit(b)
	}
	return calls
}

// renderCallRef renders one call node. Anonymous-function invocations and
// other exotic targets are skipped.
func renderCallRef(n syntax.Node) (string, bool) {
	if n.ChildCount() == 0 {
		return "", false
	}
	head := n.Child(0)
	if head == nil {
		return "", false
	}

	arity := 0
	if args := childOfKind(n, kindArguments); args != nil {
		arity = args.ChildCount()
	}

	switch head.Kind() {
	case kindIdentifier:
		return head.Text() + "/" + strconv.Itoa(arity), true
	case kindDot:
		if head.ChildCount() < 2 {
			return "", false
		}
		qual, fn := head.Child(0), head.Child(1)
		if qual == nil || fn == nil || fn.Kind() != kindIdentifier {
			return "", false
		}
		return qual.Text() + "." + fn.Text() + "/" + strconv.Itoa(arity), true
	default:
		return "", false
	}
}

// scrapeImports collects module names passed to use/import/alias/require
// anywhere in a module body, nested scopes included. Multi-alias braces
// contribute each alias they mention.
func scrapeImports(body []syntax.Node) []string {
	var imports []string
	seen := make(map[string]bool)

	collect := func(args syntax.Node) {
		var walkAliases func(n syntax.Node)
		walkAliases = func(n syntax.Node) {
			if n == nil {
				return
			}
			if n.Kind() == kindAlias {
				name := strings.TrimSpace(n.Text())
				if name != "" && !seen[name] {
					seen[name] = true
					imports = append(imports, name)
				}
			}
			for i := 0; i < n.ChildCount(); i++ {
				walkAliases(n.Child(i))
			}
		}
		walkAliases(args)
	}

	var visit func(n syntax.Node)
	visit = func(n syntax.Node) {
		if n == nil {
			return
		}
		if n.Kind() == kindCall && n.ChildCount() > 0 {
			if head := n.Child(0); head != nil && head.Kind() == kindIdentifier && importKeywords[head.Text()] {
				if args := childOfKind(n, kindArguments); args != nil {
					collect(args)
				}
			}
		}
		for i := 0; i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	for _, b := range body {
		visit(b)
	}
	return imports
}

// scrapeBehaviours collects @behaviour module attributes from a module body.
func scrapeBehaviours(body []syntax.Node) []string {
	var behaviours []string
	seen := make(map[string]bool)

	var visit func(n syntax.Node)
	visit = func(n syntax.Node) {
		if n == nil {
			return
		}
		if call, name := attributeCall(n); call != nil && name == "behaviour" {
			if args := childOfKind(call, kindArguments); args != nil && args.ChildCount() > 0 {
				if target := args.Child(0); target != nil && target.Kind() == kindAlias {
					text := strings.TrimSpace(target.Text())
					if text != "" && !seen[text] {
						seen[text] = true
						behaviours = append(behaviours, text)
					}
				}
			}
		}
		for i := 0; i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	for _, b := range body {
		visit(b)
	}
	return behaviours
}

// firstDoc returns the first @doc or @moduledoc string found in a pre-order
// walk of the declaration body. Non-string doc attributes (@doc false) are
// skipped rather than terminating the search.
func firstDoc(body []syntax.Node) string {
	var found string

	var visit func(n syntax.Node) bool
	visit = func(n syntax.Node) bool {
		if n == nil {
			return false
		}
		if call, name := attributeCall(n); call != nil && (name == "doc" || name == "moduledoc") {
			if s := stringArgText(call); s != "" {
				found = s
				return true
			}
		}
		for i := 0; i < n.ChildCount(); i++ {
			if visit(n.Child(i)) {
				return true
			}
		}
		return false
	}
	for _, b := range body {
		if visit(b) {
			break
		}
	}
	return found
}

// attributeCall unwraps a module attribute node (`@name value`), returning
// the inner call and the attribute name.
func attributeCall(n syntax.Node) (syntax.Node, string) {
	if n.Kind() != kindUnaryOp || !strings.HasPrefix(n.Text(), "@") || n.ChildCount() == 0 {
		return nil, ""
	}
	operand := n.Child(0)
	if operand == nil || operand.Kind() != kindCall || operand.ChildCount() == 0 {
		return nil, ""
	}
	target := operand.Child(0)
	if target == nil || target.Kind() != kindIdentifier {
		return nil, ""
	}
	return operand, target.Text()
}

// stringArgText extracts the content of a call's first string argument,
// handling both plain strings and heredocs.
func stringArgText(call syntax.Node) string {
	args := childOfKind(call, kindArguments)
	if args == nil {
		return ""
	}
	str := childOfKind(args, kindString)
	if str == nil {
		return ""
	}
	if content := childOfKind(str, kindQuotedContent); content != nil {
		return strings.TrimSpace(content.Text())
	}
	text := strings.Trim(str.Text(), `"`)
	return strings.TrimSpace(text)
}

// structFields lists the field names declared by defstruct, covering both
// the atom-list form ([:a, :b]) and the keyword-default form (a: 1, b: 2).
// Only field positions count; default values are never mistaken for fields.
func structFields(decl syntax.Node) []string {
	args := childOfKind(decl, kindArguments)
	if args == nil {
		return nil
	}

	var fields []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" && !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}

	var fromKeywords func(kws syntax.Node)
	fromKeywords = func(kws syntax.Node) {
		for i := 0; i < kws.ChildCount(); i++ {
			pair := kws.Child(i)
			if pair == nil || pair.Kind() != kindPair || pair.ChildCount() == 0 {
				continue
			}
			if key := pair.Child(0); key != nil && key.Kind() == kindKeyword {
				add(strings.TrimSuffix(strings.TrimSpace(key.Text()), ":"))
			}
		}
	}

	var fromElements func(container syntax.Node)
	fromElements = func(container syntax.Node) {
		for i := 0; i < container.ChildCount(); i++ {
			el := container.Child(i)
			if el == nil {
				continue
			}
			switch el.Kind() {
			case kindAtom:
				add(strings.TrimPrefix(el.Text(), ":"))
			case kindKeywords:
				fromKeywords(el)
			case kindList:
				fromElements(el)
			}
		}
	}
	fromElements(args)
	return fields
}
