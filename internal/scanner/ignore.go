package scanner

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// builtinIgnoreGlobs covers the paths no Elixir repository wants mapped:
// build output, fetched dependencies, coverage, editor caches, compiled
// artifacts and secret configuration.
var builtinIgnoreGlobs = []string{
	"_build/*",
	"deps/*",
	"cover/*",
	"node_modules/*",
	".elixir_ls/*",
	".git/*",
	"*.beam",
	"*.ez",
	"erl_crash.dump",
	"*.secret.exs",
}

// neverMatch requires a character after end of input, which no string has.
var neverMatch = regexp.MustCompile(`\z.`)

// ignoreMatcher combines the built-in glob set, user globs, and the
// repository's own .gitignore when one exists. Paths are matched in their
// slash-separated form relative to the scan root.
type ignoreMatcher struct {
	patterns  []*regexp.Regexp
	gitignore *ignore.GitIgnore
}

func newIgnoreMatcher(root string, extra []string, log *slog.Logger) *ignoreMatcher {
	m := &ignoreMatcher{}
	for _, glob := range builtinIgnoreGlobs {
		m.patterns = append(m.patterns, globToRegexp(glob, log))
	}
	for _, glob := range extra {
		m.patterns = append(m.patterns, globToRegexp(glob, log))
	}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		m.gitignore = gi
	}
	return m
}

func (m *ignoreMatcher) match(rel string) bool {
	for _, re := range m.patterns {
		if re.MatchString(rel) {
			return true
		}
	}
	if m.gitignore != nil && m.gitignore.MatchesPath(rel) {
		return true
	}
	return false
}

// globToRegexp translates a shell-style glob into a regular expression:
// '*' and '?' become their regex forms, dots turn literal, everything else
// passes through. A pattern that fails to compile after translation is
// replaced with one that can never match, so a bad ignore rule ignores
// nothing instead of failing the scan.
func globToRegexp(glob string, log *slog.Logger) *regexp.Regexp {
	var b strings.Builder
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '.':
			b.WriteString(`\.`)
		default:
			b.WriteRune(r)
		}
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		log.Warn("replacing malformed ignore pattern", "pattern", glob, "error", err)
		return neverMatch
	}
	return re
}
