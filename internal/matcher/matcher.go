// Package matcher implements the ignore-pattern matching used to exclude
// files from conflict consideration: glob patterns compiled via gobwas/glob,
// plus the directory-pattern, negation, and normalization rules layered
// around it.
package matcher

import (
	"strings"

	"github.com/gobwas/glob"
)

// Separator is the canonical path separator used after normalization.
const Separator = "/"

// Matcher holds a compiled, ordered list of ignore patterns.
type Matcher struct {
	patterns        []string
	caseInsensitive bool
	compiled        map[string]glob.Glob
}

// Option configures a Matcher at construction time.
type Option func(*Matcher)

// CaseInsensitive makes pattern and path comparison case-insensitive.
func CaseInsensitive() Option {
	return func(m *Matcher) { m.caseInsensitive = true }
}

// New compiles patterns into a Matcher. Malformed glob bodies are skipped
// rather than rejected outright — a single bad pattern in an operator's
// config should not stop the rest from taking effect.
func New(patterns []string, opts ...Option) *Matcher {
	m := &Matcher{patterns: patterns, compiled: make(map[string]glob.Glob)}
	for _, opt := range opts {
		opt(m)
	}
	for _, p := range patterns {
		body := p
		if negated, inner := splitNegation(p); negated {
			body = inner
		}
		body = normalize(body, m.caseInsensitive)
		if body == "" || strings.HasSuffix(body, Separator) {
			continue // directory patterns and empty bodies are matched structurally, not via glob
		}
		if g, err := glob.Compile(body, '/'); err == nil {
			m.compiled[p] = g
		}
	}
	return m
}

// Matches reports whether a single pattern matches path, per the contract in
// the ignore-pattern specification: normalization, directory patterns,
// negation, glob semantics, and a fast-path exact-equality check.
func Matches(pattern, path string, opts ...Option) bool {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}
	return m.matchOne(pattern, path)
}

func (m *Matcher) matchOne(pattern, path string) bool {
	if pattern == "" || path == "" {
		return false
	}

	negated, body := splitNegation(pattern)
	if body == "" {
		// "!" alone: the underlying (empty) pattern matches nothing, negated
		// it still cannot match anything meaningful — matches nothing.
		return false
	}

	result := m.matchBody(body, path)
	if negated {
		return !result
	}
	return result
}

func (m *Matcher) matchBody(body, path string) bool {
	np := normalize(path, m.caseInsensitive)
	nb := normalize(body, m.caseInsensitive)

	if strings.HasSuffix(nb, Separator) {
		prefix := strings.TrimSuffix(nb, Separator)
		return np == prefix || strings.HasPrefix(np, prefix+Separator)
	}

	if np == nb {
		return true
	}

	if g, ok := m.compiled[body]; ok {
		return g.Match(np)
	}

	g, err := glob.Compile(nb, '/')
	if err != nil {
		return false
	}
	return g.Match(np)
}

// IsIgnored reports whether path matches any configured pattern. Evaluation
// short-circuits on the first match.
func (m *Matcher) IsIgnored(path string) bool {
	if path == "" {
		return false
	}
	for _, p := range m.patterns {
		if m.matchOne(p, path) {
			return true
		}
	}
	return false
}

// Filter returns the subset of paths not ignored by any configured pattern.
func (m *Matcher) Filter(paths map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for p := range paths {
		if !m.IsIgnored(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

func splitNegation(pattern string) (negated bool, body string) {
	if strings.HasPrefix(pattern, "!") {
		return true, strings.TrimPrefix(pattern, "!")
	}
	return false, pattern
}

// normalize converts backslashes to forward slashes, strips a single leading
// slash, and case-folds when requested.
func normalize(s string, caseInsensitive bool) string {
	s = strings.ReplaceAll(s, "\\", Separator)
	s = strings.TrimPrefix(s, Separator)
	if caseInsensitive {
		s = strings.ToLower(s)
	}
	return s
}
