// Package parse turns raw chat text into party references and command
// arguments. Everything here is a pure function of its input and the
// configured prohibited-symbol set.
package parse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/pull-party-bot/internal/domain"
)

// DefaultProhibited is the symbol set that can never appear in a party name.
const DefaultProhibited = ",.;:!?()[]{}<>'\"`*/\\|#$%^&+=~"

// handleRE is the platform username grammar.
var handleRE = regexp.MustCompile(`(?i)^[a-z0-9_]{5,32}$`)

// Parser extracts party references from free text.
type Parser struct {
	prohibited string
}

// New returns a Parser for the given prohibited-symbol set. An empty set falls
// back to DefaultProhibited.
func New(prohibited string) *Parser {
	if prohibited == "" {
		prohibited = DefaultProhibited
	}
	return &Parser{prohibited: prohibited}
}

// Prohibited returns the configured symbol set.
func (p *Parser) Prohibited() string { return p.prohibited }

// Mentions returns the @-references found in text in order of appearance.
// A token keeps the part before its first prohibited symbol, and only when
// everything after that point is prohibited too: "@team-a," yields "team-a"
// while "@team,a" yields nothing.
func (p *Parser) Mentions(text string) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(text, isSeparator) {
		if !strings.HasPrefix(tok, "@") {
			continue
		}
		tok = tok[1:]
		if i := strings.IndexAny(tok, p.prohibited); i >= 0 {
			if strings.Trim(tok[i:], p.prohibited) != "" {
				continue
			}
			tok = tok[:i]
		}
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ValidName reports whether name (already stripped of a leading '@') may be
// stored as a party name.
func (p *Parser) ValidName(name string) bool {
	switch {
	case name == "":
		return false
	case utf8.RuneCountInString(name) > domain.MaxPartyNameLen:
		return false
	case strings.ContainsAny(name, "@"+p.prohibited):
		return false
	case strings.HasSuffix(name, "-"):
		return false
	}
	return true
}

// Args splits command arguments on whitespace and drops repeated tokens,
// keeping the first occurrence.
func Args(raw string) []string {
	fields := strings.Fields(raw)
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// StripAt removes a single leading '@'.
func StripAt(s string) string {
	return strings.TrimPrefix(s, "@")
}

// ValidHandle reports whether h, without '@', is a well-formed username.
func ValidHandle(h string) bool {
	return handleRE.MatchString(h)
}

// Handles normalizes member tokens to "@handle" form. Every '@' is removed
// before validation, duplicates collapse, and malformed tokens are dropped.
// requested is the number of distinct raw tokens, so callers can tell when
// something was rejected.
func Handles(tokens []string) (handles []string, requested int) {
	raw := make(map[string]struct{}, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		raw[t] = struct{}{}
		h := strings.ReplaceAll(t, "@", "")
		if !ValidHandle(h) {
			continue
		}
		key := strings.ToLower(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		handles = append(handles, "@"+h)
	}
	return handles, len(raw)
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
