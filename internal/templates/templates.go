// Package templates provides the user-facing message copy. Templates live in
// an embedded YAML document keyed by scenario name; values are fmt format
// strings.
package templates

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Set is an immutable collection of templates, safe for concurrent use.
type Set struct {
	m map[string]string
}

// Default parses the embedded templates. It panics only if the embedded
// document is broken, which tests guard against.
func Default() *Set {
	s, err := Parse(defaultMessages)
	if err != nil {
		panic(fmt.Sprintf("templates: embedded messages: %v", err))
	}
	return s
}

// Parse builds a Set from a YAML mapping of string keys to string values.
func Parse(doc []byte) (*Set, error) {
	m := map[string]string{}
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Set{m: m}, nil
}

// Has reports whether key is defined.
func (s *Set) Has(key string) bool {
	_, ok := s.m[key]
	return ok
}

// Get renders key with args. Unknown keys render as the key itself so a
// missing template is visible instead of silent.
func (s *Set) Get(key string, args ...any) string {
	t, ok := s.m[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return t
	}
	return fmt.Sprintf(t, args...)
}

// Help returns the help entry for a command, accepting an optional leading
// slash.
func (s *Set) Help(command string) (string, bool) {
	t, ok := s.m["help_"+strings.ToLower(strings.TrimPrefix(command, "/"))]
	return t, ok
}
