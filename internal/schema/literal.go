package schema

import (
	"fmt"
	"strings"
)

// ConfigError is a mistake in the validator's own rule tables, never in a document.
// It is reported by NewValidator so a broken build fails before any network activity.
type ConfigError struct {
	Rule string
	Msg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("schema config: %s: %s", e.Rule, e.Msg)
}

// literalUnion is a closed set of at least two literal values.
type literalUnion[T comparable] struct {
	values []T
}

func newLiteralUnion[T comparable](rule string, values ...T) (literalUnion[T], error) {
	if len(values) < 2 {
		return literalUnion[T]{}, &ConfigError{
			Rule: rule,
			Msg:  fmt.Sprintf("a literal union needs at least two members, got %d", len(values)),
		}
	}
	seen := make(map[T]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			return literalUnion[T]{}, &ConfigError{Rule: rule, Msg: fmt.Sprintf("duplicate member %v", v)}
		}
		seen[v] = struct{}{}
	}
	return literalUnion[T]{values: values}, nil
}

func (u literalUnion[T]) contains(v T) bool {
	for _, candidate := range u.values {
		if candidate == v {
			return true
		}
	}
	return false
}

func (u literalUnion[T]) enum() []any {
	out := make([]any, len(u.values))
	for i, v := range u.values {
		out[i] = v
	}
	return out
}

func (u literalUnion[T]) describe() string {
	parts := make([]string, len(u.values))
	for i, v := range u.values {
		parts[i] = fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return strings.Join(parts, " | ")
}

// keyMatcher decides which RatingKey strings are legal for a rating state.
type keyMatcher interface {
	match(key string) bool
	describe() string
}

func (u literalUnion[T]) match(key string) bool {
	s, ok := any(key).(T)
	return ok && u.contains(s)
}

type singleLiteral string

func (l singleLiteral) match(key string) bool {
	return string(l) == key
}

func (l singleLiteral) describe() string {
	return fmt.Sprintf("%q", string(l))
}

type freeForm struct{}

func (freeForm) match(string) bool {
	return true
}

func (freeForm) describe() string {
	return "any string"
}
