// Package util holds small helpers shared by the rest of the application.
package util

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultShortIDLength is the length ShortID truncates to when no length is given.
const DefaultShortIDLength = 7

var shaRegexp = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// EnsureSlice returns v unchanged when it already holds a []T and wraps it in a
// single-element slice when it holds a T. Any other value yields nil.
func EnsureSlice[T any](v any) []T {
	switch x := v.(type) {
	case []T:
		return x
	case T:
		return []T{x}
	}
	return nil
}

// ShortID truncates an identifier to its first n runes. Numbers are
// formatted in base 10 first. A non-positive n means DefaultShortIDLength.
func ShortID(id any, n int) string {
	if n <= 0 {
		n = DefaultShortIDLength
	}
	r := []rune(fmt.Sprint(id))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

// ShortIDs applies ShortID to every element of ids. Nil entries are kept as nil.
func ShortIDs(ids []any, n int) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		if id == nil {
			continue
		}
		out[i] = ShortID(id, n)
	}
	return out
}

// IsSHA reports whether s is a full 40 character hexadecimal commit SHA.
func IsSHA(s string) bool {
	return shaRegexp.MatchString(s)
}

// StrToBool interprets common truthy strings ("true", "on", "1", any case).
// Everything else, including the empty string, is false.
func StrToBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1":
		return true
	}
	return false
}
