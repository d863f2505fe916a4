// Package jsonptr implements the subset of JSON Pointer (RFC 6901) used to
// address parameters inside a document.
//
// A parameter lives at "/<componentId>/<name>", for example "/1/RTL_ALT".
package jsonptr

import (
	"fmt"
	"strconv"
	"strings"
)

// Escape encodes "~" and "/" in a single reference token.
func Escape(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// Unescape decodes a reference token produced by Escape.
func Unescape(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

// Build joins tokens into a pointer. Integers are written in base 10.
//
//	Build(1, "RTL_ALT")  -> "/1/RTL_ALT"
//	Build("a/b", "c")    -> "/a~1b/c"
func Build(tokens ...any) string {
	if len(tokens) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteByte('/')
		switch v := tok.(type) {
		case string:
			sb.WriteString(Escape(v))
		case int:
			sb.WriteString(strconv.Itoa(v))
		case int64:
			sb.WriteString(strconv.FormatInt(v, 10))
		case uint64:
			sb.WriteString(strconv.FormatUint(v, 10))
		default:
			sb.WriteString(Escape(fmt.Sprint(v)))
		}
	}
	return sb.String()
}

// Parse splits a pointer into unescaped tokens. The empty pointer refers to
// the whole document and yields no tokens.
func Parse(pointer string) ([]string, error) {
	if pointer == "" {
		return []string{}, nil
	}
	if pointer[0] != '/' {
		return nil, fmt.Errorf("invalid JSON Pointer %q: must start with '/'", pointer)
	}
	parts := strings.Split(pointer[1:], "/")
	for i, p := range parts {
		parts[i] = Unescape(p)
	}
	return parts, nil
}

// ParameterPath returns the pointer addressing a parameter of a component.
func ParameterPath(componentID int, name string) string {
	return Build(componentID, name)
}

// SplitParameterPath is the inverse of ParameterPath.
func SplitParameterPath(pointer string) (componentID int, name string, err error) {
	tokens, err := Parse(pointer)
	if err != nil {
		return 0, "", err
	}
	if len(tokens) != 2 {
		return 0, "", fmt.Errorf("parameter path %q: want 2 tokens, got %d", pointer, len(tokens))
	}
	componentID, err = strconv.Atoi(tokens[0])
	if err != nil {
		return 0, "", fmt.Errorf("parameter path %q: component id %q is not an integer", pointer, tokens[0])
	}
	if tokens[1] == "" {
		return 0, "", fmt.Errorf("parameter path %q: empty parameter name", pointer)
	}
	return componentID, tokens[1], nil
}
