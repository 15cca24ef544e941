// Package id generates prefixed NanoID identifiers.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes name the kind of thing an ID points at.
const (
	PrefixManual     = "man"
	PrefixFile       = "file"
	PrefixTag        = "tag"
	PrefixSession    = "ses"
	PrefixToken      = "tok"
	PrefixSubscriber = "sse"
)

// nanoLength is the go-nanoid default.
const nanoLength = 21

// Generate creates an ID of the form prefix-nanoid, e.g. "man-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system has insufficient entropy.
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New(nanoLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// Is reports whether s looks like an ID generated with prefix.
func Is(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"-")
	return ok && len(rest) == nanoLength
}
