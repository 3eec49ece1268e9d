// Package jsonutil provides JSON helpers shared by the Arbor binaries.
//
// Node documents are plain JSON arrays; these helpers check their shape
// before they are served or cached and format them for terminal output.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrNotArray is returned when a document's top level is not a JSON array.
var ErrNotArray = errors.New("top-level value is not an array")

// ArrayLen checks that data is a JSON array and returns its element count.
func ArrayLen(data []byte) (int, error) {
	var items []json.RawMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return 0, ErrNotArray
	}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return 0, fmt.Errorf("parsing array: %w", err)
	}
	return len(items), nil
}

// Pretty re-indents a JSON document with two spaces.
// Returns the input unchanged if it is not valid JSON.
func Pretty(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return data
	}
	return buf.Bytes()
}

// Compact strips insignificant whitespace from a JSON document.
// Returns the input unchanged if it is not valid JSON.
func Compact(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return data
	}
	return buf.Bytes()
}

// Truncate cuts s to at most maxLen bytes and marks the cut with "...".
// The cut never splits a UTF-8 sequence. Used for error bodies echoed into
// log lines.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:runeStart(s, maxLen)]
	}
	return s[:runeStart(s, maxLen-3)] + "..."
}

// runeStart backs i up to the start of the rune it falls in.
func runeStart(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
