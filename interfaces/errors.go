package interfaces

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidChallenge is returned when an auth context carries a challenge
	// too short to hold a format prefix plus a base64 payload.
	ErrInvalidChallenge = errors.New("challenge must include a prefix and base64 payload")

	// ErrKeyFormat is returned when signing key material is neither a 32-byte
	// seed nor a 64-byte expanded secret key.
	ErrKeyFormat = errors.New("unsupported signing key length")

	// ErrPathOutsideRoots is returned when a file path canonicalizes outside
	// every allowed root directory. The path is refused even if it exists and
	// is readable.
	ErrPathOutsideRoots = errors.New("path outside allowed roots")

	// ErrToolNotFound is returned when the external decompiler binary cannot
	// be located through the override or any default location.
	ErrToolNotFound = errors.New("decompiler tool not found")

	// ErrExternalTool is returned when the decompiler subprocess exits
	// non-zero. No partial-output recovery is attempted.
	ErrExternalTool = errors.New("decompiler tool failed")

	// ErrAuthKeyNotFound is returned when no qualifying key candidate can be
	// located in any scanned source.
	ErrAuthKeyNotFound = errors.New("auth key not found")

	// ErrMultipleAuthKeys is returned when distinct key candidates appear
	// across the scanned sources. Extraction never guesses among ambiguous
	// candidates.
	ErrMultipleAuthKeys = errors.New("multiple auth keys found")
)

// MultipleKeysError reports an ambiguous extraction: more than one distinct
// key value was found across the scanned source files. It maps each key to
// the files that contained it.
type MultipleKeysError struct {
	Keys map[string][]string
}

func (e *MultipleKeysError) Error() string {
	keys := make([]string, 0, len(e.Keys))
	for key := range e.Keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("multiple auth keys found:")
	for _, key := range keys {
		fmt.Fprintf(&b, "\n%s: %s", key, strings.Join(e.Keys[key], ", "))
	}
	return b.String()
}

// Is reports ErrMultipleAuthKeys so callers can branch with errors.Is without
// unpacking the mapping.
func (e *MultipleKeysError) Is(target error) bool {
	return target == ErrMultipleAuthKeys
}
