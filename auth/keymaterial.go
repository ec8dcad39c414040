package auth

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vaonis-tools/instrument-auth/pathguard"
)

// KeyFileEnvVar redirects the default key-file location. The override is
// still subject to the path guard.
const KeyFileEnvVar = "VAONIS_AUTH_KEY_FILE"

// DefaultKeyFileName is the conventional key file name looked up in the
// default locations.
const DefaultKeyFileName = ".auth_key"

// KeySource selects where signing key material comes from. Fields are
// consulted in declaration order; the zero value means "use the defaults".
type KeySource struct {
	// Material is raw key material, used as-is when non-nil.
	Material []byte

	// MaterialBase64 is base64-encoded key material.
	MaterialBase64 string

	// File is an explicit key file path, validated by the guard before being
	// read.
	File string

	// Guard overrides the path guard used for file resolution. When nil the
	// default guard is constructed per call.
	Guard *pathguard.Guard
}

// ResolveKeyMaterial resolves raw key bytes from src. File content is a
// single line of base64 text; it is trimmed, decoded, and returned as raw
// bytes. A missing file yields an error naming the expected location and the
// environment override, wrapping os.ErrNotExist.
func ResolveKeyMaterial(src KeySource) ([]byte, error) {
	if src.Material != nil {
		return src.Material, nil
	}
	if src.MaterialBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(src.MaterialBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 key material: %w", err)
		}
		return raw, nil
	}

	guard := src.Guard
	if guard == nil {
		guard = pathguard.Default()
	}
	keyPath, err := resolveKeyPath(src.File, guard)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf(
				"authorization key file not found: %s; set %s or pass key material: %w",
				keyPath, KeyFileEnvVar, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 in key file %s: %w", keyPath, err)
	}
	return raw, nil
}

// resolveKeyPath picks the key file location: explicit path, environment
// override, then the first existing conventional candidate. When nothing
// exists the first candidate is still returned so the caller can report the
// expected location.
func resolveKeyPath(explicit string, guard *pathguard.Guard) (string, error) {
	if explicit != "" {
		return guard.Normalize(explicit)
	}
	if envPath := os.Getenv(KeyFileEnvVar); envPath != "" {
		return guard.Normalize(envPath)
	}
	for _, candidate := range defaultKeyCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return guard.Normalize(candidate)
		}
	}
	return guard.Normalize(defaultKeyCandidates()[0])
}

// defaultKeyCandidates lists the conventional key file locations in lookup
// order: current directory, next to the executable, then the repository root.
func defaultKeyCandidates() []string {
	candidates := []string{DefaultKeyFileName}
	cwd, err := os.Getwd()
	if err == nil {
		candidates[0] = filepath.Join(cwd, DefaultKeyFileName)
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), DefaultKeyFileName))
	}
	if root := pathguard.FindRepoRoot(cwd); root != cwd {
		candidates = append(candidates, filepath.Join(root, DefaultKeyFileName))
	}
	return candidates
}
