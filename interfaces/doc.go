// Package interfaces defines core interfaces and types for the instrument
// authorization system, separating interface definitions from implementations.
//
// The package provides the contracts between the extraction pipeline and its
// host process:
//
// # Execution Interfaces
//
// CommandRunner: Abstracts the external bytecode-disassembly subprocess so
// callers and tests can substitute a fake tool without invoking a real
// decompiler.
//
// CandidateMatcher: Pluggable matching strategy for scanning disassembly text.
// Disassembly output is format-fragile across tool versions, so the pattern
// lives behind an interface with a default implementation rather than being
// baked into the extraction orchestrator.
//
// PromptFunc: Injectable interactive prompt used when no input artifact can be
// located automatically.
//
// # Error Taxonomy
//
// Every failure mode surfaces as a distinguishable error so library callers
// can branch on it:
//
//   - ErrInvalidChallenge: malformed challenge/context
//   - ErrKeyFormat: unsupported signing key byte length
//   - ErrPathOutsideRoots: a path resolves outside all allowed roots
//   - ErrToolNotFound: the external decompiler binary cannot be located
//   - ErrExternalTool: the decompiler exited non-zero
//   - ErrAuthKeyNotFound: no qualifying key candidate was found
//   - ErrMultipleAuthKeys: ambiguous candidates across sources
//
// MultipleKeysError carries the full key-to-source mapping for the ambiguous
// case; it matches ErrMultipleAuthKeys under errors.Is.
package interfaces
