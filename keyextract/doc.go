// Package keyextract locates and extracts the instrument's embedded Ed25519
// signing key from application artifacts.
//
// The vendor application embeds the key as a base64 string constant inside
// compiled bytecode. The pipeline expands zip-family artifacts, decodes
// packaged application files with an external disassembly tool (apktool),
// scans the resulting smali sources for qualifying base64 literals, and
// persists the single unambiguous key to a local key file.
//
// The extraction is a one-shot state machine:
//
//  1. CheckExisting: a non-empty output file short-circuits immediately.
//  2. ResolveInput: explicit path, else the first conventional artifact in
//     the working root, else an injected interactive prompt.
//  3. ClassifyInput: smali file, directory, zip/xapk, or apk.
//  4. SearchSmali: recursive search for InstrumentRepository.smali, with a
//     prioritized fallback across nested split APKs.
//  5. ExtractKey: aggregate candidates per key value; zero or more than one
//     distinct key are both fatal. Extraction never guesses among ambiguous
//     candidates.
//  6. Persist: write the key plus a trailing newline to the output file.
//
// All file paths touched by the pipeline pass through the pathguard, and
// every archive entry is confined to its extraction directory. The external
// tool call runs through an injectable CommandRunner with no enforced
// timeout; cancellation is the caller's responsibility via the context.
package keyextract
