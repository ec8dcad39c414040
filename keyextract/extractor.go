package keyextract

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vaonis-tools/instrument-auth/auth"
	"github.com/vaonis-tools/instrument-auth/interfaces"
	"github.com/vaonis-tools/instrument-auth/pathguard"
)

// PreferredBundleName is the canonically named artifact looked up first when
// no explicit input is given.
const PreferredBundleName = "com.vaonis.barnard.zip"

// ExtractedKey is the scan result: one key value and every source file that
// contained it.
type ExtractedKey struct {
	Key     string
	Sources []string
}

// Config configures an extraction run. Zero-value fields fall back to
// defaults; all collaborators are injectable so tests can run without a real
// decompiler or filesystem conventions.
type Config struct {
	// InputPath is the artifact to scan: a smali file, a decoded directory,
	// a zip/xapk bundle, or an apk. Empty means discover one under WorkRoot.
	InputPath string

	// KeyPath is the output key file. Empty means <WorkRoot>/.auth_key.
	KeyPath string

	// ApktoolPath overrides decompiler discovery.
	ApktoolPath string

	// Prompt, when set, is consulted for an input path as a last resort
	// before giving up.
	Prompt interfaces.PromptFunc

	// Runner executes the decompiler subprocess. Defaults to ExecRunner.
	Runner interfaces.CommandRunner

	// Matcher scans disassembly text for key candidates. Defaults to
	// SmaliMatcher.
	Matcher interfaces.CandidateMatcher

	// Guard validates every path the run touches. Defaults to
	// pathguard.Default.
	Guard *pathguard.Guard

	// WorkRoot anchors artifact discovery, temp extraction directories, and
	// the default output location. Defaults to the detected repository root.
	WorkRoot string

	// Log receives progress events. Defaults to a discard logger.
	Log *slog.Logger
}

// Extractor runs the key extraction state machine. Construct one with
// NewExtractor; the zero value is not usable.
type Extractor struct {
	cfg Config
}

// NewExtractor fills in default collaborators and returns a ready extractor.
func NewExtractor(cfg Config) *Extractor {
	if cfg.Runner == nil {
		cfg.Runner = &ExecRunner{}
	}
	if cfg.Matcher == nil {
		cfg.Matcher = SmaliMatcher{}
	}
	if cfg.Guard == nil {
		cfg.Guard = pathguard.Default()
	}
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = pathguard.FindRepoRoot("")
	}
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{cfg: cfg}
}

// EnsureAuthKey materializes the key file and returns its path. It is the
// single entry point consumers call before building authorization headers.
func EnsureAuthKey(ctx context.Context, cfg Config) (string, error) {
	return NewExtractor(cfg).EnsureAuthKey(ctx)
}

// EnsureAuthKey runs the state machine once. An already-populated output file
// short-circuits without touching any input artifact. No state is retried
// after a failure; the caller must supply a corrected input.
func (e *Extractor) EnsureAuthKey(ctx context.Context) (string, error) {
	outputPath, err := e.outputPath()
	if err != nil {
		return "", err
	}

	// CheckExisting
	if content, err := os.ReadFile(outputPath); err == nil && strings.TrimSpace(string(content)) != "" {
		e.cfg.Log.Debug("Auth key file already populated", slog.String("path", outputPath))
		return outputPath, nil
	}

	// ResolveInput
	input, err := e.resolveInput()
	if err != nil {
		return "", err
	}
	info, err := os.Stat(input)
	if err != nil {
		return "", fmt.Errorf("%w: input not found: %s", interfaces.ErrAuthKeyNotFound, input)
	}
	e.cfg.Log.Info("Scanning artifact for auth key", slog.String("input", input))

	// ClassifyInput
	if !info.IsDir() && strings.EqualFold(filepath.Ext(input), ".smali") {
		extracted, err := e.extractFromSmali([]string{input})
		if err != nil {
			return "", err
		}
		return outputPath, e.persist(outputPath, extracted)
	}

	searchRoot, err := e.resolveSearchRoot(ctx, input, info.IsDir())
	if err != nil {
		return "", err
	}

	// SearchSmali
	smaliPaths, err := findSmaliFiles(searchRoot)
	if err != nil {
		return "", err
	}
	if len(smaliPaths) == 0 {
		smaliPaths, err = e.searchNestedAPKs(ctx, searchRoot)
		if err != nil {
			return "", err
		}
	}
	if len(smaliPaths) == 0 {
		return "", fmt.Errorf("%w: no %s files under %s", interfaces.ErrAuthKeyNotFound, SmaliFileName, searchRoot)
	}

	// ExtractKey
	extracted, err := e.extractFromSmali(smaliPaths)
	if err != nil {
		return "", err
	}

	// Persist
	return outputPath, e.persist(outputPath, extracted)
}

func (e *Extractor) outputPath() (string, error) {
	path := e.cfg.KeyPath
	if path == "" {
		path = filepath.Join(e.cfg.WorkRoot, auth.DefaultKeyFileName)
	}
	return e.cfg.Guard.Normalize(path)
}

// resolveInput picks the artifact to scan: explicit path, then conventional
// candidates in the working root, then the interactive prompt.
func (e *Extractor) resolveInput() (string, error) {
	if e.cfg.InputPath != "" {
		return e.cfg.Guard.Normalize(e.cfg.InputPath)
	}
	if candidates := e.discoverArtifacts(); len(candidates) > 0 {
		return e.cfg.Guard.Normalize(candidates[0])
	}
	if e.cfg.Prompt != nil {
		return e.promptForPath()
	}
	return "", fmt.Errorf("%w: no input path provided and no archive found in %s",
		interfaces.ErrAuthKeyNotFound, e.cfg.WorkRoot)
}

// discoverArtifacts lists candidate artifacts in the working root: the
// canonically named bundle first, then any apk/xapk/zip by extension.
func (e *Extractor) discoverArtifacts() []string {
	var candidates []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; !ok {
			seen[path] = struct{}{}
			candidates = append(candidates, path)
		}
	}

	preferred := filepath.Join(e.cfg.WorkRoot, PreferredBundleName)
	if _, err := os.Stat(preferred); err == nil {
		add(preferred)
	}
	for _, ext := range []string{".apk", ".xapk", ".zip"} {
		matches, err := filepath.Glob(filepath.Join(e.cfg.WorkRoot, "*"+ext))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, match := range matches {
			add(match)
		}
	}
	return candidates
}

func (e *Extractor) promptForPath() (string, error) {
	response, err := e.cfg.Prompt("Enter path to instrument APK/XAPK/ZIP or decoded folder: ")
	if err != nil {
		return "", err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("%w: no input provided", interfaces.ErrAuthKeyNotFound)
	}
	path, err := e.cfg.Guard.Normalize(response)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: path not found: %s", interfaces.ErrAuthKeyNotFound, path)
	}
	return path, nil
}

// resolveSearchRoot turns the classified input into a directory holding
// disassembly sources, expanding or decoding as needed.
func (e *Extractor) resolveSearchRoot(ctx context.Context, input string, isDir bool) (string, error) {
	if isDir {
		return input, nil
	}
	switch strings.ToLower(filepath.Ext(input)) {
	case ".zip", ".xapk":
		e.cfg.Log.Info("Expanding archive", slog.String("path", input))
		return ExpandZip(input, e.cfg.WorkRoot)
	case ".apk":
		return e.decodeAPK(ctx, input)
	default:
		return "", fmt.Errorf("unsupported input: %s", input)
	}
}

func (e *Extractor) decodeAPK(ctx context.Context, apkPath string) (string, error) {
	tool, err := LocateApktool(e.cfg.ApktoolPath, e.cfg.WorkRoot, e.cfg.Guard)
	if err != nil {
		return "", err
	}
	outputDir := filepath.Join(e.cfg.WorkRoot, "temp", "apktool_"+timestamp())
	e.cfg.Log.Info("Decoding APK",
		slog.String("apk", apkPath),
		slog.String("tool", tool),
		slog.String("output", outputDir))
	return DecodeAPK(ctx, e.cfg.Runner, tool, apkPath, outputDir)
}

// searchNestedAPKs decodes packaged-application files found under root in
// priority order until one yields disassembly sources or candidates run out.
func (e *Extractor) searchNestedAPKs(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, nil
	}
	apks, err := findByExtension(root, ".apk")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(apks, func(i, j int) bool {
		return scoreAPK(apks[i]) < scoreAPK(apks[j])
	})

	for _, apkPath := range apks {
		decoded, err := e.decodeAPK(ctx, apkPath)
		if err != nil {
			return nil, err
		}
		smaliPaths, err := findSmaliFiles(decoded)
		if err != nil {
			return nil, err
		}
		if len(smaliPaths) > 0 {
			return smaliPaths, nil
		}
	}
	return nil, nil
}

// extractFromSmali scans every located source file and aggregates candidates
// into a key-to-sources mapping. Exactly one distinct key may exist.
func (e *Extractor) extractFromSmali(smaliPaths []string) (ExtractedKey, error) {
	keys := make(map[string][]string)
	for _, path := range smaliPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return ExtractedKey{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for _, key := range e.cfg.Matcher.Candidates(string(data)) {
			keys[key] = append(keys[key], path)
		}
	}

	switch len(keys) {
	case 0:
		return ExtractedKey{}, fmt.Errorf("%w: no 64-byte base64 key found", interfaces.ErrAuthKeyNotFound)
	case 1:
		for key, sources := range keys {
			return ExtractedKey{Key: key, Sources: sources}, nil
		}
	}
	return ExtractedKey{}, &interfaces.MultipleKeysError{Keys: keys}
}

func (e *Extractor) persist(outputPath string, extracted ExtractedKey) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(extracted.Key+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	e.cfg.Log.Info("Wrote auth key file",
		slog.String("path", outputPath),
		slog.Int("sources", len(extracted.Sources)))
	return nil
}

// findSmaliFiles recursively locates files named exactly SmaliFileName.
func findSmaliFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == SmaliFileName {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func findByExtension(root, ext string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
