package keyextract

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/vaonis-tools/instrument-auth/interfaces"
	"github.com/vaonis-tools/instrument-auth/pathguard"
)

// ApktoolName is the external decompiler binary looked up on PATH and under
// <root>/tools when no explicit tool path is given.
const ApktoolName = "apktool"

// ExpandZip extracts every entry of the zip-family artifact into a freshly
// named, timestamp-qualified directory under workRoot/temp and returns that
// directory. Entry names are untrusted: any entry that would escape the
// extraction directory fails the whole expansion.
func ExpandZip(zipPath, workRoot string) (string, error) {
	outDir := filepath.Join(workRoot, "temp", "zip_extract_"+timestamp())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if err := extractZipEntry(entry, outDir); err != nil {
			return "", err
		}
	}
	return outDir, nil
}

func extractZipEntry(entry *zip.File, outDir string) error {
	dest := filepath.Join(outDir, filepath.FromSlash(entry.Name))
	if !isWithinDir(outDir, dest) {
		return fmt.Errorf("%w: archive entry %q escapes extraction directory",
			interfaces.ErrPathOutsideRoots, entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return nil
}

// DecodeAPK invokes the external decompiler as
//
//	<tool> d -f -o <outputDir> <apkPath>
//
// through the given runner, requesting a forced, fresh output directory. The
// output directory is returned on a zero exit code; a non-zero exit is fatal
// with no partial-output recovery.
func DecodeAPK(ctx context.Context, runner interfaces.CommandRunner, toolPath, apkPath, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create decode directory: %w", err)
	}
	if err := runner.Run(ctx, toolPath, "d", "-f", "-o", outputDir, apkPath); err != nil {
		return "", fmt.Errorf("%w: %s on %s: %v", interfaces.ErrExternalTool, toolPath, apkPath, err)
	}
	return outputDir, nil
}

// LocateApktool finds the decompiler binary: the explicit override first,
// then PATH, then <workRoot>/tools/apktool. It fails with ErrToolNotFound
// before any subprocess is attempted.
func LocateApktool(override, workRoot string, guard *pathguard.Guard) (string, error) {
	if override != "" {
		resolved, err := guard.Normalize(override)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(resolved); err != nil {
			return "", fmt.Errorf("%w: %s", interfaces.ErrToolNotFound, resolved)
		}
		return resolved, nil
	}
	if found, err := exec.LookPath(ApktoolName); err == nil {
		return found, nil
	}
	fallback := filepath.Join(workRoot, "tools", ApktoolName)
	if _, err := os.Stat(fallback); err == nil {
		return fallback, nil
	}
	return "", fmt.Errorf("%w: %s not on PATH and %s missing", interfaces.ErrToolNotFound, ApktoolName, fallback)
}

// scoreAPK ranks split/bundle APKs for decode order. The base split is most
// likely to hold the repository class, vendor-named splits come next,
// everything else last. This is a heuristic, not a guarantee; packaging
// convention changes can make it pick a split without the class.
func scoreAPK(path string) int {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "base"):
		return 0
	case strings.Contains(name, "com.vaonis"), strings.Contains(name, "barnard"):
		return 1
	default:
		return 2
	}
}

// timestamp names temp extraction directories. Second granularity avoids
// collisions between sequential runs but not between sub-second-concurrent
// invocations.
func timestamp() string {
	return time.Now().UTC().Format("20060102_150405")
}

func isWithinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
