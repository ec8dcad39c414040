package pathguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaonis-tools/instrument-auth/interfaces"
)

func TestNormalizeWithinRoot(t *testing.T) {
	root := t.TempDir()
	guard := New(root)

	resolved, err := guard.Normalize(filepath.Join(root, "sub", "file.txt"))
	require.NoError(t, err, "paths beneath the root should normalize")
	assert.True(t, filepath.IsAbs(resolved), "normalized path should be absolute")

	// The target does not need to exist yet.
	resolved, err = guard.Normalize(filepath.Join(root, "not", "created", "yet"))
	require.NoError(t, err)
	assert.Contains(t, resolved, "yet")
}

func TestNormalizeOutsideRootFailsClosed(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	guard := New(root)

	_, err := guard.Normalize(filepath.Join(other, "file.txt"))
	assert.ErrorIs(t, err, interfaces.ErrPathOutsideRoots)

	_, err = guard.Normalize("/etc/passwd")
	assert.ErrorIs(t, err, interfaces.ErrPathOutsideRoots, "absolute system paths must be refused")
}

func TestNormalizeCollapsesTraversal(t *testing.T) {
	root := t.TempDir()
	guard := New(root)

	_, err := guard.Normalize(filepath.Join(root, "a", "..", "..", "escape"))
	assert.ErrorIs(t, err, interfaces.ErrPathOutsideRoots, "dot-dot traversal must not escape the root")

	resolved, err := guard.Normalize(filepath.Join(root, "a", "..", "b"))
	require.NoError(t, err, "traversal that stays inside the root is fine")
	assert.Equal(t, "b", filepath.Base(resolved))
}

func TestNormalizeResolvesSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(outside, link))

	guard := New(root)
	_, err := guard.Normalize(filepath.Join(link, "file.txt"))
	assert.ErrorIs(t, err, interfaces.ErrPathOutsideRoots,
		"a symlink inside the root must not smuggle paths outside it")
}

func TestMultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	guard := New(rootA, rootB)

	_, err := guard.Normalize(filepath.Join(rootA, "x"))
	assert.NoError(t, err)
	_, err = guard.Normalize(filepath.Join(rootB, "y"))
	assert.NoError(t, err)
}

func TestDefaultGuardAllowsTempDir(t *testing.T) {
	guard := Default()
	_, err := guard.Normalize(filepath.Join(os.TempDir(), "instrument-auth-probe"))
	assert.NoError(t, err, "the system temp directory is an allowed root")
}

func TestFindRepoRoot(t *testing.T) {
	base := t.TempDir()
	repo := filepath.Join(base, "repo")
	nested := filepath.Join(repo, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "go.mod"), []byte("module example\n"), 0o644))

	assert.Equal(t, repo, FindRepoRoot(nested), "should ascend to the directory holding go.mod")

	gitRepo := filepath.Join(base, "git")
	gitNested := filepath.Join(gitRepo, "deep")
	require.NoError(t, os.MkdirAll(filepath.Join(gitRepo, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(gitNested, 0o755))
	assert.Equal(t, gitRepo, FindRepoRoot(gitNested), "a .git directory also marks the root")
}

func TestFindRepoRootFallsBackToStart(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, FindRepoRoot(dir), "without markers the start directory is returned")
}
