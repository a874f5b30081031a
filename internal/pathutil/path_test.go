package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_HomeShortcut(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("user home dir: %v", err)
	}

	got, err := Expand("~/.thinx/history")
	if err != nil {
		t.Fatalf("expand path: %v", err)
	}

	want := filepath.Join(home, ".thinx", "history")
	if got != want {
		t.Fatalf("path mismatch: got %q want %q", got, want)
	}
}

func TestExpand_EnvVar(t *testing.T) {
	t.Setenv("THINX_PATH_TEST", "/tmp/thinx-path")

	got, err := Expand("$THINX_PATH_TEST/downloads")
	if err != nil {
		t.Fatalf("expand path: %v", err)
	}

	if want := filepath.Clean("/tmp/thinx-path/downloads"); got != want {
		t.Fatalf("path mismatch: got %q want %q", got, want)
	}
}

func TestExpand_Empty(t *testing.T) {
	got, err := Expand("   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	downloads := filepath.Join(root, "downloads")
	require.NoError(t, os.MkdirAll(downloads, 0755))
	inside := filepath.Join(downloads, "cat.png")
	require.NoError(t, os.WriteFile(inside, []byte("png"), 0644))

	sibling := filepath.Join(root, "downloads-evil")
	require.NoError(t, os.MkdirAll(sibling, 0755))
	outside := filepath.Join(sibling, "x.png")
	require.NoError(t, os.WriteFile(outside, []byte("png"), 0644))

	roots := []string{downloads}

	assert.True(t, Within(inside, roots))
	assert.True(t, Within(downloads, roots))
	assert.False(t, Within(outside, roots), "sibling prefix must not match")
	assert.False(t, Within(filepath.Join(downloads, "..", "downloads-evil", "x.png"), roots))
	assert.False(t, Within("/etc/passwd", roots))
	assert.False(t, Within(inside, nil))
}

func TestWithinRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "allowed")
	secret := filepath.Join(root, "secret")
	require.NoError(t, os.MkdirAll(allowed, 0755))
	require.NoError(t, os.MkdirAll(secret, 0755))
	target := filepath.Join(secret, "key.txt")
	require.NoError(t, os.WriteFile(target, []byte("k"), 0644))

	link := filepath.Join(allowed, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	assert.False(t, Within(link, []string{allowed}))
}

func TestCanonicalTakesPathLiterally(t *testing.T) {
	root := t.TempDir()
	t.Setenv("THINX_TEST_ROOT", root)

	named := filepath.Join(root, "$THINX_TEST_ROOT.png")
	require.NoError(t, os.WriteFile(named, []byte("png"), 0644))

	got, err := Canonical(named)
	require.NoError(t, err)
	assert.Equal(t, "$THINX_TEST_ROOT.png", filepath.Base(got))
	assert.True(t, Within(named, []string{root}))

	// An env reference in request input is not expanded into the root.
	assert.False(t, Within("$THINX_TEST_ROOT/x.png", []string{root}))
	_, err = Canonical("  ")
	assert.Error(t, err)
}

func TestWithinExpandsRoots(t *testing.T) {
	root := t.TempDir()
	t.Setenv("THINX_TEST_ROOT", root)
	inside := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(inside, []byte("a"), 0644))

	assert.True(t, Within(inside, []string{"$THINX_TEST_ROOT"}))
}
