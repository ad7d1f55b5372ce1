package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"toolcost/internal/pipeline"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCompareDirUsesFirstFilesByName(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "comparison.csv")
	writeFile(t, filepath.Join(dir, "c.csv"), "#Cavity\nCost,3\n")
	writeFile(t, filepath.Join(dir, "a.csv"), "#Cavity\nCost,1\n")
	writeFile(t, filepath.Join(dir, "b.csv"), "#Cavity\nCost,2\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "#Cavity\nCost,9\n")
	writeFile(t, out, "stale")

	view, err := CompareDir(dir, out, 2, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{"a.csv", "b.csv"}, view.Filenames)

	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "\n# Cavity\nField,a.csv,b.csv\nCost,1,2\n", string(blob))
}

func TestCompareDirSkipsOutputSpelledDifferently(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	require.NoError(t, os.Mkdir("q", 0o755))
	writeFile(t, filepath.Join("q", "a.csv"), "#Cavity\nCost,1\n")
	writeFile(t, filepath.Join("q", "b.csv"), "#Cavity\nCost,2\n")
	out := filepath.Join(root, "q", "cmp.csv")

	for i := 0; i < 2; i++ {
		view, err := CompareDir("q", out, 5, nil)
		require.NoError(t, err)
		require.Equal(t, []string{"a.csv", "b.csv"}, view.Filenames)
	}

	// relative output inside an absolute watch dir
	view, err := CompareDir(filepath.Join(root, "q"), filepath.Join("q", "cmp.csv"), 5, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a.csv", "b.csv"}, view.Filenames)

	w := New("q", out, 5, 0, nil)
	require.False(t, w.relevant(fsnotify.Event{Name: filepath.Join("q", "cmp.csv"), Op: fsnotify.Write}))
	require.True(t, w.relevant(fsnotify.Event{Name: filepath.Join("q", "c.csv"), Op: fsnotify.Create}))
}

func TestCompareDirNeedsTwoFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "#Cavity\nCost,1\n")
	_, err := CompareDir(dir, filepath.Join(dir, "out.csv"), 5, zap.NewNop())
	require.ErrorIs(t, err, pipeline.ErrTooFewFiles)
}

func TestRunRefreshesOnChange(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "comparison.csv")
	writeFile(t, filepath.Join(dir, "a.csv"), "#Cavity\nCost,1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New(dir, out, 5, 20*time.Millisecond, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "b.csv"), "#Cavity\nCost,2\n")

	require.Eventually(t, func() bool {
		blob, err := os.ReadFile(out)
		return err == nil && strings.Contains(string(blob), "Cost,1,2")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
