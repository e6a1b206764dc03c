package graft_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/graft/cli"
	"github.com/sokinpui/graft/graft"
)

func newApp(t *testing.T, cfg *cli.Config) *graft.App {
	t.Helper()
	app, err := graft.New(cfg, nil)
	require.NoError(t, err)
	return app
}

func TestAppUndoRedo(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "pkg/m.py", "def a(): return 1\n")
	base := cli.Config{Config: testConfig(dir), StateDir: filepath.Join(dir, ".state"), NoTUI: true}

	cfg := base
	var progress [][2]int
	app := newApp(t, &cfg)
	app.SetProgressCallback(func(current, total int) { progress = append(progress, [2]int{current, total}) })

	input := fence("python", "# pkg/m.py\ndef b(): return 2\n") + fence("python", "# pkg/new.py\nX = 1\n")
	summary, err := app.ApplyText(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, summary.Modified, 1)
	require.Len(t, summary.Created, 1)
	assert.True(t, strings.HasSuffix(summary.Modified[0], filepath.Join("pkg", "m.py")))
	assert.True(t, strings.HasSuffix(summary.Created[0], filepath.Join("pkg", "new.py")))
	assert.Empty(t, summary.Failed)
	assert.Equal(t, [][2]int{{0, 2}, {1, 2}, {2, 2}}, progress)

	undo := base
	undo.Undo = true
	summary, err = newApp(t, &undo).Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Modified, 2)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, "def a(): return 1\n", readModule(t, path))
	assert.NoFileExists(t, filepath.Join(dir, "pkg", "new.py"))

	summary, err = newApp(t, &undo).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No operation to undo.", summary.Message)

	redo := base
	redo.Redo = true
	_, err = newApp(t, &redo).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "def a(): return 1\n\n\ndef b(): return 2\n", readModule(t, path))
	assert.Equal(t, "X = 1\n", readModule(t, filepath.Join(dir, "pkg", "new.py")))
}

func TestAppUndoRedoSameModuleTwice(t *testing.T) {
	dir := t.TempDir()
	original := "class A:\n    pass\n\n\ndef a(): return 1\n"
	path := writeModule(t, dir, "pkg/m.py", original)
	created := filepath.Join(dir, "pkg", "new.py")
	base := cli.Config{Config: testConfig(dir), StateDir: filepath.Join(dir, ".state"), NoTUI: true}

	cfg := base
	input := fence("python", "# pkg/m.py\ndef b(): return 2\n") +
		fence("json", `{"module_path": "pkg/m.py", "targets": [{"type": "class", "name": "A"}]}`+"\n") +
		fence("python", "# pkg/new.py\nX = 1\n") +
		fence("python", "# pkg/new.py\nY = 2\n")
	summary, err := newApp(t, &cfg).ApplyText(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, summary.Failed)
	require.Len(t, summary.Modified, 1)
	require.Len(t, summary.Created, 1)
	applied := readModule(t, path)
	appliedNew := readModule(t, created)
	assert.NotContains(t, applied, "class A")
	assert.Contains(t, applied, "def b()")
	assert.Contains(t, appliedNew, "Y = 2")

	undo := base
	undo.Undo = true
	summary, err = newApp(t, &undo).Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Failed)
	assert.Len(t, summary.Modified, 2)
	assert.Equal(t, original, readModule(t, path))
	assert.NoFileExists(t, created)

	redo := base
	redo.Redo = true
	summary, err = newApp(t, &redo).Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, applied, readModule(t, path))
	assert.Equal(t, appliedNew, readModule(t, created))
}

func TestAppDryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "m.py", "X = 1\n")
	cfg := cli.Config{Config: testConfig(dir), StateDir: filepath.Join(dir, ".state"), NoTUI: true, DryRun: true}

	summary, err := newApp(t, &cfg).ApplyText(context.Background(), fence("python", "# m.py\nX = 2\n"))
	require.NoError(t, err)
	assert.Equal(t, "Dry run: nothing was written.", summary.Message)
	require.Len(t, summary.Diffs, 1)
	assert.Contains(t, summary.Diffs[0], "+X = 2")
	assert.Equal(t, "X = 1\n", readModule(t, path))

	undo := cfg
	undo.DryRun = false
	undo.Undo = true
	summary, err = newApp(t, &undo).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No operation to undo.", summary.Message, "dry runs are not recorded")
}

func TestAppSummaryGroups(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "same.py", "X = 1\n")
	cfg := cli.Config{Config: testConfig(dir), StateDir: filepath.Join(dir, ".state"), NoTUI: true}

	input := fence("python", "# same.py\nX = 1\n") +
		fence("python", "print('no path')\n") +
		fence("python", "# broken.py\ndef f(:\n    pass\n")
	summary, err := newApp(t, &cfg).ApplyText(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, summary.Skipped, 1)
	assert.Contains(t, summary.Skipped[0], "no changes")
	require.Len(t, summary.Failed, 2)
	assert.True(t, strings.HasPrefix(summary.Failed[0], "no-module-path"), summary.Failed[0])
	assert.Contains(t, summary.Failed[1], "validation-failed")
	assert.Empty(t, summary.Created)
	assert.Empty(t, summary.Modified)
}

func TestApplyInterface(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "web/app.py", "def index():\n    return 1\n")

	content := "Update the view and add a helper:\n\n" +
		fence("python", "# web/app.py\ndef index():\n    return 2\n") +
		fence("python", "# web/helpers.py\ndef helper():\n    return 0\n")
	out, err := graft.Apply(context.Background(), content, testConfig(dir))
	require.NoError(t, err)

	require.Len(t, out["Modified"], 1)
	require.Len(t, out["Created"], 1)
	assert.True(t, strings.HasSuffix(out["Created"][0], filepath.Join("web", "helpers.py")))
	assert.Empty(t, out["Failed"])
	assert.Empty(t, out["Skipped"])
}
