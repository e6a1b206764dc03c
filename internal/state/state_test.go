package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Manager, string) {
	t.Helper()
	work := t.TempDir()
	m, err := New(filepath.Join(work, stateDirName))
	require.NoError(t, err)
	return m, work
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRecordUndoRedo(t *testing.T) {
	m, work := setup(t)
	modified := filepath.Join(work, "a.py")
	created := filepath.Join(work, "pkg", "b.py")

	write(t, modified, "x = 2\n")
	write(t, created, "y = 1\n")
	entry, err := m.Record([]Change{
		{Path: modified, Before: []byte("x = 1\n")},
		{Path: created},
	})
	require.NoError(t, err)
	require.Len(t, entry.Operations, 2)
	assert.Equal(t, ActionModify, entry.Operations[0].Action)
	assert.Equal(t, ActionCreate, entry.Operations[1].Action)
	assert.Empty(t, entry.Operations[1].BeforeHash)

	restored, failed, err := m.Undo()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{modified, created}, restored)
	assert.Empty(t, failed)
	assert.Equal(t, "x = 1\n", read(t, modified))
	assert.NoFileExists(t, created)
	assert.NoDirExists(t, filepath.Dir(created))

	restored, failed, err = m.Redo()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{modified, created}, restored)
	assert.Empty(t, failed)
	assert.Equal(t, "x = 2\n", read(t, modified))
	assert.Equal(t, "y = 1\n", read(t, created))

	restored, _, err = m.Redo()
	require.NoError(t, err)
	assert.Empty(t, restored, "nothing left to redo")
}

func TestRecordKeepsFirstChangePerPath(t *testing.T) {
	m, work := setup(t)
	path := filepath.Join(work, "a.py")

	write(t, path, "x = 3\n")
	entry, err := m.Record([]Change{
		{Path: path, Before: []byte("x = 1\n")},
		{Path: path, Before: []byte("x = 2\n")},
	})
	require.NoError(t, err)
	require.Len(t, entry.Operations, 1)

	restored, failed, err := m.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, restored)
	assert.Empty(t, failed)
	assert.Equal(t, "x = 1\n", read(t, path))

	restored, failed, err = m.Redo()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, restored)
	assert.Empty(t, failed)
	assert.Equal(t, "x = 3\n", read(t, path))
}

func TestUndoRefusesChangedFiles(t *testing.T) {
	m, work := setup(t)
	path := filepath.Join(work, "a.py")

	write(t, path, "x = 2\n")
	_, err := m.Record([]Change{{Path: path, Before: []byte("x = 1\n")}})
	require.NoError(t, err)

	write(t, path, "x = 3\n")
	restored, failed, err := m.Undo()
	require.NoError(t, err)
	assert.Empty(t, restored)
	assert.Equal(t, []string{path}, failed)
	assert.Equal(t, "x = 3\n", read(t, path))
}

func TestStatePersists(t *testing.T) {
	m, work := setup(t)
	path := filepath.Join(work, "a.py")

	write(t, path, "x = 2\n")
	first, err := m.Record([]Change{{Path: path, Before: []byte("x = 1\n")}})
	require.NoError(t, err)
	write(t, path, "x = 3\n")
	_, err = m.Record([]Change{{Path: path, Before: []byte("x = 2\n")}})
	require.NoError(t, err)

	reopened, err := New(m.StateDir)
	require.NoError(t, err)
	st, err := reopened.History()
	require.NoError(t, err)
	require.Len(t, st.History, 2)
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, first.ID, st.History[0].ID)
	assert.Equal(t, first.Operations, st.History[0].Operations)

	_, _, err = reopened.Undo()
	require.NoError(t, err)
	assert.Equal(t, "x = 2\n", read(t, path))

	// A new run after an undo drops the undone entry.
	write(t, path, "x = 4\n")
	_, err = reopened.Record([]Change{{Path: path, Before: []byte("x = 2\n")}})
	require.NoError(t, err)
	st, err = reopened.History()
	require.NoError(t, err)
	require.Len(t, st.History, 2)
	assert.Equal(t, first.ID, st.History[0].ID)
	assert.Equal(t, 1, st.CurrentIndex)
}

func TestUndoWithoutHistory(t *testing.T) {
	m, _ := setup(t)
	restored, failed, err := m.Undo()
	require.NoError(t, err)
	assert.Empty(t, restored)
	assert.Empty(t, failed)
}
