// Package state records applied runs so they can be undone and redone.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	gfs "github.com/sokinpui/graft/internal/fs"
)

const (
	stateDirName  = ".graft"
	stateFileName = "state.graft"
	historyDir    = "history"
	beforeDir     = "before"
	afterDir      = "after"
)

// Actions recorded for an operation.
const (
	ActionCreate = "create"
	ActionModify = "modify"
)

// Operation is one file touched by a run.
type Operation struct {
	Action string
	Path   string
	// BeforeHash is empty for created files.
	BeforeHash string
	AfterHash  string
}

// HistoryEntry is one complete run of the tool.
type HistoryEntry struct {
	ID         string
	Timestamp  int64
	Operations []Operation
}

// State is the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Change is a file write to record. Before holds the bytes the file had,
// or nil when the run created it.
type Change struct {
	Path   string
	Before []byte
}

// Manager owns the state directory.
type Manager struct {
	StateDir  string
	statePath string
	lock      *flock.Flock
	state     *State
}

// findGitRoot finds the root of the enclosing git repository.
func findGitRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// DefaultDir returns the state directory for work rooted at base: the
// .graft directory of the enclosing git repository, or of base itself.
func DefaultDir(base string) string {
	root, err := findGitRoot(base)
	if err != nil {
		root = base
	}
	return filepath.Join(root, stateDirName)
}

// New creates a manager for stateDir, creating the directory if needed.
func New(stateDir string) (*Manager, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	statePath := filepath.Join(stateDir, stateFileName)
	return &Manager{
		StateDir:  stateDir,
		statePath: statePath,
		lock:      flock.New(statePath + ".lock"),
	}, nil
}

// locked runs fn with the state file locked and loaded, then saves it.
func (m *Manager) locked(fn func() error) error {
	if err := m.lock.Lock(); err != nil {
		return fmt.Errorf("could not lock state file: %w", err)
	}
	defer m.lock.Unlock()

	if err := m.load(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return m.save()
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1}
	data, err := os.ReadFile(m.statePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		return nil
	}

	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	m.state.CurrentIndex = index

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		header := strings.Fields(lines[0])
		if len(header) != 2 {
			return fmt.Errorf("invalid state file: bad entry header %q", lines[0])
		}
		ts, err := strconv.ParseInt(header[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from %q: %w", header[1], err)
		}

		entry := HistoryEntry{ID: header[0], Timestamp: ts}
		opLines := lines[1:]
		if len(opLines)%4 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record in entry %s", entry.ID)
		}
		for i := 0; i < len(opLines); i += 4 {
			entry.Operations = append(entry.Operations, Operation{
				Action:     opLines[i],
				Path:       opLines[i+1],
				BeforeHash: strings.TrimPrefix(opLines[i+2], "-"),
				AfterHash:  opLines[i+3],
			})
		}
		m.state.History = append(m.state.History, entry)
	}
	if m.state.CurrentIndex >= len(m.state.History) {
		m.state.CurrentIndex = len(m.state.History) - 1
	}
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}
	for _, entry := range m.state.History {
		lines := []string{fmt.Sprintf("%s %d", entry.ID, entry.Timestamp)}
		for _, op := range entry.Operations {
			before := op.BeforeHash
			if before == "" {
				before = "-"
			}
			lines = append(lines, op.Action, op.Path, before, op.AfterHash)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	content := strings.Join(blocks, "\n\n") + "\n"
	if err := gfs.WriteFileAtomic(m.statePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("could not write state file: %w", err)
	}
	return nil
}

// History returns a copy of the recorded state.
func (m *Manager) History() (State, error) {
	var out State
	err := m.locked(func() error {
		out.CurrentIndex = m.state.CurrentIndex
		out.History = append([]HistoryEntry(nil), m.state.History...)
		return nil
	})
	return out, err
}

// Record snapshots the given changes, whose new content is already on
// disk, as a new history entry. Entries after the current one are dropped.
func (m *Manager) Record(changes []Change) (HistoryEntry, error) {
	entry := HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Unix(),
	}
	if len(changes) == 0 {
		return entry, nil
	}
	// The first change to a path carries the content from before the run.
	seen := make(map[string]bool, len(changes))
	var sorted []Change
	for _, c := range changes {
		if !seen[c.Path] {
			seen[c.Path] = true
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	for i, c := range sorted {
		after, err := os.ReadFile(c.Path)
		if err != nil {
			return entry, fmt.Errorf("could not snapshot %s: %w", c.Path, err)
		}
		op := Operation{Action: ActionCreate, Path: c.Path, AfterHash: gfs.HashBytes(after)}
		if c.Before != nil {
			op.Action = ActionModify
			op.BeforeHash = gfs.HashBytes(c.Before)
			if err := m.writeSnapshot(entry.ID, beforeDir, i, c.Before); err != nil {
				return entry, err
			}
		}
		if err := m.writeSnapshot(entry.ID, afterDir, i, after); err != nil {
			return entry, err
		}
		entry.Operations = append(entry.Operations, op)
	}

	err := m.locked(func() error {
		for _, dropped := range m.state.History[m.state.CurrentIndex+1:] {
			os.RemoveAll(m.entryDir(dropped.ID))
		}
		m.state.History = append(m.state.History[:m.state.CurrentIndex+1], entry)
		m.state.CurrentIndex++
		return nil
	})
	return entry, err
}

// Undo reverts the current entry. A file is restored only when its content
// still matches what the run wrote.
func (m *Manager) Undo() (restored, failed []string, err error) {
	err = m.locked(func() error {
		if m.state.CurrentIndex < 0 {
			return nil
		}
		entry := m.state.History[m.state.CurrentIndex]
		restored, failed = m.revert(entry)
		m.state.CurrentIndex--
		return nil
	})
	return restored, failed, err
}

// Redo reapplies the entry after the current one. A file is rewritten only
// when its content still matches what the run found.
func (m *Manager) Redo() (restored, failed []string, err error) {
	err = m.locked(func() error {
		next := m.state.CurrentIndex + 1
		if next >= len(m.state.History) {
			return nil
		}
		entry := m.state.History[next]
		restored, failed = m.reapply(entry)
		m.state.CurrentIndex = next
		return nil
	})
	return restored, failed, err
}

func (m *Manager) revert(entry HistoryEntry) (restored, failed []string) {
	for i, op := range entry.Operations {
		if hashOf(op.Path) != op.AfterHash {
			failed = append(failed, op.Path)
			continue
		}
		var err error
		if op.Action == ActionCreate {
			err = os.Remove(op.Path)
			if err == nil {
				removeEmptyParent(op.Path)
			}
		} else {
			err = m.restore(entry.ID, beforeDir, i, op.Path)
		}
		if err != nil {
			failed = append(failed, op.Path)
			continue
		}
		restored = append(restored, op.Path)
	}
	return restored, failed
}

func (m *Manager) reapply(entry HistoryEntry) (restored, failed []string) {
	for i, op := range entry.Operations {
		if hashOf(op.Path) != op.BeforeHash {
			failed = append(failed, op.Path)
			continue
		}
		if err := m.restore(entry.ID, afterDir, i, op.Path); err != nil {
			failed = append(failed, op.Path)
			continue
		}
		restored = append(restored, op.Path)
	}
	return restored, failed
}

// removeEmptyParent removes the directory holding path if it is now empty.
func removeEmptyParent(path string) {
	parent := filepath.Dir(path)
	if empty, _ := gfs.IsEmpty(parent); empty {
		os.Remove(parent)
	}
}

// hashOf returns the content hash of path, or "" when it does not exist.
func hashOf(path string) string {
	h, err := gfs.HashFile(path)
	if err != nil {
		return ""
	}
	return h
}

func (m *Manager) entryDir(id string) string {
	return filepath.Join(m.StateDir, historyDir, id)
}

func (m *Manager) snapshotPath(id, side string, i int) string {
	return filepath.Join(m.entryDir(id), side, strconv.Itoa(i))
}

func (m *Manager) writeSnapshot(id, side string, i int, data []byte) error {
	path := m.snapshotPath(id, side, i)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create snapshot directory: %w", err)
	}
	return gfs.WriteFileAtomic(path, data, 0644)
}

func (m *Manager) restore(id, side string, i int, dst string) error {
	data, err := os.ReadFile(m.snapshotPath(id, side, i))
	if err != nil {
		return err
	}
	perm := os.FileMode(0644)
	if info, err := os.Stat(dst); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return gfs.WriteFileAtomic(dst, data, perm)
}
