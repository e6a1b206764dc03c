package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/graft/model"
)

// PathResolver maps module paths to absolute file paths.
type PathResolver struct {
	base string
	// root is set when the workspace root policy is active; resolved paths
	// must stay inside it.
	root string
}

// NewPathResolver creates a resolver for the given configuration.
func NewPathResolver(cfg model.Config) (*PathResolver, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base directory %q: %w", cfg.BaseDir, err)
	}

	r := &PathResolver{base: base}
	if cfg.UseWorkspaceRoot && cfg.WorkspaceRoot != "" {
		root := filepath.FromSlash(strings.ReplaceAll(cfg.WorkspaceRoot, `\`, "/"))
		if !filepath.IsAbs(root) {
			root = filepath.Join(base, root)
		}
		r.root = filepath.Clean(root)
	}
	return r, nil
}

// Base returns the directory relative paths resolve against.
func (r *PathResolver) Base() string { return r.base }

// Resolve returns the absolute path for a module. With the workspace root
// policy active, a path that leaves the root, directly or through a
// symbolic link, fails with an io-error.
func (r *PathResolver) Resolve(modulePath string) (string, error) {
	if strings.TrimSpace(modulePath) == "" {
		return "", model.NewError(model.KindIO, modulePath, "empty module path")
	}
	path := filepath.FromSlash(modulePath)
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.base, path)
	}
	path = filepath.Clean(path)

	if r.root == "" {
		return path, nil
	}
	if !within(r.root, path) {
		return "", model.NewError(model.KindIO, modulePath, "path escapes workspace root %s", r.root)
	}

	resolved, err := evalExisting(path)
	if err != nil {
		return "", model.WrapError(model.KindIO, modulePath, err)
	}
	root, err := evalExisting(r.root)
	if err != nil {
		return "", model.WrapError(model.KindIO, modulePath, err)
	}
	if !within(root, resolved) {
		return "", model.NewError(model.KindIO, modulePath, "path resolves outside workspace root %s", r.root)
	}
	return path, nil
}

// evalExisting resolves symbolic links in the deepest existing ancestor of
// path and appends the part that does not exist yet.
func evalExisting(path string) (string, error) {
	existing, rest := path, ""
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return path, nil
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolved, rest), nil
}

// Rel returns path relative to the base directory for display, or path
// itself when that is not possible.
func (r *PathResolver) Rel(path string) string {
	rel, err := filepath.Rel(r.base, path)
	if err != nil {
		return path
	}
	return rel
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// HashFile returns the hex SHA-256 of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteFileAtomic writes data to a temporary sibling, syncs it, and renames
// it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// CopyFile copies src to dst, creating dst's parent directories.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return WriteFileAtomic(dst, data, info.Mode().Perm())
}

// IsEmpty reports whether a directory has no entries.
func IsEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}
