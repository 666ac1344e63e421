package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot reports a request path that resolves outside the server root.
var ErrOutsideRoot = errors.New("path is outside the server root")

// resolveRoot returns the absolute, symlink-free form of an existing directory.
func resolveRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("server: JSONTAB_SERVER_ROOT is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("server: root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("server: root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("server: root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("server: root %s is not a directory", resolved)
	}
	return resolved, nil
}

// confine resolves p against root and rejects it unless the result, with
// symlinks followed, stays inside root. Relative paths are taken relative to
// root. A missing final element is allowed so that the converter can report
// it as an io error.
func confine(root, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	resolved, err := filepath.EvalSymlinks(p)
	if errors.Is(err, fs.ErrNotExist) {
		var dir string
		dir, err = filepath.EvalSymlinks(filepath.Dir(p))
		resolved = filepath.Join(dir, filepath.Base(p))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return resolved, nil
}
