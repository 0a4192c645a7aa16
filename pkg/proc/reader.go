// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package proc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
)

// DefaultRoot is the conventional procfs mount point.
const DefaultRoot = "/proc"

// ReadLines returns the content of path split into lines.
//
// A missing, unreadable or empty file returns an empty, non-nil slice. A single trailing
// newline does not produce an extra empty line, but blank lines inside the content are
// preserved since some pseudo-files (cpuinfo) use them as record separators.
func ReadLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return []string{}
	}

	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return []string{}
	}
	return strings.Split(content, "\n")
}

// Reader resolves pseudo-file names against a procfs root.
type Reader struct {
	root   string
	logger logr.Logger
}

// NewReader returns a Reader rooted at root. An empty root means DefaultRoot.
func NewReader(root string, logger logr.Logger) *Reader {
	if root == "" {
		root = DefaultRoot
	}
	return &Reader{
		root:   root,
		logger: logger,
	}
}

// Root returns the procfs root this reader resolves names against.
func (r *Reader) Root() string {
	return r.root
}

// Path joins name elements onto the procfs root.
func (r *Reader) Path(elem ...string) string {
	return filepath.Join(append([]string{r.root}, elem...)...)
}

// Lines returns the lines of the named pseudo-file, or an empty slice when it is absent.
func (r *Reader) Lines(name string) []string {
	path := r.Path(name)
	lines := ReadLines(path)
	if len(lines) == 0 {
		r.logger.V(2).Info("pseudo-file absent or empty", "path", path)
	}
	return lines
}

// FirstLine returns the first line of the named pseudo-file with surrounding
// whitespace removed, or "" when it is absent.
func (r *Reader) FirstLine(name string) string {
	lines := r.Lines(name)
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[0])
}

// Exists reports whether the procfs root is present and is a directory.
func (r *Reader) Exists() bool {
	info, err := os.Stat(r.root)
	return err == nil && info.IsDir()
}
