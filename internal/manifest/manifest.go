// Package manifest walks a local site directory and lists what has to be
// transferred to the remote staging directory.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"ftp_deploy/models"
)

// Options controls which local nodes make it into the manifest.
type Options struct {
	// SkipHidden drops every node whose name starts with a dot. A hidden
	// directory is pruned together with its subtree.
	SkipHidden bool
}

// LocalIOError reports a failure to read the local site directory.
type LocalIOError struct {
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("reading local path %s: %v", e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() error {
	return e.Err
}

// Build returns every node below localRoot (the root itself excluded),
// sorted by local path. RemotePath of each entry is the path relative to
// localRoot placed under remoteRoot.
func Build(localRoot, remoteRoot string, opts Options) ([]models.FileEntry, error) {
	info, err := os.Stat(localRoot)
	if err != nil {
		return nil, &LocalIOError{Path: localRoot, Err: err}
	}
	if !info.IsDir() {
		return nil, &LocalIOError{Path: localRoot, Err: fmt.Errorf("not a directory")}
	}

	var entries []models.FileEntry
	err = filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &LocalIOError{Path: p, Err: err}
		}

		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			return &LocalIOError{Path: p, Err: err}
		}
		if rel == "." {
			return nil
		}

		if opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		entries = append(entries, models.FileEntry{
			LocalPath:  p,
			IsDir:      d.IsDir(),
			RemotePath: RemotePath(remoteRoot, rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LocalPath < entries[j].LocalPath
	})
	return entries, nil
}

// RemotePath joins a local relative path onto a remote (always slash
// separated) root.
func RemotePath(remoteRoot, rel string) string {
	rel = filepath.ToSlash(rel)
	if remoteRoot == "" {
		return rel
	}
	return path.Join(remoteRoot, rel)
}
