package repo

import (
	"context"
	"strings"
)

// StatusEntry is one path reported by `git status --porcelain`.
type StatusEntry struct {
	// Code is the two-letter XY status (e.g. " M", "A ", "??").
	Code string
	Path string
	// OrigPath is set for renames and copies.
	OrigPath string
}

// Untracked reports whether the path is not yet known to git.
func (e StatusEntry) Untracked() bool {
	return e.Code == "??"
}

// Staged reports whether the index differs from HEAD for this path.
func (e StatusEntry) Staged() bool {
	return len(e.Code) == 2 && e.Code[0] != ' ' && e.Code[0] != '?'
}

// Modified reports whether the working tree differs from the index.
func (e StatusEntry) Modified() bool {
	return len(e.Code) == 2 && e.Code[1] != ' ' && e.Code[1] != '?'
}

// Status lists uncommitted changes in dir, untracked files included.
// Ignored files are not reported.
func (c *Client) Status(ctx context.Context, dir string) ([]StatusEntry, error) {
	out, err := c.runRaw(ctx, dir, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

// DirtyCheck checks if a working directory has uncommitted changes.
// Returns the changed paths; an empty slice means the tree is clean.
func (c *Client) DirtyCheck(ctx context.Context, dir string) ([]string, error) {
	entries, err := c.Status(ctx, dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths, nil
}

// parsePorcelain parses NUL-separated `git status --porcelain=v1 -z` output.
// Renames and copies carry their source path as an extra NUL-terminated field.
func parsePorcelain(out string) []StatusEntry {
	var entries []StatusEntry
	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if len(f) < 4 {
			continue
		}
		entry := StatusEntry{Code: f[:2], Path: f[3:]}
		if entry.Code[0] == 'R' || entry.Code[0] == 'C' {
			if i+1 < len(fields) {
				entry.OrigPath = fields[i+1]
				i++
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
