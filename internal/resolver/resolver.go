// Package resolver expands package path arguments. Only the filename segment
// of a pattern may contain a wildcard.
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidPattern wildcard in the directory segment, or a bad pattern
var ErrInvalidPattern = errors.New("invalid path pattern")

const wildcard = "*"

// HasWildcard reports whether the filename segment contains a wildcard
func HasWildcard(pattern string) bool {
	return strings.Contains(filepath.Base(pattern), wildcard)
}

// Resolve expands one path argument into concrete file paths.
//
// Without a wildcard the argument is returned unchanged; whether it exists is
// for the caller to decide. With a wildcard the directory is listed (walked,
// when recursive) and regular files whose name matches are returned in
// lexical order. A missing directory is returned as an *fs.PathError.
func Resolve(pattern string, recursive bool) ([]string, error) {
	dir, name := filepath.Split(pattern)
	if strings.Contains(dir, wildcard) {
		return nil, fmt.Errorf("%w: %q: wildcards are only allowed in the file name", ErrInvalidPattern, pattern)
	}
	if !strings.Contains(name, wildcard) {
		return []string{pattern}, nil
	}
	if _, err := filepath.Match(name, ""); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}

	if dir == "" {
		dir = "."
	}
	dir = filepath.Clean(dir)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "resolve", Path: dir, Err: errors.New("not a directory")}
	}

	if recursive {
		return walk(dir, name)
	}
	return list(dir, name)
}

func list(dir, name string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(name, e.Name()); ok {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func walk(root, name string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(name, d.Name()); ok {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// WalkDir is lexical per directory; sort for a global order
	sort.Strings(out)
	return out, nil
}
