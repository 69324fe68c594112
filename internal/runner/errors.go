package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound path does not exist
	ErrNotFound = errors.New("file not found")
	// ErrIsDirectory path names a directory, not a package
	ErrIsDirectory = errors.New("path is a directory")
)

// PathError is a per-item failure to locate or read an input
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// panicError is a recovered defect while processing one item
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("internal error: %v", e.value)
}
