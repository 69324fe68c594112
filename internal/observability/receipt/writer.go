package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Writer persists finished receipts
type Writer interface {
	Write(r Receipt) error
	Close() error
}

// Mode write strategy
type Mode string

const (
	// ModeOverwrite keeps only the latest receipt in the file.
	ModeOverwrite Mode = "overwrite"
	// ModeAppend adds one JSON line per receipt.
	ModeAppend Mode = "append"
)

// ValidMode reports whether mode is empty or a known Mode
func ValidMode(mode string) bool {
	switch Mode(mode) {
	case "", ModeOverwrite, ModeAppend:
		return true
	}
	return false
}

// fileWriter opens its file on the first Write, so a run that ends before
// producing a receipt leaves an earlier receipt in place.
type fileWriter struct {
	mu   sync.Mutex
	path string
	mode Mode
	file *os.File
}

// NewWriter checks that path can hold receipts; "" mode means overwrite.
func NewWriter(path string, mode string) (Writer, error) {
	if path == "" {
		return nil, errors.New("receipt path is empty")
	}
	if !ValidMode(mode) {
		return nil, fmt.Errorf("invalid receipt mode: %s (use overwrite or append)", mode)
	}
	m := Mode(mode)
	if m == "" {
		m = ModeOverwrite
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("receipt path is a directory: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for receipt: %w", err)
	}

	return &fileWriter{path: path, mode: m}, nil
}

func (w *fileWriter) open() error {
	flag := os.O_CREATE | os.O_WRONLY
	if w.mode == ModeAppend {
		flag |= os.O_APPEND
	}
	f, err := os.OpenFile(w.path, flag, 0644)
	if err != nil {
		return fmt.Errorf("failed to open receipt file: %w", err)
	}
	w.file = f
	return nil
}

func (w *fileWriter) Write(r Receipt) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	if w.mode == ModeOverwrite {
		if err := w.file.Truncate(0); err != nil {
			return fmt.Errorf("failed to truncate receipt file: %w", err)
		}
		if _, err := w.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind receipt file: %w", err)
		}
	}

	enc := json.NewEncoder(w.file)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	return nil
}

func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
