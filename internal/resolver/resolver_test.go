package resolver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"b.nupkg",
		"a.nupkg",
		"notes.txt",
		"sub/c.nupkg",
		"sub/deeper/d.nupkg",
		"sub/e.snupkg",
	)
	// a directory whose name matches must not be returned
	if err := os.MkdirAll(filepath.Join(root, "dir.nupkg"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		pattern   string
		recursive bool
		want      []string
	}{
		{
			name:    "literal path passes through",
			pattern: filepath.Join(root, "missing.nupkg"),
			want:    []string{filepath.Join(root, "missing.nupkg")},
		},
		{
			name:    "wildcard in current directory only",
			pattern: filepath.Join(root, "*.nupkg"),
			want:    []string{filepath.Join(root, "a.nupkg"), filepath.Join(root, "b.nupkg")},
		},
		{
			name:      "wildcard recursive",
			pattern:   filepath.Join(root, "*.nupkg"),
			recursive: true,
			want: []string{
				filepath.Join(root, "a.nupkg"),
				filepath.Join(root, "b.nupkg"),
				filepath.Join(root, "sub", "c.nupkg"),
				filepath.Join(root, "sub", "deeper", "d.nupkg"),
			},
		},
		{
			name:    "wildcard with prefix",
			pattern: filepath.Join(root, "sub", "*e*"),
			want:    []string{filepath.Join(root, "sub", "e.snupkg")},
		},
		{
			name:    "wildcard matching nothing",
			pattern: filepath.Join(root, "*.zip"),
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.pattern, tt.recursive)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "file.nupkg")

	_, err := Resolve(filepath.Join(root, "*", "a.nupkg"), false)
	if !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("wildcard in dir: err = %v, want ErrInvalidPattern", err)
	}

	_, err = Resolve(filepath.Join(root, "[*.nupkg"), false)
	if !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("bad pattern: err = %v, want ErrInvalidPattern", err)
	}

	_, err = Resolve(filepath.Join(root, "nope", "*.nupkg"), false)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing dir: err = %v, want fs.ErrNotExist", err)
	}

	_, err = Resolve(filepath.Join(root, "file.nupkg", "*.nupkg"), false)
	var pe *fs.PathError
	if !errors.As(err, &pe) {
		t.Errorf("file as dir: err = %v, want *fs.PathError", err)
	}
}

func TestHasWildcard(t *testing.T) {
	if !HasWildcard("dir/*.nupkg") {
		t.Error("expected wildcard")
	}
	if HasWildcard("dir*/a.nupkg") {
		t.Error("directory wildcard is not a filename wildcard")
	}
}
