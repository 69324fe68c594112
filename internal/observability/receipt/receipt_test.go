package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pkgvet/pkgvet/internal/observability"
)

func readReceipt(t *testing.T, path string) Receipt {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read receipt: %v", err)
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("invalid JSON: %v\nContent: %s", err, data)
	}
	return r
}

func TestWriterOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "receipt.json")

	for _, op := range []string{"op-1", "op-2"} {
		w, err := NewWriter(path, "overwrite")
		if err != nil {
			t.Fatalf("NewWriter failed: %v", err)
		}
		if err := w.Write(Receipt{SchemaVersion: ReceiptSchemaVersion, OpID: op}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		w.Close()
	}

	if r := readReceipt(t, path); r.OpID != "op-2" {
		t.Errorf("op_id = %q, want op-2 (file should be truncated)", r.OpID)
	}
}

func TestWriterAppend_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")

	w, err := NewWriter(path, "append")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for _, op := range []string{"op-1", "op-2"} {
		if err := w.Write(Receipt{OpID: op}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var r Receipt
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i+1, err)
		}
	}
}

func TestValidMode(t *testing.T) {
	for mode, want := range map[string]bool{"": true, "overwrite": true, "append": true, "rotate": false} {
		if got := ValidMode(mode); got != want {
			t.Errorf("ValidMode(%q) = %v, want %v", mode, got, want)
		}
	}
}

func TestSession_FinishWritesRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")
	w, err := NewWriter(path, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	ctx := WithWriter(observability.WithOpID(context.Background()), w)
	s := Start(ctx, "pkgvet", []string{"--api-key", "secret", "a.nupkg"})
	err = s.Finish(nil,
		WithPolicy("microsoft", "1.0", "sha256:abc"),
		WithSummary(1, 1),
		WithPackages([]PackageReceipt{
			{Path: "a.nupkg", ID: "A", Version: "1.0.0", Outcome: "valid"},
			{Path: "b.nupkg", Outcome: "invalid", Violations: []string{"authors: bad"}},
		}),
	)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	w.Close()

	r := readReceipt(t, path)
	if r.OpID != observability.OpID(ctx) {
		t.Errorf("op_id = %q, want %q", r.OpID, observability.OpID(ctx))
	}
	if r.Result.Status != "success" {
		t.Errorf("status = %q, want success", r.Result.Status)
	}
	if !r.ArgsRedacted || r.Args[1] != "[REDACTED]" {
		t.Errorf("args not redacted: %v", r.Args)
	}
	if r.Policy == nil || r.Policy.Fingerprint != "sha256:abc" {
		t.Errorf("policy = %+v", r.Policy)
	}
	if r.Summary == nil || r.Summary.Valid != 1 || r.Summary.Invalid != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
	if len(r.Packages) != 2 || r.Packages[1].Violations[0] != "authors: bad" {
		t.Errorf("packages = %+v", r.Packages)
	}
}

func TestSession_FinishWithError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")
	w, err := NewWriter(path, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	ctx := WithWriter(context.Background(), w)
	long := strings.Repeat("x", MaxErrorLength+100)
	if err := Start(ctx, "pkgvet", nil).Finish(errors.New(long)); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	w.Close()

	r := readReceipt(t, path)
	if r.Result.Status != "fail" {
		t.Errorf("status = %q, want fail", r.Result.Status)
	}
	if len(r.Result.Error) != MaxErrorLength || !strings.HasSuffix(r.Result.Error, "...") {
		t.Errorf("error not truncated: len=%d", len(r.Result.Error))
	}
}

func TestSession_NoWriter(t *testing.T) {
	if err := Start(context.Background(), "pkgvet", nil).Finish(nil); err != nil {
		t.Errorf("Finish without writer should be a no-op, got %v", err)
	}
}

func TestWriterOverwrite_SameWriterKeepsLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")
	w, err := NewWriter(path, "")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer w.Close()

	if err := w.Write(Receipt{OpID: "first-with-a-much-longer-id"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Receipt{OpID: "second"}); err != nil {
		t.Fatal(err)
	}

	if r := readReceipt(t, path); r.OpID != "second" {
		t.Errorf("op_id = %q, want second", r.OpID)
	}
}

func TestWriter_OpensOnFirstWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")
	if err := os.WriteFile(path, []byte(`{"op_id":"earlier"}`), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWriter(path, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if r := readReceipt(t, path); r.OpID != "earlier" {
		t.Errorf("receipt replaced without a write: op_id = %q", r.OpID)
	}
}

func TestNewWriter_Rejects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		mode string
		want string
	}{
		{"empty path", "", "overwrite", "empty"},
		{"unknown mode", filepath.Join(dir, "r.json"), "rotate", "invalid receipt mode"},
		{"directory", dir, "append", "is a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWriter(tt.path, tt.mode)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("NewWriter error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestTruncateError_RuneBoundary(t *testing.T) {
	s := strings.Repeat("é", MaxErrorLength)
	got := truncateError(s)
	if len(got) > MaxErrorLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxErrorLength)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a rune")
	}
}
