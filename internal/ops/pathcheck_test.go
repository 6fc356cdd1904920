package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/triage/internal/errors"
)

func TestValidateImportPath_TraversalRejected(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../backup.jsonl"},
		{"deep traversal", "../../etc/backup.jsonl"},
		{"mid-path traversal", "/tmp/../etc/backup.jsonl"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateImportPath(tc.path)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidateImportPath_ExtensionRequired(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"backup", "backup.json", "backup.txt"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := ValidateImportPath(p); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("%s: expected ErrInvalidRequest, got: %v", name, err)
		}
	}
}

func TestValidateImportPath_Missing(t *testing.T) {
	_, err := ValidateImportPath(filepath.Join(t.TempDir(), "nope.jsonl"))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestValidateImportPath_SymlinkRejected(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.jsonl")
	if err := os.WriteFile(target, nil, 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := ValidateImportPath(link); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for symlink, got: %v", err)
	}
	if _, err := ValidateImportPath(target); err != nil {
		t.Errorf("regular file rejected: %v", err)
	}
}
