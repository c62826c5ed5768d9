package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "plots")
	unsafeDir := filepath.Join(tmpDir, "elsewhere")
	for _, dir := range []string{safeDir, unsafeDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
	}
	if err := os.Symlink(unsafeDir, filepath.Join(safeDir, "evil-symlink")); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"new file in directory", filepath.Join(safeDir, "sonar_map_frame_0020.png"), false},
		{"nested new file", filepath.Join(safeDir, "run", "a.png"), false},
		{"dot dot escape", filepath.Join(safeDir, "..", "a.png"), true},
		{"sibling directory", filepath.Join(unsafeDir, "a.png"), true},
		{"through symlinked parent", filepath.Join(safeDir, "evil-symlink", "a.png"), true},
		{"the directory itself", safeDir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingSafeDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	if err := ValidatePathWithinDirectory(filepath.Join(missing, "a.png"), missing); err == nil {
		t.Error("expected error when the safe directory does not exist")
	}
}

func TestValidatePathLexically(t *testing.T) {
	tests := []struct {
		path, dir string
		wantError bool
	}{
		{"plots/sonar_map_frame_0001.png", "plots", false},
		{"plots/./a.png", "plots", false},
		{"plots/../a.png", "plots", true},
		{"../plots/a.png", "plots", true},
		{"/tmp/a.png", "/tmp/plots", true},
		{"/tmp/plots/a.png", "/tmp/plots", false},
	}
	for _, tt := range tests {
		err := ValidatePathLexically(tt.path, tt.dir)
		if (err != nil) != tt.wantError {
			t.Errorf("ValidatePathLexically(%q, %q) error = %v, wantError %v", tt.path, tt.dir, err, tt.wantError)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                        "unknown",
		"backup-1700000000.db":    "backup-1700000000.db",
		"../../etc/passwd":        "etc_passwd",
		"session id/with spaces!": "session_id_with_spaces",
		"...":                     "unknown",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
