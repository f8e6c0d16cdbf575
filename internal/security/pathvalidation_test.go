package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "plots"), 0o755))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(dir, "run-path.png"), false},
		{"new file in subdir", filepath.Join(dir, "plots", "run.png"), false},
		{"missing subdir", filepath.Join(dir, "a", "b", "run.png"), false},
		{"dir itself", dir, false},
		{"parent", filepath.Join(dir, ".."), true},
		{"traversal", filepath.Join(dir, "plots", "..", "..", "etc", "passwd"), true},
		{"elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, dir)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectorySymlink(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(dir, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(link, "run.png"), dir))
}

func TestValidateOutputPath(t *testing.T) {
	assert.NoError(t, ValidateOutputPath("run-path.png"))
	assert.NoError(t, ValidateOutputPath(filepath.Join(os.TempDir(), "run-path.png")))
	assert.Error(t, ValidateOutputPath("/proc/racecar/run.png"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                      "unknown",
		"3f2a-77c1":             "3f2a-77c1",
		"../../etc/passwd":      "etc_passwd",
		"session id with space": "session_id_with_space",
		"a//b":                  "a_b",
		"...":                   "unknown",
		"run_01":                "run_01",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "SanitizeFilename(%q)", in)
	}
}
