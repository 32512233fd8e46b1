package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDir_ValidateName(t *testing.T) {
	tmpDir := t.TempDir()

	d, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("Failed to open dir: %v", err)
	}
	defer d.Close()

	tests := []struct {
		name      string
		input     string
		shouldErr bool
		errType   error
	}{
		{"simple file", "vault.png", false, nil},
		{"file in subdirectory", "exports/vault.png", false, nil},
		{"dot slash", "./vault.png", false, nil},
		{"dot segments", "a/./b/../vault.png", false, nil},

		{"parent directory", "../vault.png", true, ErrPathEscapes},
		{"nested parent", "a/../../vault.png", true, ErrPathEscapes},
		{"empty path", "", true, ErrEmptyPath},
	}
	if runtime.GOOS != "windows" {
		tests = append(tests, struct {
			name      string
			input     string
			shouldErr bool
			errType   error
		}{"absolute path", "/etc/passwd", true, ErrAbsolutePath})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.ValidateName(tt.input)
			if tt.shouldErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.input)
				}
				if !errors.Is(err, tt.errType) {
					t.Errorf("Expected %v, got %v", tt.errType, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %q: %v", tt.input, err)
			}
		})
	}
}

func TestWritePrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.png")

	if err := WritePrivateFile(path, []byte("first")); err != nil {
		t.Fatalf("WritePrivateFile failed: %v", err)
	}
	if err := WritePrivateFile(path, []byte("second")); err != nil {
		t.Fatalf("WritePrivateFile overwrite failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Got %q, want %q", got, "second")
	}
	if err := CheckPrivate(path); err != nil {
		t.Errorf("Expected private file, got %v", err)
	}
}

func TestWriteFile_TightensExistingMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix permissions")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.png")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WritePrivateFile(path, []byte("new")); err != nil {
		t.Fatalf("WritePrivateFile failed: %v", err)
	}
	if err := CheckPrivate(path); err != nil {
		t.Errorf("Expected mode to be tightened, got %v", err)
	}
}

func TestWriteFile_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := t.TempDir()
	dir := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(dir, "link")); err != nil {
		t.Fatal(err)
	}

	d, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if err := d.WriteFile("link/vault.png", []byte("x")); err == nil {
		t.Fatal("Expected write through escaping symlink to fail")
	}
	if _, err := os.Stat(filepath.Join(outside, "vault.png")); !os.IsNotExist(err) {
		t.Errorf("File was written outside the directory")
	}
}

func TestCheckPrivate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix permissions")
	}
	path := filepath.Join(t.TempDir(), "vault.db")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := CheckPrivate(path); !errors.Is(err, ErrTooOpen) {
		t.Errorf("Expected ErrTooOpen, got %v", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		t.Fatal(err)
	}
	if err := CheckPrivate(path); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := CheckPrivate(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}
