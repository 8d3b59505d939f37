package overlay

import (
	"os"
	"path/filepath"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestShowAndClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "overlay")
	w := NewWriter(dir, "redeem_cam.txt", "redeem_user.txt")

	if err := w.Show("Gyro", "viewer42"); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if got := readFile(t, w.CameraPath()); got != "Gyro" {
		t.Errorf("expected camera file 'Gyro', got %q", got)
	}
	if got := readFile(t, w.UserPath()); got != "viewer42" {
		t.Errorf("expected user file 'viewer42', got %q", got)
	}

	if err := w.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := readFile(t, w.CameraPath()); got != "" {
		t.Errorf("expected empty camera file, got %q", got)
	}
	if got := readFile(t, w.UserPath()); got != "" {
		t.Errorf("expected empty user file, got %q", got)
	}

	if _, err := os.Stat(w.CameraPath() + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected no temp file left behind")
	}
}
