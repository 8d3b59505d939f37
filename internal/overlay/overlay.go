// Package overlay writes the two plain-text files read by the stream overlay:
// the camera and the viewer of the active override. An empty file means no
// override is active.
package overlay

import (
	"fmt"
	"os"
	"path/filepath"
)

type Writer struct {
	dir        string
	cameraPath string
	userPath   string
}

func NewWriter(dir, cameraFile, userFile string) *Writer {
	return &Writer{
		dir:        dir,
		cameraPath: filepath.Join(dir, cameraFile),
		userPath:   filepath.Join(dir, userFile),
	}
}

func (w *Writer) CameraPath() string { return w.cameraPath }
func (w *Writer) UserPath() string   { return w.userPath }

// Show publishes the override camera and the redeeming viewer.
func (w *Writer) Show(camera, user string) error {
	if err := w.write(w.cameraPath, camera); err != nil {
		return err
	}
	return w.write(w.userPath, user)
}

// Clear empties both files.
func (w *Writer) Clear() error {
	return w.Show("", "")
}

func (w *Writer) write(path, value string) error {
	if w.dir != "" {
		if err := os.MkdirAll(w.dir, 0750); err != nil {
			return fmt.Errorf("creating overlay directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(value), 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing overlay file: %w", err)
	}

	// Atomic rename so the overlay never reads a partial value
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming overlay file: %w", err)
	}
	return nil
}
