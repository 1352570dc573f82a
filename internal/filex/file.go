// Package filex contains filesystem helpers for the client's data directory.
package filex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) if missing and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// EnsureParentDir makes sure the directory holding path exists.
func EnsureParentDir(path string) error {
	_, err := EnsureDir(filepath.Dir(path))
	return err
}

// MoveInto moves file into dir, keeping its base name.
func MoveInto(file, dir string) (string, error) {
	target, err := EnsureDir(dir)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(target, filepath.Base(file))
	if err := os.Rename(file, dst); err != nil {
		return "", fmt.Errorf("move %s: %w", file, err)
	}
	return dst, nil
}

// CopyInto copies file into dir under name and returns the new path.
func CopyInto(file, dir, name string) (string, error) {
	target, err := EnsureDir(dir)
	if err != nil {
		return "", err
	}
	src, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	defer src.Close()

	dst := filepath.Join(target, name)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("copy %s: %w", file, err)
	}
	return dst, out.Close()
}
