package discover

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Extension is the file suffix of a ReqIF container.
const Extension = ".reqifz"

// ContainerFile represents a discovered container on disk.
type ContainerFile struct {
	Path    string
	Name    string
	Size    int64
	ModTime int64 // unix timestamp
}

// IsContainer reports whether name looks like a ReqIF container.
func IsContainer(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Extension)
}

// Discover lists the regular files in dir ending in .reqifz, in name order.
// Subdirectories are not searched.
func Discover(dir string) ([]ContainerFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var results []ContainerFile
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsContainer(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed since listing
		}
		results = append(results, ContainerFile{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
	}
	return results, nil
}

// Stage places the container at path into outDir and returns its new path.
// With copyOnly the source is left untouched; otherwise it is moved. An
// existing file of the same name in outDir is replaced.
func Stage(path, outDir string, copyOnly bool) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	dest := filepath.Join(outDir, filepath.Base(path))

	same, err := samePath(path, dest)
	if err != nil {
		return "", err
	}
	if same {
		return dest, nil
	}

	if copyOnly {
		if err := copyFile(path, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	if err := os.Rename(path, dest); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return "", fmt.Errorf("move %s: %w", filepath.Base(path), err)
		}
		if err := copyFile(path, dest); err != nil {
			return "", err
		}
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("remove staged source: %w", err)
		}
	}
	return dest, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// copyFile copies src over dst through a temp file in dst's directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".stage-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("place %s: %w", filepath.Base(dst), err)
	}
	return nil
}
