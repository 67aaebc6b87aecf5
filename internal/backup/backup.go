// Package backup keeps zstd-compressed copies of containers before they are
// rewritten.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Extension is the suffix of every backup file.
const Extension = ".zst"

// Backup compresses srcPath into backupDir/{name}.{unix}.zst.
// Returns the backup path.
func Backup(srcPath, backupDir string, now time.Time) (string, error) {
	destPath := Path(filepath.Base(srcPath), backupDir, now)

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	defer dest.Close()

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}

	if _, err := io.Copy(encoder, src); err != nil {
		encoder.Close()
		return "", fmt.Errorf("compress: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("finalize compression: %w", err)
	}

	return destPath, nil
}

// Restore decompresses backupPath to destPath, replacing any existing file.
func Restore(backupPath, destPath string) error {
	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer src.Close()

	decoder, err := zstd.NewReader(src)
	if err != nil {
		return fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create restore dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".restore-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, decoder); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("decompress: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("place restored file: %w", err)
	}
	return nil
}

// Path returns the backup path for a container name taken at now.
func Path(name, backupDir string, now time.Time) string {
	return filepath.Join(backupDir, name+"."+strconv.FormatInt(now.Unix(), 10)+Extension)
}

// Entry is one backup file.
type Entry struct {
	Path  string
	Name  string // container name the backup was taken from
	Taken time.Time
}

// List returns the backups in backupDir, newest first.
func List(backupDir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(backupDir)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var entries []Entry
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		name, taken, ok := parseName(e.Name())
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Path:  filepath.Join(backupDir, e.Name()),
			Name:  name,
			Taken: taken,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Taken.After(entries[j].Taken)
	})
	return entries, nil
}

// Latest returns the newest backup of the named container.
func Latest(backupDir, name string) (Entry, error) {
	entries, err := List(backupDir)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("no backup of %s in %s: %w", name, backupDir, os.ErrNotExist)
}

// parseName splits {name}.{unix}.zst.
func parseName(file string) (string, time.Time, bool) {
	if !strings.HasSuffix(file, Extension) {
		return "", time.Time{}, false
	}
	stem := strings.TrimSuffix(file, Extension)
	dot := strings.LastIndexByte(stem, '.')
	if dot <= 0 {
		return "", time.Time{}, false
	}
	secs, err := strconv.ParseInt(stem[dot+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return stem[:dot], time.Unix(secs, 0), true
}
