// Package container reads and rewrites .reqifz zip containers.
package container

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ProcessingSuffix is appended to a container name while it is being
// rewritten. A container still carrying it after a run was not finished.
const ProcessingSuffix = ".zip"

// Member is one entry of a container.
type Member struct {
	Name string
	Data []byte

	header   zip.FileHeader
	document bool
	changed  bool
}

// Archive is an opened container with all members loaded.
type Archive struct {
	path    string
	reader  *zip.ReadCloser
	members []*Member
}

// Open reads every member of the container at path.
func Open(path string) (*Archive, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}
	a := &Archive{path: path, reader: r}
	for _, f := range r.File {
		data, err := readMember(f)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("read %s in %s: %w", f.Name, path, err)
		}
		a.members = append(a.members, &Member{
			Name:     f.Name,
			Data:     data,
			header:   f.FileHeader,
			document: isDocument(f.Name),
		})
	}
	return a, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// isDocument reports whether name is a root-level .reqif member.
func isDocument(name string) bool {
	if strings.Contains(name, "/") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), ".reqif")
}

// Documents returns the root-level .reqif members in archive order.
func (a *Archive) Documents() []*Member {
	var docs []*Member
	for _, m := range a.members {
		if m.document {
			docs = append(docs, m)
		}
	}
	return docs
}

// Replace sets new content for the named member.
func (a *Archive) Replace(name string, data []byte) error {
	for _, m := range a.members {
		if m.Name == name {
			m.Data = data
			m.changed = true
			return nil
		}
	}
	return fmt.Errorf("replace %s: no such member in %s", name, a.path)
}

// Changed reports whether any member was replaced since Open.
func (a *Archive) Changed() bool {
	for _, m := range a.members {
		if m.changed {
			return true
		}
	}
	return false
}

// Save writes all members, in their original order and with their original
// headers, to a temporary file beside the container and renames it over the
// original.
func (a *Archive) Save() error {
	dir := filepath.Dir(a.path)
	tmp, err := os.CreateTemp(dir, ".reqifclean-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp container: %w", err)
	}
	tmpName := tmp.Name()

	if err := a.writeTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp container: %w", err)
	}

	// Release the reader before replacing the file it reads from.
	if err := a.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, a.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace container %s: %w", a.path, err)
	}
	return nil
}

func (a *Archive) writeTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, m := range a.members {
		header := m.header
		fw, err := zw.CreateHeader(&header)
		if err != nil {
			return fmt.Errorf("write header %s: %w", m.Name, err)
		}
		if _, err := fw.Write(m.Data); err != nil {
			return fmt.Errorf("write %s: %w", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize container: %w", err)
	}
	return nil
}

// Close releases the underlying reader. It is safe to call more than once.
func (a *Archive) Close() error {
	if a.reader == nil {
		return nil
	}
	err := a.reader.Close()
	a.reader = nil
	if err != nil {
		return fmt.Errorf("close container %s: %w", a.path, err)
	}
	return nil
}

// WithSuffix renames path to path+ProcessingSuffix and returns the new name.
func WithSuffix(path string) (string, error) {
	suffixed := path + ProcessingSuffix
	if err := os.Rename(path, suffixed); err != nil {
		return "", fmt.Errorf("mark %s in progress: %w", filepath.Base(path), err)
	}
	return suffixed, nil
}

// RestoreSuffix strips ProcessingSuffix from path and returns the original name.
func RestoreSuffix(path string) (string, error) {
	if !strings.HasSuffix(path, ProcessingSuffix) {
		return path, nil
	}
	original := strings.TrimSuffix(path, ProcessingSuffix)
	if err := os.Rename(path, original); err != nil {
		return "", fmt.Errorf("restore name of %s: %w", filepath.Base(path), err)
	}
	return original, nil
}
