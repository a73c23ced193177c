// Package staging holds user-selected files between selection and
// submission. Staging performs no network I/O.
package staging

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

const octetStream = "application/octet-stream"

// File is a local file reference. It is treated as a value: the wizard
// replaces slots with new *File values and never mutates one in place.
type File struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	Path        string `json:"path,omitempty"`
	// Handle is the preview handle issued by a Stager on acceptance.
	Handle string `json:"-"`

	open func() (io.ReadCloser, error)
}

// Open returns the file's bytes.
func (f *File) Open() (io.ReadCloser, error) {
	if f.open != nil {
		return f.open()
	}
	if f.Path != "" {
		return os.Open(f.Path)
	}
	return nil, fmt.Errorf("file %s has no content source", f.Name)
}

// NewFile wraps in-memory content.
func NewFile(name, contentType string, data []byte) *File {
	return &File{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromPath stats a file on disk. The content type is declared from the
// extension, falling back to application/octet-stream.
func FromPath(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &File{
		Name:        info.Name(),
		Size:        info.Size(),
		ContentType: ContentTypeFor(path),
		Path:        path,
	}, nil
}

// ContentTypeFor maps a filename extension to a MIME type without parameters.
func ContentTypeFor(name string) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		return octetStream
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// MIMEType is the type to declare on upload.
func (f *File) MIMEType() string {
	if f.ContentType == "" {
		return octetStream
	}
	return f.ContentType
}

func (f *File) clone() *File {
	c := *f
	return &c
}
