package staging

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStager(t *testing.T) *Stager {
	return NewStager(validation.FileOptions{}, logger.NewTestLogger(t))
}

func TestStager_AcceptIssuesHandle(t *testing.T) {
	s := newTestStager(t)
	src := NewFile("license.pdf", "application/pdf", []byte("%PDF-1.4"))

	staged, err := s.Accept(src, s.Defaults())
	require.Nil(t, err)
	assert.NotEmpty(t, staged.Handle)
	assert.Empty(t, src.Handle, "source must not be mutated")
	assert.Equal(t, 1, s.Live())

	got, ok := s.Lookup(staged.Handle)
	require.True(t, ok)
	assert.Equal(t, "license.pdf", got.Name)

	rc, openErr := staged.Open()
	require.NoError(t, openErr)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestStager_RejectionRegistersNothing(t *testing.T) {
	s := newTestStager(t)

	big := &File{Name: "huge.pdf", Size: 6 * 1024 * 1024, ContentType: "application/pdf"}
	staged, err := s.Accept(big, s.Defaults())
	assert.Nil(t, staged)
	require.NotNil(t, err)
	assert.Equal(t, stderrors.ErrCodeFileTooLarge, err.Code)
	assert.Equal(t, "File size exceeds 5 MB", err.Message)

	txt := NewFile("notes.txt", "text/plain", []byte("hi"))
	_, err = s.Accept(txt, s.Defaults())
	require.NotNil(t, err)
	assert.Equal(t, stderrors.ErrCodeFileTypeNotAccepted, err.Code)

	assert.Equal(t, 0, s.Live())
}

func TestStager_Release(t *testing.T) {
	s := newTestStager(t)
	a, _ := s.Accept(NewFile("a.png", "image/png", []byte{1}), s.Defaults())
	b, _ := s.Accept(NewFile("b.png", "image/png", []byte{2}), s.Defaults())
	require.Equal(t, 2, s.Live())

	s.Release(a.Handle)
	_, ok := s.Lookup(a.Handle)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Live())

	s.Release("unknown")
	s.Release("")
	assert.Equal(t, 1, s.Live())

	s.ReleaseAll()
	_, ok = s.Lookup(b.Handle)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Live())
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "Statement.PDF")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o600))
	bin := filepath.Join(dir, "blob.qqq")
	require.NoError(t, os.WriteFile(bin, []byte("x"), 0o600))

	f, err := FromPath(pdf)
	require.NoError(t, err)
	assert.Equal(t, "Statement.PDF", f.Name)
	assert.Equal(t, int64(4), f.Size)
	assert.Equal(t, "application/pdf", f.ContentType)

	f, err = FromPath(bin)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", f.ContentType)

	_, err = FromPath(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	_, err = FromPath(dir)
	assert.Error(t, err)
}

func TestFile_MIMEType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", (&File{Name: "x"}).MIMEType())
	assert.Equal(t, "image/png", (&File{Name: "x", ContentType: "image/png"}).MIMEType())
}
