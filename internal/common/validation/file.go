package validation

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	stderrors "sme-onboarding/internal/common/errors"
)

const (
	DefaultMaxFileSize int64 = 5242880
	DefaultAcceptTypes       = "application/pdf,image/jpeg,image/png"
)

// FileOptions configures ValidateFile. Zero values fall back to the defaults.
type FileOptions struct {
	MaxSize     int64
	AcceptTypes string   // comma-separated MIME types
	Extensions  []string // optional per-document extension filter, e.g. ".pdf"
}

func (o FileOptions) withDefaults() FileOptions {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxFileSize
	}
	if o.AcceptTypes == "" {
		o.AcceptTypes = DefaultAcceptTypes
	}
	return o
}

// ValidateFile applies the acceptance contract for a staged file: size
// first, then declared MIME type. A file whose name ends in .pdf is
// accepted whenever application/pdf is on the list, since some platforms
// report PDFs with an empty or generic type.
func ValidateFile(name, contentType string, size int64, opts FileOptions) *stderrors.StandardError {
	opts = opts.withDefaults()

	if size > opts.MaxSize {
		return stderrors.NewFileTooLargeError(
			fmt.Sprintf("File size exceeds %s", FormatFileSize(opts.MaxSize)), size, opts.MaxSize)
	}

	allowed := strings.Split(opts.AcceptTypes, ",")
	if !acceptsType(allowed, contentType, name) {
		return stderrors.NewFileTypeNotAcceptedError(
			fmt.Sprintf("File type not accepted. Allowed: %s", opts.AcceptTypes), contentType)
	}

	if len(opts.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(name))
		ok := false
		for _, e := range opts.Extensions {
			if strings.EqualFold(e, ext) {
				ok = true
				break
			}
		}
		if !ok {
			return stderrors.NewFileTypeNotAcceptedError(
				fmt.Sprintf("File type not accepted. Allowed: %s", strings.Join(opts.Extensions, ",")), contentType)
		}
	}
	return nil
}

func acceptsType(allowed []string, contentType, name string) bool {
	pdfAllowed := false
	for _, t := range allowed {
		t = strings.TrimSpace(t)
		if t == contentType && contentType != "" {
			return true
		}
		if t == "application/pdf" {
			pdfAllowed = true
		}
	}
	return pdfAllowed && strings.HasSuffix(strings.ToLower(name), ".pdf")
}

var sizeUnits = []string{"Bytes", "KB", "MB"}

// FormatFileSize renders bytes with 1024-based units rounded to two
// decimals, e.g. 5242880 -> "5 MB", 1536 -> "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
