// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jeranaias/studymate/internal/errs"
)

// Document constraints enforced before any upload.
const (
	// MaxDocumentSize is the upload ceiling (20 MiB).
	MaxDocumentSize int64 = 20 << 20

	// DocumentExtension is the only accepted file extension.
	DocumentExtension = ".pdf"

	// DocumentMIME is the only accepted sniffed content type.
	DocumentMIME = "application/pdf"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a file offered for upload.
type Document struct {
	Name string
	Size int64
	data []byte
	mime string
}

// NewDocument wraps in-memory content. The content type is sniffed from data.
func NewDocument(name string, data []byte) *Document {
	return &Document{
		Name: filepath.Base(name),
		Size: int64(len(data)),
		data: data,
		mime: mimetype.Detect(data).String(),
	}
}

// OpenDocument reads a document from disk. Oversized files are rejected from
// their stat size without being read.
func OpenDocument(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Validation("file", "cannot read %s: %v", filepath.Base(path), err)
	}
	if info.IsDir() {
		return nil, errs.Validation("file", "%s is a directory", filepath.Base(path))
	}
	if info.Size() > MaxDocumentSize {
		return &Document{Name: filepath.Base(path), Size: info.Size()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Validation("file", "cannot read %s: %v", filepath.Base(path), err)
	}
	return NewDocument(path, data), nil
}

// MIME returns the sniffed content type.
func (d *Document) MIME() string {
	return d.mime
}

// Reader returns a fresh reader over the document content.
func (d *Document) Reader() io.Reader {
	return bytes.NewReader(d.data)
}

// Validate checks the document against the upload constraints.
func (d *Document) Validate() error {
	if d == nil {
		return errs.Validation("file", "no file selected")
	}
	if !strings.EqualFold(filepath.Ext(d.Name), DocumentExtension) {
		return errs.Validation("file", "only PDF files are supported, got %q", d.Name)
	}
	if d.Size > MaxDocumentSize {
		return errs.Validation("file", "%s is %s, the limit is %s",
			d.Name, FormatSize(d.Size), FormatSize(MaxDocumentSize))
	}
	if d.Size == 0 {
		return errs.Validation("file", "%s is empty", d.Name)
	}
	if !mimetype.EqualsAny(d.mime, DocumentMIME) {
		return errs.Validation("file", "%s does not look like a PDF (detected %s)", d.Name, d.mime)
	}
	return nil
}

// FormatSize renders a byte count the way the upload widget shows it.
func FormatSize(n int64) string {
	const mib = 1 << 20
	if n >= mib {
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	}
	return fmt.Sprintf("%.1f KiB", float64(n)/1024)
}
