// Package source turns local paths, browser form uploads and object storage
// listings into model.File values for the upload flow.
package source

import (
	"bytes"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"memorylens/internal/model"
)

// baseType strips media type parameters ("text/plain; charset=utf-8").
func baseType(ct string) string {
	ct = strings.TrimSpace(strings.Split(ct, ";")[0])
	return strings.ToLower(ct)
}

// Memory is an in-memory file, mostly useful for tests and piped input.
type Memory struct {
	name        string
	contentType string
	data        []byte
}

// NewMemory sniffs the content type when contentType is empty.
func NewMemory(name, contentType string, data []byte) *Memory {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return &Memory{name: name, contentType: baseType(contentType), data: data}
}

func (m *Memory) Name() string        { return m.name }
func (m *Memory) Size() int64         { return int64(len(m.data)) }
func (m *Memory) ContentType() string { return m.contentType }

func (m *Memory) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

var _ model.File = (*Memory)(nil)
