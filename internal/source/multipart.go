package source

import (
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

// Form wraps a file received in a multipart form.
type Form struct {
	header      *multipart.FileHeader
	contentType string
}

// NewForm trusts the declared part type and sniffs only when the browser sent
// none or a generic octet-stream.
func NewForm(fh *multipart.FileHeader) *Form {
	ct := baseType(fh.Header.Get("Content-Type"))
	if ct == "" || ct == "application/octet-stream" {
		if f, err := fh.Open(); err == nil {
			if mt, err := mimetype.DetectReader(f); err == nil {
				ct = baseType(mt.String())
			}
			f.Close()
		}
	}
	return &Form{header: fh, contentType: ct}
}

func (f *Form) Name() string                 { return f.header.Filename }
func (f *Form) Size() int64                  { return f.header.Size }
func (f *Form) ContentType() string          { return f.contentType }
func (f *Form) Open() (io.ReadCloser, error) { return f.header.Open() }

// FromForm collects every file under field in the order the browser sent them.
func FromForm(form *multipart.Form, field string) []*Form {
	if form == nil {
		return nil
	}
	headers := form.File[field]
	out := make([]*Form, 0, len(headers))
	for _, fh := range headers {
		out = append(out, NewForm(fh))
	}
	return out
}
