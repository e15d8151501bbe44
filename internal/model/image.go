package model

import (
	"io"
	"strings"
	"time"
)

// Image is the client-side copy of a record owned by the backend.
type Image struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	URL         string           `json:"url"` // relative to the asset host
	Tags        []string         `json:"tags"`
	Scene       Optional[string] `json:"scene"`
	Mood        Optional[string] `json:"mood"`
	Description Optional[string] `json:"description"`
	Confidence  float64          `json:"confidence"`
	CreatedAt   time.Time        `json:"created_at"`
}

// AssetURL resolves the stored relative url against host.
func (img Image) AssetURL(host string) string {
	if img.URL == "" {
		return ""
	}
	if strings.HasPrefix(img.URL, "http://") || strings.HasPrefix(img.URL, "https://") {
		return img.URL
	}
	host = strings.TrimRight(host, "/")
	if !strings.HasPrefix(img.URL, "/") {
		return host + "/" + img.URL
	}
	return host + img.URL
}

// Clone returns a copy that shares no slices with img.
func (img Image) Clone() Image {
	out := img
	if img.Tags != nil {
		out.Tags = append([]string(nil), img.Tags...)
	}
	return out
}

// CloneImages copies a slice of images. The result is never nil.
func CloneImages(in []Image) []Image {
	out := make([]Image, len(in))
	for i, img := range in {
		out[i] = img.Clone()
	}
	return out
}

// Tag is a popular label with its usage count.
type Tag struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// File is a single file offered to the upload flow.
type File interface {
	Name() string
	Size() int64
	// ContentType is the detected or declared media type, without parameters.
	ContentType() string
	Open() (io.ReadCloser, error)
}

// IsImage reports whether f declares an image/* content type.
func IsImage(f File) bool {
	return strings.HasPrefix(strings.ToLower(f.ContentType()), "image/")
}
