package model

import "time"

type UploadStatus string

const (
	UploadUploading UploadStatus = "uploading"
	UploadComplete  UploadStatus = "complete"
	UploadError     UploadStatus = "error"
)

// Terminal reports whether no further transitions are possible.
func (s UploadStatus) Terminal() bool {
	return s == UploadComplete || s == UploadError
}

// UploadProgress tracks one upload for the lifetime of the session.
type UploadProgress struct {
	Key       string       `json:"key"`
	Filename  string       `json:"filename"`
	Progress  int          `json:"progress"`
	Status    UploadStatus `json:"status"`
	Image     *Image       `json:"data,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (p UploadProgress) Clone() UploadProgress {
	out := p
	if p.Image != nil {
		img := p.Image.Clone()
		out.Image = &img
	}
	return out
}
