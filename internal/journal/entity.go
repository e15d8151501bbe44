package journal

import (
	"time"

	"memorylens/internal/model"
)

// Entry is the persisted terminal outcome of one upload.
type Entry struct {
	Key        string    `gorm:"column:progress_key;primaryKey;size:64" json:"key"`
	Subject    string    `gorm:"column:subject;index;size:128" json:"-"`
	Filename   string    `gorm:"column:filename" json:"filename"`
	Status     string    `gorm:"column:status;size:16" json:"status"`
	Progress   int       `gorm:"column:progress" json:"progress"`
	ImageID    string    `gorm:"column:image_id" json:"image_id,omitempty"`
	StartedAt  time.Time `gorm:"column:started_at" json:"started_at"`
	FinishedAt time.Time `gorm:"column:finished_at;index" json:"finished_at"`
}

func (Entry) TableName() string { return "upload_journal" }

func entryFrom(subject string, p model.UploadProgress) *Entry {
	e := &Entry{
		Key:        p.Key,
		Subject:    subject,
		Filename:   p.Filename,
		Status:     string(p.Status),
		Progress:   p.Progress,
		StartedAt:  p.StartedAt.UTC(),
		FinishedAt: p.UpdatedAt.UTC(),
	}
	if p.Image != nil {
		e.ImageID = p.Image.ID
	}
	return e
}
