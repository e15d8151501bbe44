package upload

import "memorylens/internal/model"

// Summary is the aggregate progress bar of the upload page.
type Summary struct {
	Total      int     `json:"total"`
	Processing int     `json:"processing"`
	Complete   int     `json:"complete"`
	Failed     int     `json:"failed"`
	Percent    float64 `json:"percent"`
}

func Summarize(records []model.UploadProgress) Summary {
	var s Summary
	for _, r := range records {
		s.Total++
		switch r.Status {
		case model.UploadUploading:
			s.Processing++
		case model.UploadComplete:
			s.Complete++
		case model.UploadError:
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.Percent = float64(s.Total-s.Processing) / float64(s.Total) * 100
	}
	return s
}
