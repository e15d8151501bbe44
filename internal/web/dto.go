package web

import (
	"time"

	"memorylens/internal/model"
	"memorylens/internal/search"
	"memorylens/internal/store"
	"memorylens/internal/upload"
)

type ImageResponse struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename"`
	URL               string    `json:"url"`
	AssetURL          string    `json:"asset_url"`
	Tags              []string  `json:"tags"`
	Scene             *string   `json:"scene,omitempty"`
	Mood              *string   `json:"mood,omitempty"`
	Description       *string   `json:"description,omitempty"`
	Confidence        float64   `json:"confidence"`
	ConfidencePercent int       `json:"confidence_percent"`
	ConfidenceBand    string    `json:"confidence_band"`
	CreatedAt         time.Time `json:"created_at"`
}

type SearchViewResponse struct {
	Query     string          `json:"query"`
	Searching bool            `json:"searching"`
	Loading   bool            `json:"loading"`
	Heading   string          `json:"heading"`
	Empty     string          `json:"empty_message,omitempty"`
	Items     []ImageResponse `json:"items"`
	Tags      []model.Tag     `json:"popular_tags"`
}

type ResultResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Superseded bool   `json:"superseded,omitempty"`
}

type UploadOutcomeResponse struct {
	Filename string         `json:"filename"`
	Success  bool           `json:"success"`
	Image    *ImageResponse `json:"image,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query" binding:"max=500"`
}

func optionalPtr(o model.Optional[string]) *string {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}

func toImage(img model.Image, assetHost string) ImageResponse {
	tags := img.Tags
	if tags == nil {
		tags = []string{}
	}
	pct := search.ConfidencePercent(img.Confidence)
	return ImageResponse{
		ID:                img.ID,
		Filename:          img.Filename,
		URL:               img.URL,
		AssetURL:          img.AssetURL(assetHost),
		Tags:              tags,
		Scene:             optionalPtr(img.Scene),
		Mood:              optionalPtr(img.Mood),
		Description:       optionalPtr(img.Description),
		Confidence:        img.Confidence,
		ConfidencePercent: pct,
		ConfidenceBand:    string(search.ConfidenceBand(pct)),
		CreatedAt:         img.CreatedAt,
	}
}

func toImages(images []model.Image, assetHost string) []ImageResponse {
	out := make([]ImageResponse, len(images))
	for i, img := range images {
		out[i] = toImage(img, assetHost)
	}
	return out
}

// toResultCards applies the result-card confidence, which falls back to a
// default for unscored images.
func toResultCards(images []model.Image, assetHost string) []ImageResponse {
	out := toImages(images, assetHost)
	for i, img := range images {
		pct := search.ResultConfidence(img.Confidence)
		out[i].ConfidencePercent = pct
		out[i].ConfidenceBand = string(search.ConfidenceBand(pct))
	}
	return out
}

func toView(v search.View, assetHost string) SearchViewResponse {
	tags := v.Tags
	if tags == nil {
		tags = []model.Tag{}
	}
	return SearchViewResponse{
		Query:     v.Query,
		Searching: v.Searching,
		Loading:   v.Loading,
		Heading:   v.Heading,
		Empty:     v.Empty,
		Items:     toResultCards(v.Items, assetHost),
		Tags:      tags,
	}
}

func toResult[T any](r store.Result[T]) ResultResponse {
	out := ResultResponse{Success: r.Success, Superseded: r.Superseded}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func toOutcomes(b upload.Batch, assetHost string) []UploadOutcomeResponse {
	out := make([]UploadOutcomeResponse, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		item := UploadOutcomeResponse{Filename: o.Filename, Success: o.Result.Success}
		if o.Result.Success {
			img := toImage(o.Result.Data, assetHost)
			item.Image = &img
		} else if o.Result.Err != nil {
			item.Error = o.Result.Err.Error()
		}
		out = append(out, item)
	}
	return out
}
