// Package upload drives batches of files through the store one at a time.
package upload

import (
	"context"
	"log"
	"net/url"
	"sync"

	"memorylens/internal/model"
	"memorylens/internal/store"
)

// RecentLimit bounds the recent uploads strip on the upload page.
const RecentLimit = 6

// Uploader is implemented by *store.Store.
type Uploader interface {
	UploadImage(ctx context.Context, file model.File) store.Result[model.Image]
	FetchImages(ctx context.Context, filters url.Values) store.Result[[]model.Image]
}

type Outcome struct {
	Filename string
	Result   store.Result[model.Image]
}

// Batch is what happened to one set of submitted files.
type Batch struct {
	Outcomes []Outcome
	// Skipped holds names of files that were not images.
	Skipped []string
	// Pending holds names never started because ctx ended first.
	Pending []string
}

func (b Batch) Failed() int {
	n := 0
	for _, o := range b.Outcomes {
		if !o.Result.Success {
			n++
		}
	}
	return n
}

type Flow struct {
	uploader Uploader

	// batch serializes uploads across concurrent HandleFiles calls.
	batch sync.Mutex

	mu     sync.RWMutex
	recent []model.Image
}

func NewFlow(u Uploader) *Flow {
	return &Flow{uploader: u, recent: []model.Image{}}
}

// LoadRecent seeds the recent strip with the newest images from the backend.
func (f *Flow) LoadRecent(ctx context.Context) store.Result[[]model.Image] {
	res := f.uploader.FetchImages(ctx, nil)
	if res.Success && !res.Superseded {
		f.mu.Lock()
		f.recent = model.CloneImages(head(res.Data, RecentLimit))
		f.mu.Unlock()
	}
	return res
}

// HandleFiles uploads the image files in receipt order, waiting for each to
// finish before starting the next. Non-image files are skipped without a
// progress record or network call.
func (f *Flow) HandleFiles(ctx context.Context, files []model.File) Batch {
	f.batch.Lock()
	defer f.batch.Unlock()

	var b Batch
	for i, file := range files {
		if !model.IsImage(file) {
			b.Skipped = append(b.Skipped, file.Name())
			continue
		}
		if ctx.Err() != nil {
			for _, rest := range files[i:] {
				if model.IsImage(rest) {
					b.Pending = append(b.Pending, rest.Name())
				}
			}
			log.Printf("upload_batch_stopped pending=%d error=%q", len(b.Pending), ctx.Err().Error())
			break
		}

		res := f.uploader.UploadImage(ctx, file)
		b.Outcomes = append(b.Outcomes, Outcome{Filename: file.Name(), Result: res})
		if res.Success {
			f.pushRecent(res.Data)
		}
	}
	return b
}

func (f *Flow) pushRecent(img model.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := make([]model.Image, 0, RecentLimit)
	next = append(next, img.Clone())
	next = append(next, f.recent...)
	f.recent = head(next, RecentLimit)
}

// Recent returns at most RecentLimit images, newest first.
func (f *Flow) Recent() []model.Image {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return model.CloneImages(f.recent)
}

func head(images []model.Image, n int) []model.Image {
	if len(images) > n {
		return images[:n]
	}
	return images
}
