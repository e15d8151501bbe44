package store

import "memorylens/internal/model"

// State is an immutable snapshot of the store.
type State struct {
	Images        []model.Image
	SearchResults []model.Image
	PopularTags   []model.Tag
	Loading       bool
	// Uploads lists progress records in submission order.
	Uploads []model.UploadProgress
}

func (s State) Progress(key string) (model.UploadProgress, bool) {
	for _, p := range s.Uploads {
		if p.Key == key {
			return p, true
		}
	}
	return model.UploadProgress{}, false
}

// Observer is told about every change to an upload progress record.
type Observer interface {
	UploadChanged(p model.UploadProgress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(p model.UploadProgress)

func (f ObserverFunc) UploadChanged(p model.UploadProgress) { f(p) }
