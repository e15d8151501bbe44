// Package store holds the client-side image state for one signed-in user and
// mediates every call to the image backend.
package store

import (
	"context"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"memorylens/internal/api"
	"memorylens/internal/model"
	"memorylens/internal/notify"
	"memorylens/internal/session"
)

const (
	msgFetchFailed   = "Failed to fetch images"
	msgUploaded      = "Image uploaded successfully!"
	msgUploadFailed  = "Upload failed"
	msgDeleted       = "Image deleted"
	msgDeleteFailed  = "Failed to delete image"
	msgSearchFailed  = "Search failed"
	completeProgress = 100
)

// Backend is the subset of the REST client the store depends on.
type Backend interface {
	Upload(ctx context.Context, file model.File, onProgress api.ProgressFunc, opts ...api.RequestOption) (model.Image, error)
	List(ctx context.Context, filters url.Values, opts ...api.RequestOption) ([]model.Image, error)
	Get(ctx context.Context, id string, opts ...api.RequestOption) (model.Image, error)
	Delete(ctx context.Context, id string, opts ...api.RequestOption) error
	Search(ctx context.Context, query string, filters url.Values, opts ...api.RequestOption) ([]model.Image, error)
	Tags(ctx context.Context, opts ...api.RequestOption) ([]model.Tag, error)
}

type Store struct {
	backend   Backend
	tokens    session.TokenSource
	notifier  notify.Notifier
	observers []Observer
	newKey    func() string
	now       func() time.Time

	mu       sync.RWMutex
	images   []model.Image
	results  []model.Image
	tags     []model.Tag
	inflight int
	progress map[string]model.UploadProgress
	order    []string
	listSeq  uint64
	querySeq uint64
}

type Option func(*Store)

func WithTokens(ts session.TokenSource) Option {
	return func(s *Store) { s.tokens = ts }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		notifier: notify.Discard{},
		newKey:   progressKey,
		now:      time.Now,
		images:   []model.Image{},
		results:  []model.Image{},
		tags:     []model.Tag{},
		progress: make(map[string]model.UploadProgress),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// progressKey is time ordered so records sort by submission.
func progressKey() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uploads := make([]model.UploadProgress, 0, len(s.order))
	for _, k := range s.order {
		uploads = append(uploads, s.progress[k].Clone())
	}
	return State{
		Images:        model.CloneImages(s.images),
		SearchResults: model.CloneImages(s.results),
		PopularTags:   append([]model.Tag{}, s.tags...),
		Loading:       s.inflight > 0,
		Uploads:       uploads,
	}
}

// auth returns the bearer option for the current session, or nothing when no
// token is available. The backend decides whether anonymous calls are allowed.
func (s *Store) auth(ctx context.Context) []api.RequestOption {
	if s.tokens == nil {
		return nil
	}
	tok, err := s.tokens.Token(ctx)
	if err != nil || tok == "" {
		return nil
	}
	return []api.RequestOption{api.Bearer(tok)}
}

func (s *Store) begin(seq *uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	*seq++
	s.inflight++
	return *seq
}

// FetchImages replaces the collection with the backend listing.
func (s *Store) FetchImages(ctx context.Context, filters url.Values) Result[[]model.Image] {
	seq := s.begin(&s.listSeq)
	images, err := s.backend.List(ctx, filters, s.auth(ctx)...)

	s.mu.Lock()
	s.inflight--
	latest := seq == s.listSeq
	if err == nil && latest {
		s.images = model.CloneImages(images)
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("store_error op=fetch_images latest=%t error=%q", latest, err.Error())
		if !latest {
			return Result[[]model.Image]{Err: err, Superseded: true}
		}
		s.notifier.Error(msgFetchFailed)
		return failure[[]model.Image](err)
	}
	r := success(model.CloneImages(images))
	r.Superseded = !latest
	return r
}

// SearchImages replaces the search results with the matches for query in
// server order.
func (s *Store) SearchImages(ctx context.Context, query string, filters url.Values) Result[[]model.Image] {
	seq := s.begin(&s.querySeq)
	results, err := s.backend.Search(ctx, query, filters, s.auth(ctx)...)

	s.mu.Lock()
	s.inflight--
	latest := seq == s.querySeq
	if err == nil && latest {
		s.results = model.CloneImages(results)
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("store_error op=search_images query=%q latest=%t error=%q", query, latest, err.Error())
		if !latest {
			return Result[[]model.Image]{Err: err, Superseded: true}
		}
		s.notifier.Error(msgSearchFailed)
		return failure[[]model.Image](err)
	}
	r := success(model.CloneImages(results))
	r.Superseded = !latest
	return r
}

// FetchTags refreshes the popular tags. Failures are not reported to the user.
func (s *Store) FetchTags(ctx context.Context) Result[[]model.Tag] {
	tags, err := s.backend.Tags(ctx, s.auth(ctx)...)
	if err != nil {
		log.Printf("store_error op=fetch_tags error=%q", err.Error())
		return failure[[]model.Tag](err)
	}
	s.mu.Lock()
	s.tags = append([]model.Tag{}, tags...)
	s.mu.Unlock()
	return success(append([]model.Tag{}, tags...))
}

// FetchImage reads one record from the backend without changing state.
func (s *Store) FetchImage(ctx context.Context, id string) Result[model.Image] {
	img, err := s.backend.Get(ctx, id, s.auth(ctx)...)
	if err != nil {
		log.Printf("store_error op=fetch_image id=%s error=%q", id, err.Error())
		return failure[model.Image](err)
	}
	return success(img)
}

// DeleteImage removes id from the backend and then from the collection.
func (s *Store) DeleteImage(ctx context.Context, id string) Result[struct{}] {
	if err := s.backend.Delete(ctx, id, s.auth(ctx)...); err != nil {
		log.Printf("store_error op=delete_image id=%s error=%q", id, err.Error())
		s.notifier.Error(msgDeleteFailed)
		return failure[struct{}](err)
	}

	s.mu.Lock()
	s.images = withoutID(s.images, id)
	s.mu.Unlock()

	s.notifier.Success(msgDeleted)
	return success(struct{}{})
}

// UploadImage sends file to the backend, tracking it in a new progress record.
// On success the created record is placed at the head of the collection.
func (s *Store) UploadImage(ctx context.Context, file model.File) Result[model.Image] {
	key := s.newKey()
	now := s.now()
	s.setProgress(model.UploadProgress{
		Key:       key,
		Filename:  file.Name(),
		Progress:  0,
		Status:    model.UploadUploading,
		StartedAt: now,
		UpdatedAt: now,
	})

	img, err := s.backend.Upload(ctx, file, func(pct int) { s.advance(key, pct) }, s.auth(ctx)...)
	if err != nil {
		log.Printf("store_error op=upload_image key=%s filename=%q error=%q", key, file.Name(), err.Error())
		s.finish(key, func(p *model.UploadProgress) { p.Status = model.UploadError })
		s.notifier.Error(msgUploadFailed)
		return failure[model.Image](err)
	}

	s.mu.Lock()
	next := make([]model.Image, 0, len(s.images)+1)
	next = append(next, img.Clone())
	next = append(next, withoutID(s.images, img.ID)...)
	s.images = next
	s.mu.Unlock()

	s.finish(key, func(p *model.UploadProgress) {
		p.Status = model.UploadComplete
		p.Progress = completeProgress
		stored := img.Clone()
		p.Image = &stored
	})
	s.notifier.Success(msgUploaded)
	return success(img)
}

func (s *Store) setProgress(p model.UploadProgress) {
	s.mu.Lock()
	if _, exists := s.progress[p.Key]; !exists {
		s.order = append(s.order, p.Key)
	}
	s.progress[p.Key] = p
	s.mu.Unlock()
	s.emit(p)
}

// advance applies a transfer report. Reports never lower progress and are
// ignored once the record is terminal.
func (s *Store) advance(key string, pct int) {
	s.mu.Lock()
	p, exists := s.progress[key]
	if !exists || p.Status != model.UploadUploading || pct <= p.Progress || pct >= completeProgress {
		s.mu.Unlock()
		return
	}
	p.Progress = pct
	p.UpdatedAt = s.now()
	s.progress[key] = p
	s.mu.Unlock()
	s.emit(p)
}

func (s *Store) finish(key string, apply func(p *model.UploadProgress)) {
	s.mu.Lock()
	p := s.progress[key]
	apply(&p)
	p.UpdatedAt = s.now()
	s.progress[key] = p
	s.mu.Unlock()
	s.emit(p)
}

func (s *Store) emit(p model.UploadProgress) {
	for _, o := range s.observers {
		o.UploadChanged(p.Clone())
	}
}

func withoutID(images []model.Image, id string) []model.Image {
	out := make([]model.Image, 0, len(images))
	for _, img := range images {
		if img.ID != id {
			out = append(out, img)
		}
	}
	return out
}
