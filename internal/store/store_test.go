package store

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"memorylens/internal/api"
	"memorylens/internal/model"
	"memorylens/internal/notify"
	"memorylens/internal/session"
	"memorylens/internal/source"
)

type mockBackend struct {
	mock.Mock
}

// bearer renders the request options the store attached.
func bearer(opts []api.RequestOption) string {
	req := httptest.NewRequest("GET", "/", nil)
	for _, opt := range opts {
		opt(req)
	}
	return req.Header.Get("Authorization")
}

func (m *mockBackend) Upload(ctx context.Context, file model.File, onProgress api.ProgressFunc, opts ...api.RequestOption) (model.Image, error) {
	args := m.Called(ctx, file.Name(), onProgress, bearer(opts))
	return args.Get(0).(model.Image), args.Error(1)
}

func (m *mockBackend) List(ctx context.Context, filters url.Values, opts ...api.RequestOption) ([]model.Image, error) {
	args := m.Called(ctx, filters, bearer(opts))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Image), args.Error(1)
}

func (m *mockBackend) Get(ctx context.Context, id string, opts ...api.RequestOption) (model.Image, error) {
	args := m.Called(ctx, id, bearer(opts))
	return args.Get(0).(model.Image), args.Error(1)
}

func (m *mockBackend) Delete(ctx context.Context, id string, opts ...api.RequestOption) error {
	args := m.Called(ctx, id, bearer(opts))
	return args.Error(0)
}

func (m *mockBackend) Search(ctx context.Context, query string, filters url.Values, opts ...api.RequestOption) ([]model.Image, error) {
	args := m.Called(ctx, query, filters, bearer(opts))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Image), args.Error(1)
}

func (m *mockBackend) Tags(ctx context.Context, opts ...api.RequestOption) ([]model.Tag, error) {
	args := m.Called(ctx, bearer(opts))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tag), args.Error(1)
}

type progressLog struct {
	mu      sync.Mutex
	changes []model.UploadProgress
}

func (l *progressLog) UploadChanged(p model.UploadProgress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, p)
}

func images(ids ...string) []model.Image {
	out := make([]model.Image, len(ids))
	for i, id := range ids {
		out[i] = model.Image{ID: id, Filename: fmt.Sprintf("img%s.jpg", id)}
	}
	return out
}

func ids(imgs []model.Image) []string {
	out := make([]string, len(imgs))
	for i, img := range imgs {
		out[i] = img.ID
	}
	return out
}

type fixture struct {
	backend *mockBackend
	feed    *notify.Feed
	log     *progressLog
	store   *Store
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{backend: new(mockBackend), feed: notify.NewFeed(), log: &progressLog{}}
	opts = append([]Option{WithNotifier(f.feed), WithObserver(f.log)}, opts...)
	f.store = New(f.backend, opts...)
	return f
}

func (f *fixture) seed(t *testing.T, ids ...string) {
	t.Helper()
	f.backend.On("List", mock.Anything, url.Values(nil), "").Return(images(ids...), nil).Once()
	require.True(t, f.store.FetchImages(context.Background(), nil).Success)
}

func messages(feed *notify.Feed) []string {
	var out []string
	for _, n := range feed.Drain() {
		out = append(out, string(n.Level)+":"+n.Message)
	}
	return out
}

func TestUploadImage_Success(t *testing.T) {
	f := newFixture()
	f.seed(t, "1", "2")

	created := model.Image{ID: "3", Filename: "cat.jpg", URL: "/uploads/cat.jpg"}
	f.backend.On("Upload", mock.Anything, "cat.jpg", mock.Anything, "").
		Run(func(args mock.Arguments) {
			report := args.Get(2).(api.ProgressFunc)
			report(30)
			report(20) // never goes backwards
			report(60)
		}).
		Return(created, nil).Once()

	res := f.store.UploadImage(context.Background(), source.NewMemory("cat.jpg", "image/jpeg", []byte("x")))
	require.True(t, res.Success)
	assert.Equal(t, "cat.jpg", res.Data.Filename)

	st := f.store.Snapshot()
	assert.Equal(t, []string{"3", "1", "2"}, ids(st.Images))
	require.Len(t, st.Uploads, 1)
	rec := st.Uploads[0]
	assert.Equal(t, model.UploadComplete, rec.Status)
	assert.Equal(t, 100, rec.Progress)
	require.NotNil(t, rec.Image)
	assert.Equal(t, "3", rec.Image.ID)

	var progress []int
	for _, c := range f.log.changes {
		progress = append(progress, c.Progress)
	}
	assert.Equal(t, []int{0, 30, 60, 100}, progress)
	assert.Equal(t, model.UploadUploading, f.log.changes[0].Status)

	assert.Equal(t, []string{"success:Image uploaded successfully!"}, messages(f.feed))
	f.backend.AssertExpectations(t)
}

func TestUploadImage_DuplicateIDAppearsOnce(t *testing.T) {
	f := newFixture()
	f.seed(t, "1", "3")

	f.backend.On("Upload", mock.Anything, "dog.jpg", mock.Anything, "").
		Return(model.Image{ID: "3", Filename: "dog.jpg"}, nil).Once()

	f.store.UploadImage(context.Background(), source.NewMemory("dog.jpg", "image/jpeg", nil))
	assert.Equal(t, []string{"3", "1"}, ids(f.store.Snapshot().Images))
}

func TestUploadImage_Failure(t *testing.T) {
	f := newFixture()
	f.seed(t, "1", "2")

	f.backend.On("Upload", mock.Anything, "big.png", mock.Anything, "").
		Run(func(args mock.Arguments) { args.Get(2).(api.ProgressFunc)(40) }).
		Return(model.Image{}, errors.New("status 413")).Once()

	res := f.store.UploadImage(context.Background(), source.NewMemory("big.png", "image/png", nil))
	assert.False(t, res.Success)
	assert.Error(t, res.Err)

	st := f.store.Snapshot()
	assert.Equal(t, []string{"1", "2"}, ids(st.Images))
	require.Len(t, st.Uploads, 1)
	assert.Equal(t, model.UploadError, st.Uploads[0].Status)
	assert.Equal(t, 40, st.Uploads[0].Progress)
	assert.Nil(t, st.Uploads[0].Image)
	for _, c := range f.log.changes {
		assert.NotEqual(t, model.UploadComplete, c.Status)
	}
	assert.Equal(t, []string{"error:Upload failed"}, messages(f.feed))
}

func TestUploadImage_RecordsAccumulate(t *testing.T) {
	f := newFixture()
	f.backend.On("Upload", mock.Anything, mock.Anything, mock.Anything, "").
		Return(model.Image{ID: "a"}, nil).Once()
	f.backend.On("Upload", mock.Anything, mock.Anything, mock.Anything, "").
		Return(model.Image{}, errors.New("boom")).Once()

	f.store.UploadImage(context.Background(), source.NewMemory("a.jpg", "image/jpeg", nil))
	f.store.UploadImage(context.Background(), source.NewMemory("b.jpg", "image/jpeg", nil))

	st := f.store.Snapshot()
	require.Len(t, st.Uploads, 2)
	assert.Equal(t, "a.jpg", st.Uploads[0].Filename)
	assert.Equal(t, "b.jpg", st.Uploads[1].Filename)
	assert.NotEqual(t, st.Uploads[0].Key, st.Uploads[1].Key)

	got, found := st.Progress(st.Uploads[1].Key)
	assert.True(t, found)
	assert.Equal(t, model.UploadError, got.Status)
}

func TestFetchImages_FailureKeepsCollection(t *testing.T) {
	f := newFixture()
	f.seed(t, "1", "2")

	f.backend.On("List", mock.Anything, url.Values{"tag": {"x"}}, "").Return(nil, errors.New("down")).Once()
	res := f.store.FetchImages(context.Background(), url.Values{"tag": {"x"}})

	assert.False(t, res.Success)
	assert.Equal(t, []string{"1", "2"}, ids(f.store.Snapshot().Images))
	assert.False(t, f.store.Snapshot().Loading)
	assert.Equal(t, []string{"error:Failed to fetch images"}, messages(f.feed))
}

func TestFetchImages_SuccessIsSilent(t *testing.T) {
	f := newFixture()
	f.seed(t, "1")
	assert.Empty(t, messages(f.feed))
}

func TestDeleteImage(t *testing.T) {
	f := newFixture()
	f.seed(t, "41", "42", "43")

	f.backend.On("Delete", mock.Anything, "42", "").Return(nil).Once()
	res := f.store.DeleteImage(context.Background(), "42")
	require.True(t, res.Success)
	assert.Equal(t, []string{"41", "43"}, ids(f.store.Snapshot().Images))
	assert.Equal(t, []string{"success:Image deleted"}, messages(f.feed))

	f.backend.On("Delete", mock.Anything, "41", "").Return(errors.New("forbidden")).Once()
	res = f.store.DeleteImage(context.Background(), "41")
	assert.False(t, res.Success)
	assert.Equal(t, []string{"41", "43"}, ids(f.store.Snapshot().Images))
	assert.Equal(t, []string{"error:Failed to delete image"}, messages(f.feed))
}

func TestSearchImages(t *testing.T) {
	f := newFixture()

	f.backend.On("Search", mock.Anything, "sunset", url.Values(nil), "").Return(images("9", "3"), nil).Once()
	res := f.store.SearchImages(context.Background(), "sunset", nil)
	require.True(t, res.Success)
	assert.Equal(t, []string{"9", "3"}, ids(f.store.Snapshot().SearchResults))
	assert.Empty(t, messages(f.feed))

	f.backend.On("Search", mock.Anything, "rain", url.Values(nil), "").Return(nil, errors.New("down")).Once()
	res = f.store.SearchImages(context.Background(), "rain", nil)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"9", "3"}, ids(f.store.Snapshot().SearchResults))
	assert.Equal(t, []string{"error:Search failed"}, messages(f.feed))
}

func TestFetchTags_FailureIsSilent(t *testing.T) {
	f := newFixture()

	f.backend.On("Tags", mock.Anything, "").Return(nil, errors.New("network")).Once()
	res := f.store.FetchTags(context.Background())
	assert.False(t, res.Success)
	assert.Empty(t, f.store.Snapshot().PopularTags)
	assert.Empty(t, messages(f.feed))

	f.backend.On("Tags", mock.Anything, "").Return([]model.Tag{{Label: "sunset", Count: 3}}, nil).Once()
	f.store.FetchTags(context.Background())

	f.backend.On("Tags", mock.Anything, "").Return(nil, errors.New("network")).Once()
	f.store.FetchTags(context.Background())
	assert.Equal(t, []model.Tag{{Label: "sunset", Count: 3}}, f.store.Snapshot().PopularTags)
	assert.Empty(t, messages(f.feed))
}

func TestFetchImage_DoesNotMutate(t *testing.T) {
	f := newFixture()
	f.seed(t, "1")
	f.backend.On("Get", mock.Anything, "1", "").Return(model.Image{ID: "1", Mood: model.Some("calm")}, nil).Once()

	res := f.store.FetchImage(context.Background(), "1")
	require.True(t, res.Success)
	assert.True(t, res.Data.Mood.Valid)
	assert.False(t, f.store.Snapshot().Images[0].Mood.Valid)
}

func TestStore_AttachesBearerWhenAvailable(t *testing.T) {
	f := newFixture(WithTokens(session.StaticToken("tok")))
	f.backend.On("Tags", mock.Anything, "Bearer tok").Return([]model.Tag{}, nil).Once()
	assert.True(t, f.store.FetchTags(context.Background()).Success)

	anon := newFixture(WithTokens(session.ContextTokens{}))
	anon.backend.On("Tags", mock.Anything, "").Return([]model.Tag{}, nil).Once()
	assert.True(t, anon.store.FetchTags(context.Background()).Success)

	f.backend.AssertExpectations(t)
	anon.backend.AssertExpectations(t)
}

func TestFetchImages_StaleResponseIsDiscarded(t *testing.T) {
	f := newFixture()
	entered := make(chan struct{})
	release := make(chan struct{})

	f.backend.On("List", mock.Anything, url.Values{"n": {"1"}}, "").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(images("old"), nil).Once()
	f.backend.On("List", mock.Anything, url.Values{"n": {"2"}}, "").Return(images("new"), nil).Once()

	first := make(chan Result[[]model.Image], 1)
	go func() { first <- f.store.FetchImages(context.Background(), url.Values{"n": {"1"}}) }()
	<-entered
	assert.True(t, f.store.Snapshot().Loading)

	second := f.store.FetchImages(context.Background(), url.Values{"n": {"2"}})
	require.True(t, second.Success)
	assert.False(t, second.Superseded)
	assert.True(t, f.store.Snapshot().Loading, "first call still in flight")

	close(release)
	stale := <-first
	assert.True(t, stale.Success)
	assert.True(t, stale.Superseded)

	st := f.store.Snapshot()
	assert.Equal(t, []string{"new"}, ids(st.Images))
	assert.False(t, st.Loading)
}

func TestFetchImages_StaleFailureIsNotNotified(t *testing.T) {
	f := newFixture()
	entered := make(chan struct{})
	release := make(chan struct{})

	f.backend.On("List", mock.Anything, url.Values{"n": {"1"}}, "").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(nil, errors.New("timeout")).Once()
	f.backend.On("List", mock.Anything, url.Values{"n": {"2"}}, "").Return(images("new"), nil).Once()

	first := make(chan Result[[]model.Image], 1)
	go func() { first <- f.store.FetchImages(context.Background(), url.Values{"n": {"1"}}) }()
	<-entered

	require.True(t, f.store.FetchImages(context.Background(), url.Values{"n": {"2"}}).Success)

	close(release)
	stale := <-first
	assert.False(t, stale.Success)
	assert.True(t, stale.Superseded)
	assert.Error(t, stale.Err)

	assert.Equal(t, []string{"new"}, ids(f.store.Snapshot().Images))
	assert.Empty(t, messages(f.feed))
}

func TestSearchImages_StaleResponseIsDiscarded(t *testing.T) {
	f := newFixture()
	entered := make(chan struct{})
	release := make(chan struct{})

	f.backend.On("Search", mock.Anything, "old", url.Values(nil), "").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(images("1"), nil).Once()
	f.backend.On("Search", mock.Anything, "new", url.Values(nil), "").Return(images("2", "3"), nil).Once()

	first := make(chan Result[[]model.Image], 1)
	go func() { first <- f.store.SearchImages(context.Background(), "old", nil) }()
	<-entered
	assert.True(t, f.store.Snapshot().Loading)

	second := f.store.SearchImages(context.Background(), "new", nil)
	require.True(t, second.Success)
	assert.False(t, second.Superseded)
	assert.True(t, f.store.Snapshot().Loading, "first search still in flight")

	close(release)
	stale := <-first
	assert.True(t, stale.Success)
	assert.True(t, stale.Superseded)
	assert.Equal(t, []string{"1"}, ids(stale.Data))

	st := f.store.Snapshot()
	assert.Equal(t, []string{"2", "3"}, ids(st.SearchResults))
	assert.False(t, st.Loading)
}

func TestSearchImages_StaleFailureIsNotNotified(t *testing.T) {
	f := newFixture()
	entered := make(chan struct{})
	release := make(chan struct{})

	f.backend.On("Search", mock.Anything, "old", url.Values(nil), "").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(nil, errors.New("down")).Once()
	f.backend.On("Search", mock.Anything, "new", url.Values(nil), "").Return(images("2"), nil).Once()

	first := make(chan Result[[]model.Image], 1)
	go func() { first <- f.store.SearchImages(context.Background(), "old", nil) }()
	<-entered

	require.True(t, f.store.SearchImages(context.Background(), "new", nil).Success)

	close(release)
	stale := <-first
	assert.False(t, stale.Success)
	assert.True(t, stale.Superseded)

	st := f.store.Snapshot()
	assert.Equal(t, []string{"2"}, ids(st.SearchResults))
	assert.False(t, st.Loading)
	assert.Empty(t, messages(f.feed))
}

func TestSnapshot_IsIsolated(t *testing.T) {
	f := newFixture()
	f.seed(t, "1")
	st := f.store.Snapshot()
	st.Images[0].ID = "changed"
	assert.Equal(t, "1", f.store.Snapshot().Images[0].ID)
}
