// Package search keeps the query and search-mode state of the search page.
package search

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"memorylens/internal/model"
	"memorylens/internal/store"
)

// Source is implemented by *store.Store.
type Source interface {
	FetchImages(ctx context.Context, filters url.Values) store.Result[[]model.Image]
	SearchImages(ctx context.Context, query string, filters url.Values) store.Result[[]model.Image]
	FetchTags(ctx context.Context) store.Result[[]model.Tag]
	Snapshot() store.State
}

type Flow struct {
	src Source

	mu        sync.RWMutex
	query     string
	searching bool
}

func NewFlow(src Source) *Flow {
	return &Flow{src: src}
}

// Load fetches the full listing and then the popular tags.
func (f *Flow) Load(ctx context.Context) {
	f.src.FetchImages(ctx, nil)
	f.src.FetchTags(ctx)
}

func (f *Flow) SetQuery(q string) {
	f.mu.Lock()
	f.query = q
	f.mu.Unlock()
}

// Submit runs the current query. A blank query falls back to the full listing
// and leaves search mode.
func (f *Flow) Submit(ctx context.Context) store.Result[[]model.Image] {
	f.mu.Lock()
	q := f.query
	if strings.TrimSpace(q) == "" {
		f.searching = false
		f.mu.Unlock()
		return f.src.FetchImages(ctx, nil)
	}
	f.searching = true
	f.mu.Unlock()
	return f.src.SearchImages(ctx, q, nil)
}

// SelectTag searches for the tag label right away.
func (f *Flow) SelectTag(ctx context.Context, label string) store.Result[[]model.Image] {
	f.mu.Lock()
	f.query = label
	f.searching = true
	f.mu.Unlock()
	return f.src.SearchImages(ctx, label, nil)
}

// Clear resets the query, leaves search mode and reloads the full listing.
func (f *Flow) Clear(ctx context.Context) store.Result[[]model.Image] {
	f.mu.Lock()
	f.query = ""
	f.searching = false
	f.mu.Unlock()
	return f.src.FetchImages(ctx, nil)
}

// View is everything the search page renders.
type View struct {
	Query     string
	Searching bool
	Loading   bool
	Items     []model.Image
	Tags      []model.Tag
	Heading   string
	Empty     string
}

// View picks exactly one of the two sequences based on search mode.
func (f *Flow) View() View {
	f.mu.RLock()
	q, searching := f.query, f.searching
	f.mu.RUnlock()

	st := f.src.Snapshot()
	v := View{Query: q, Searching: searching, Loading: st.Loading, Tags: st.PopularTags}
	if searching {
		v.Items = st.SearchResults
		v.Heading = fmt.Sprintf("Search Results (%d)", len(v.Items))
		v.Empty = "No results found"
	} else {
		v.Items = st.Images
		v.Heading = fmt.Sprintf("All Images (%d)", len(v.Items))
		v.Empty = "No images yet"
	}
	if len(v.Items) > 0 {
		v.Empty = ""
	}
	return v
}

// ConfidencePercent renders a [0,1] confidence as a whole percentage.
func ConfidencePercent(c float64) int {
	return int(math.Round(c * 100))
}

// unscoredPercent is shown on result cards whose confidence is missing or zero.
const unscoredPercent = 90

// ResultConfidence is the percentage a search result card shows.
func ResultConfidence(c float64) int {
	if pct := ConfidencePercent(c); pct > 0 {
		return pct
	}
	return unscoredPercent
}

type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// ConfidenceBand buckets a percentage for the badge colour.
func ConfidenceBand(pct int) Band {
	switch {
	case pct >= 90:
		return BandHigh
	case pct >= 70:
		return BandMedium
	default:
		return BandLow
	}
}
