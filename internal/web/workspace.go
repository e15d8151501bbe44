package web

import (
	"sync"

	"memorylens/internal/journal"
	"memorylens/internal/model"
	"memorylens/internal/notify"
	"memorylens/internal/search"
	"memorylens/internal/session"
	"memorylens/internal/store"
	"memorylens/internal/upload"
)

// Workspace is the client state of one signed-in subject.
type Workspace struct {
	Subject string
	Store   *store.Store
	Upload  *upload.Flow
	Search  *search.Flow
	Feed    *notify.Feed
}

// Registry creates workspaces on first use and keeps them for the life of the
// process.
type Registry struct {
	backend store.Backend
	hub     *Hub
	journal journal.Repository

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewRegistry wires every workspace to backend. hub and repo may be nil.
func NewRegistry(backend store.Backend, hub *Hub, repo journal.Repository) *Registry {
	return &Registry{
		backend: backend,
		hub:     hub,
		journal: repo,
		items:   make(map[string]*Workspace),
	}
}

func (r *Registry) For(subject string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.items[subject]; ok {
		return ws
	}
	ws := r.build(subject)
	r.items[subject] = ws
	return ws
}

func (r *Registry) build(subject string) *Workspace {
	feed := notify.NewFeed()
	opts := []store.Option{
		store.WithTokens(session.ContextTokens{}),
		store.WithNotifier(notify.Multi{feed, notify.Log{Prefix: "subject=" + subject + " "}}),
	}
	if r.hub != nil {
		hub := r.hub
		opts = append(opts, store.WithObserver(store.ObserverFunc(func(p model.UploadProgress) {
			hub.Send(subject, &Event{Type: EventUploadProgress, Payload: p})
		})))
	}
	if r.journal != nil {
		opts = append(opts, store.WithObserver(journal.Observer(r.journal, subject)))
	}

	st := store.New(r.backend, opts...)
	return &Workspace{
		Subject: subject,
		Store:   st,
		Upload:  upload.NewFlow(st),
		Search:  search.NewFlow(st),
		Feed:    feed,
	}
}
