package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"offline-llm-be/pkg/embedding"
	"offline-llm-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// ErrNotFound indicates no collection exists (on disk or in memory) for the
// given session ID.
var ErrNotFound = errors.New("session not found")

// Registry owns the lifecycle of per-session retrieval collections: creation,
// lookup, population, and deletion. It is injected into request handlers and
// the reaper rather than held as ambient process state, so each test can use
// a fresh registry.
//
// The per-session mutex returned by Lock is the single exclusion discipline
// shared by chat turns and the reaper.
type Registry struct {
	root     string
	embedder embedding.EmbeddingProvider

	handles    *cache.Cache // session id -> *store.Collection
	lastActive *cache.Cache // session id -> time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry(root string, embedder embedding.EmbeddingProvider) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions root: %w", err)
	}
	return &Registry{
		root:       root,
		embedder:   embedder,
		handles:    cache.New(cache.NoExpiration, 0),
		lastActive: cache.New(cache.NoExpiration, 0),
		locks:      make(map[string]*sync.Mutex),
	}, nil
}

// Lock returns the mutex guarding the given session. An in-flight request
// and the reaper always contend on the same mutex; Purge drops the entry, so
// a later Lock for the same ID mints a fresh one.
func (r *Registry) Lock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.locks[sessionID]; ok {
		return m
	}
	m := &sync.Mutex{}
	r.locks[sessionID] = m
	return m
}

func (r *Registry) dir(sessionID string) string {
	return filepath.Join(r.root, sessionID)
}

// Create allocates a new, empty retrieval collection scoped to sessionID.
// Idempotent: an existing collection is returned rather than erroring.
func (r *Registry) Create(sessionID string) (*store.Collection, error) {
	if col, found := r.handles.Get(sessionID); found {
		r.Touch(sessionID)
		return col.(*store.Collection), nil
	}

	col, err := store.OpenCollection(r.dir(sessionID), "session_"+sessionID, r.embedder)
	if err != nil {
		return nil, err
	}
	r.handles.Set(sessionID, col, cache.NoExpiration)
	r.Touch(sessionID)
	return col, nil
}

// Get returns the existing collection handle, or ErrNotFound if no on-disk
// collection exists for the ID. It never creates.
func (r *Registry) Get(sessionID string) (*store.Collection, error) {
	if col, found := r.handles.Get(sessionID); found {
		return col.(*store.Collection), nil
	}

	if _, err := os.Stat(r.dir(sessionID)); err != nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}

	col, err := store.OpenCollection(r.dir(sessionID), "session_"+sessionID, r.embedder)
	if err != nil {
		return nil, err
	}
	r.handles.Set(sessionID, col, cache.NoExpiration)
	return col, nil
}

// AddPassages appends passages to the session's collection, lazily creating
// it. Embedding backend failures surface as embedding.ErrUnavailable.
func (r *Registry) AddPassages(ctx context.Context, sessionID string, passages []store.Passage) error {
	col, err := r.Create(sessionID)
	if err != nil {
		return err
	}
	if err := col.AddPassages(ctx, passages); err != nil {
		return err
	}
	r.Touch(sessionID)
	return nil
}

// Query returns up to k passages from the session's collection.
func (r *Registry) Query(ctx context.Context, sessionID, text string, k int, mode store.SearchMode) ([]store.Passage, error) {
	col, err := r.Get(sessionID)
	if err != nil {
		return nil, err
	}
	results, err := col.Search(ctx, text, k, mode)
	if err != nil {
		return nil, err
	}
	r.Touch(sessionID)
	return results, nil
}

// Purge deletes the on-disk collection and any in-memory handle. Safe to
// call on a non-existent session. The cached handle is invalidated before
// the function returns, so a following Get observes ErrNotFound, never a
// stale handle.
func (r *Registry) Purge(sessionID string) error {
	if col, found := r.handles.Get(sessionID); found {
		col.(*store.Collection).Close()
	}
	r.handles.Delete(sessionID)
	r.lastActive.Delete(sessionID)

	if err := os.RemoveAll(r.dir(sessionID)); err != nil {
		return fmt.Errorf("purge session %q: %w", sessionID, err)
	}

	// The session is gone; keeping its mutex would leak one entry per ID
	// ever seen.
	r.mu.Lock()
	delete(r.locks, sessionID)
	r.mu.Unlock()
	return nil
}

// Touch refreshes the session's last-active timestamp.
func (r *Registry) Touch(sessionID string) {
	r.lastActive.Set(sessionID, time.Now(), cache.NoExpiration)
}

// LastActive returns a snapshot of tracked sessions and their last-active
// timestamps.
func (r *Registry) LastActive() map[string]time.Time {
	items := r.lastActive.Items()
	out := make(map[string]time.Time, len(items))
	for id, item := range items {
		out[id] = item.Object.(time.Time)
	}
	return out
}
