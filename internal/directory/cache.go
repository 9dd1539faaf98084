// Package directory caches the backend's speaker roster.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jwulff/speakerid/internal/api"
)

// UnknownSpeaker is displayed for ids the roster does not know.
const UnknownSpeaker = "Unknown Speaker"

// Lister fetches the full roster.
type Lister interface {
	ListSpeakers(ctx context.Context) ([]api.Speaker, error)
}

type roster struct {
	version  uint64
	speakers []api.Speaker
	byID     map[api.ID]api.Speaker
	loadedAt time.Time
}

// Cache holds the last fetched roster. A refresh builds a new roster and
// swaps it in with one pointer store, so readers never see a partial roster.
type Cache struct {
	current atomic.Pointer[roster]
	seq     atomic.Uint64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Refresh fetches the roster and replaces the cache. On error the previous
// roster stays in place.
func (c *Cache) Refresh(ctx context.Context, l Lister) error {
	speakers, err := l.ListSpeakers(ctx)
	if err != nil {
		return fmt.Errorf("refresh speaker directory: %w", err)
	}
	c.Replace(speakers)
	return nil
}

// Replace installs speakers as the new roster, sorted by name.
func (c *Cache) Replace(speakers []api.Speaker) {
	r := &roster{
		version:  c.seq.Add(1),
		speakers: make([]api.Speaker, len(speakers)),
		byID:     make(map[api.ID]api.Speaker, len(speakers)),
		loadedAt: time.Now(),
	}
	copy(r.speakers, speakers)
	sort.SliceStable(r.speakers, func(i, j int) bool {
		return strings.ToLower(r.speakers[i].Name) < strings.ToLower(r.speakers[j].Name)
	})
	for _, sp := range r.speakers {
		r.byID[sp.ID] = sp
	}
	c.current.Store(r)
}

// Lookup returns the name for id, or UnknownSpeaker. It never fails.
func (c *Cache) Lookup(id api.ID) string {
	if name, ok := c.Name(id); ok {
		return name
	}
	return UnknownSpeaker
}

// Name returns the name for id and whether the roster knows it.
func (c *Cache) Name(id api.ID) (string, bool) {
	r := c.current.Load()
	if r == nil || id == "" {
		return "", false
	}
	sp, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return sp.Name, true
}

// Get returns the full roster entry for id.
func (c *Cache) Get(id api.ID) (api.Speaker, bool) {
	r := c.current.Load()
	if r == nil {
		return api.Speaker{}, false
	}
	sp, ok := r.byID[id]
	return sp, ok
}

// DisplayName resolves the label for an utterance: the roster name, then the
// utterance's denormalized name, then UnknownSpeaker.
func (c *Cache) DisplayName(u api.Utterance) string {
	if name, ok := c.Name(u.SpeakerID); ok {
		return name
	}
	if u.SpeakerName != "" {
		return u.SpeakerName
	}
	return UnknownSpeaker
}

// Speakers returns a copy of the roster, sorted by name.
func (c *Cache) Speakers() []api.Speaker {
	r := c.current.Load()
	if r == nil {
		return nil
	}
	out := make([]api.Speaker, len(r.speakers))
	copy(out, r.speakers)
	return out
}

// Len returns the number of cached speakers.
func (c *Cache) Len() int {
	r := c.current.Load()
	if r == nil {
		return 0
	}
	return len(r.speakers)
}

// Loaded reports whether any refresh has succeeded.
func (c *Cache) Loaded() bool {
	return c.current.Load() != nil
}

// Version increases with every replacement. Zero means never loaded.
func (c *Cache) Version() uint64 {
	r := c.current.Load()
	if r == nil {
		return 0
	}
	return r.version
}

// LoadedAt returns when the current roster was installed.
func (c *Cache) LoadedAt() time.Time {
	r := c.current.Load()
	if r == nil {
		return time.Time{}
	}
	return r.loadedAt
}
