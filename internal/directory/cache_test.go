package directory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/speakerid/internal/api"
)

type fakeLister struct {
	speakers []api.Speaker
	err      error
	calls    int
}

func (f *fakeLister) ListSpeakers(ctx context.Context) ([]api.Speaker, error) {
	f.calls++
	return f.speakers, f.err
}

func TestLookupUnknownNeverFails(t *testing.T) {
	c := New()
	assert.Equal(t, UnknownSpeaker, c.Lookup("nope"))
	assert.Equal(t, UnknownSpeaker, c.Lookup(""))
	assert.False(t, c.Loaded())
	assert.Zero(t, c.Version())
}

func TestRefreshReplacesRoster(t *testing.T) {
	c := New()
	l := &fakeLister{speakers: []api.Speaker{{ID: "2", Name: "bob"}, {ID: "1", Name: "Alice"}}}

	require.NoError(t, c.Refresh(context.Background(), l))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "Alice", c.Lookup("1"))
	assert.Equal(t, []string{"Alice", "bob"}, names(c.Speakers()))
	v1 := c.Version()

	l.speakers = []api.Speaker{{ID: "3", Name: "Carol"}}
	require.NoError(t, c.Refresh(context.Background(), l))
	assert.Equal(t, UnknownSpeaker, c.Lookup("1"), "old entries must not survive a refresh")
	assert.Equal(t, "Carol", c.Lookup("3"))
	assert.Greater(t, c.Version(), v1)
}

func TestRefreshErrorKeepsPreviousRoster(t *testing.T) {
	c := New()
	c.Replace([]api.Speaker{{ID: "1", Name: "Alice"}})

	err := c.Refresh(context.Background(), &fakeLister{err: errors.New("boom")})
	require.Error(t, err)
	assert.Equal(t, "Alice", c.Lookup("1"))
}

func TestDisplayNameFallbacks(t *testing.T) {
	c := New()
	c.Replace([]api.Speaker{{ID: "1", Name: "Alice"}})

	assert.Equal(t, "Alice", c.DisplayName(api.Utterance{SpeakerID: "1", SpeakerName: "stale"}))
	assert.Equal(t, "Denorm", c.DisplayName(api.Utterance{SpeakerID: "9", SpeakerName: "Denorm"}))
	assert.Equal(t, UnknownSpeaker, c.DisplayName(api.Utterance{}))
}

func TestSpeakersReturnsCopy(t *testing.T) {
	c := New()
	c.Replace([]api.Speaker{{ID: "1", Name: "Alice"}})

	got := c.Speakers()
	got[0].Name = "Mallory"
	assert.Equal(t, "Alice", c.Lookup("1"))
}

func TestConcurrentReadersDuringReplace(t *testing.T) {
	c := New()
	roster := []api.Speaker{{ID: "1", Name: "Alice"}, {ID: "2", Name: "Bob"}}
	c.Replace(roster)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				// Each roster installed here has both ids, so a reader
				// must always resolve both.
				if c.Lookup("1") != "Alice" || c.Lookup("2") != "Bob" {
					t.Error("reader observed a partial roster")
					return
				}
			}
		}()
	}
	for j := 0; j < 200; j++ {
		c.Replace(roster)
	}
	wg.Wait()
}

func names(speakers []api.Speaker) []string {
	out := make([]string, len(speakers))
	for i, sp := range speakers {
		out[i] = sp.Name
	}
	return out
}
