package cassette

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// MatchFunc reports whether a live request corresponds to a stored one.
type MatchFunc func(live, stored *Request) bool

// A Cassette is an ordered collection of recorded interactions together with
// the playback state of the current session.
//
// All methods are safe for concurrent use.
type Cassette struct {
	path    string
	codec   Codec
	existed bool

	mu           sync.Mutex
	interactions []Interaction
	playable     int
	played       map[int]bool
	dirty        bool
	playCount    int
}

// An Option configures a Cassette.
type Option func(*Cassette)

// WithCodec sets the codec used to load and persist the cassette. The default
// is YAML.
func WithCodec(codec Codec) Option {
	return func(c *Cassette) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// New returns an empty cassette stored at path. A .yml extension is added if
// path has none.
func New(path string, opts ...Option) *Cassette {
	if filepath.Ext(path) == "" {
		path += ".yml"
	}
	c := &Cassette{
		path:   path,
		codec:  YAML{},
		played: map[int]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the cassette stored at path. If nothing is stored there, an empty
// cassette is returned and Existed reports false.
func Load(path string, opts ...Option) (*Cassette, error) {
	c := New(path, opts...)
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: c.path, Err: err}
	}
	defer f.Close()

	interactions, err := c.codec.Decode(f)
	if err != nil {
		var se *SerializationError
		if errors.As(err, &se) {
			se.Path = c.path
			return nil, se
		}
		return nil, &SerializationError{Path: c.path, Index: -1, Err: err}
	}
	c.interactions = interactions
	c.playable = len(interactions)
	c.existed = true
	return c, nil
}

// Path returns the file the cassette is stored in.
func (c *Cassette) Path() string { return c.path }

// Existed reports whether the cassette was loaded from disk.
func (c *Cassette) Existed() bool { return c.existed }

// Len returns the number of stored interactions, played or not.
func (c *Cassette) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.interactions)
}

// PlayCount returns the number of interactions served from the cassette.
func (c *Cassette) PlayCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playCount
}

// AllPlayed reports whether every stored interaction has been played at least
// once.
func (c *Cassette) AllPlayed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.played) == len(c.interactions)
}

// Dirty reports whether the cassette changed since it was loaded or last
// persisted.
func (c *Cassette) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Interactions returns a copy of the stored interactions in storage order.
func (c *Cassette) Interactions() []Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Interaction, len(c.interactions))
	for i := range c.interactions {
		out[i] = c.interactions[i].Clone()
	}
	return out
}

// Append adds a new interaction at the end of the cassette. Appended
// interactions are not played back until the cassette is loaded again or
// rewound.
func (c *Cassette) Append(in Interaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interactions = append(c.interactions, in.Clone())
	c.dirty = true
}

// Clear removes all interactions and resets the playback state.
func (c *Cassette) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interactions = nil
	c.playable = 0
	c.played = map[int]bool{}
	c.dirty = true
}

// Rewind makes every stored interaction available for playback and resets
// the playback state, as if the cassette had just been loaded.
func (c *Cassette) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playable = len(c.interactions)
	c.played = map[int]bool{}
	c.playCount = 0
}

// FindAndConsume returns the first playable interaction whose request
// matches req.
//
// Unplayed interactions are considered first, in storage order. If none of
// them match and reuse is true, the first matching played interaction is
// returned instead; with reuse false an interaction is served at most once.
// Every successful call increments PlayCount.
func (c *Cassette) FindAndConsume(req *Request, match MatchFunc, reuse bool) (Interaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i := 0; i < c.playable; i++ {
		if !c.played[i] && match(req, &c.interactions[i].Request) {
			idx = i
			break
		}
	}
	if idx < 0 && reuse {
		for i := 0; i < c.playable; i++ {
			if c.played[i] && match(req, &c.interactions[i].Request) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return Interaction{}, false
	}
	c.played[idx] = true
	c.playCount++
	return c.interactions[idx].Clone(), true
}

// Persist writes the cassette to disk if it changed. The file is replaced
// atomically, so a failed write never leaves a truncated cassette behind.
func (c *Cassette) Persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	var buf bytes.Buffer
	if err := c.codec.Encode(&buf, c.interactions); err != nil {
		var se *SerializationError
		if errors.As(err, &se) {
			se.Path = c.path
			return se
		}
		return &SerializationError{Path: c.path, Index: -1, Err: err}
	}
	if err := writeFile(c.path, buf.Bytes()); err != nil {
		return &PersistenceError{Op: "persist", Path: c.path, Err: err}
	}
	c.dirty = false
	return nil
}

func writeFile(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, name); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
