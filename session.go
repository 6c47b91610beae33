package vcr

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/akupila/vcr/cassette"
	"github.com/akupila/vcr/match"
	"github.com/google/uuid"
)

// Action is the outcome of Intercept.
type Action int

// Possible values:
const (
	// Replay means the returned response must be served instead of making
	// the request.
	Replay Action = iota + 1

	// Record means the request must be made and its result passed to
	// RecordResult.
	Record

	// Block means the request must fail.
	Block
)

// String returns the lower case name of the action.
func (a Action) String() string {
	switch a {
	case Replay:
		return "replay"
	case Record:
		return "record"
	case Block:
		return "block"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// A Decision tells an interception adapter what to do with a request.
type Decision struct {
	Action Action
	// Response to serve. Set only for Replay.
	Response *cassette.Response
}

// A Filter modifies an interaction before it is stored.
//
// Filters are applied after the actual request, with the primary purpose
// being to remove sensitive data from the saved file.
type Filter func(in *cassette.Interaction)

// RemoveRequestHeader removes a header with the given name from the request.
// The name is case-insensitive.
func RemoveRequestHeader(name string) Filter {
	return func(in *cassette.Interaction) {
		in.Request.Header = in.Request.Header.Without(name)
	}
}

// RemoveResponseHeader removes a header with the given name from the
// response. The name is case-insensitive.
func RemoveResponseHeader(name string) Filter {
	return func(in *cassette.Interaction) {
		in.Response.Header = in.Response.Header.Without(name)
	}
}

type options struct {
	mode     RecordMode
	matchOn  []string
	registry *match.Registry
	reuse    bool
	filters  []Filter
	logger   *slog.Logger
	metrics  *Metrics
	codec    cassette.Codec
}

// An Option configures a Session.
type Option func(*options)

// WithRecordMode sets the record mode. The default is Once.
func WithRecordMode(m RecordMode) Option {
	return func(o *options) { o.mode = m }
}

// WithMatchers sets the names of the matchers used to find recorded
// interactions. The default is match.DefaultNames.
func WithMatchers(names ...string) Option {
	return func(o *options) { o.matchOn = names }
}

// WithRegistry sets the registry matcher names are resolved in. The default
// is match.Default.
func WithRegistry(r *match.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithPlaybackRepeats controls whether a recorded interaction may be served
// more than once. It is allowed by default; with allow false every
// interaction is served at most once per session.
func WithPlaybackRepeats(allow bool) Option {
	return func(o *options) { o.reuse = allow }
}

// WithFilters adds filters applied to recorded interactions, in order.
func WithFilters(filters ...Filter) Option {
	return func(o *options) { o.filters = append(o.filters, filters...) }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics reports decisions and persists to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCodec sets the codec the cassette is stored with. The default is
// cassette.YAML.
func WithCodec(c cassette.Codec) Option {
	return func(o *options) { o.codec = c }
}

// active holds the paths of cassettes with an open session.
var active = struct {
	sync.Mutex
	paths map[string]bool
}{paths: map[string]bool{}}

func acquire(key string) bool {
	active.Lock()
	defer active.Unlock()
	if active.paths[key] {
		return false
	}
	active.paths[key] = true
	return true
}

func release(key string) {
	active.Lock()
	defer active.Unlock()
	delete(active.paths, key)
}

// A Session is an open cassette together with the policy it is used with.
//
// A session is created by Begin and must be closed by End. Intercept and
// RecordResult may be called from multiple goroutines.
type Session struct {
	id       string
	key      string
	cassette *cassette.Cassette
	mode     RecordMode
	matchers match.Set
	reuse    bool
	existed  bool
	filters  []Filter
	logger   *slog.Logger
	metrics  *Metrics

	mu      sync.Mutex
	active  bool
	pending int
	cleared bool

	endOnce sync.Once
	endErr  error
}

// Begin loads the cassette stored at path and starts a session on it. A .yml
// extension is added to path if it has none.
//
// Begin returns a *ConfigurationError if the record mode or a matcher name is
// invalid, or if another session on the same cassette is still active. Errors
// loading the cassette are returned as *cassette.SerializationError or
// *cassette.PersistenceError.
func Begin(path string, opts ...Option) (*Session, error) {
	o := options{
		mode:     Once,
		matchOn:  match.DefaultNames,
		registry: match.Default,
		reuse:    true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.mode.valid() {
		return nil, &ConfigurationError{Field: "record mode", Err: fmt.Errorf("unknown record mode %d", int(o.mode))}
	}
	if o.registry == nil {
		o.registry = match.Default
	}
	set, err := o.registry.Resolve(o.matchOn...)
	if err != nil {
		return nil, &ConfigurationError{Field: "matchers", Err: err}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := cassette.New(path)
	key, err := filepath.Abs(c.Path())
	if err != nil {
		return nil, &ConfigurationError{Field: "path", Err: err}
	}
	if !acquire(key) {
		return nil, &ConfigurationError{Field: "path", Err: fmt.Errorf("cassette %s is already in use", c.Path())}
	}
	c, err = cassette.Load(path, cassette.WithCodec(o.codec))
	if err != nil {
		release(key)
		return nil, err
	}

	s := &Session{
		id:       uuid.NewString(),
		key:      key,
		cassette: c,
		mode:     o.mode,
		matchers: set,
		reuse:    o.reuse,
		existed:  c.Existed(),
		filters:  o.filters,
		metrics:  o.metrics,
		active:   true,
	}
	s.logger = o.logger.With(
		slog.String("session_id", s.id),
		slog.String("cassette", c.Path()),
	)
	s.logger.Debug("session started",
		slog.String("record_mode", s.mode.String()),
		slog.Any("matchers", set.Names()),
		slog.Bool("existed", s.existed),
		slog.Int("interactions", c.Len()),
	)
	return s, nil
}

// ID returns a unique identifier of the session, used in log records.
func (s *Session) ID() string { return s.id }

// Cassette returns the cassette of the session.
func (s *Session) Cassette() *cassette.Cassette { return s.cassette }

// Mode returns the record mode of the session.
func (s *Session) Mode() RecordMode { return s.mode }

// Matchers returns the matcher set of the session.
func (s *Session) Matchers() match.Set { return s.matchers }

// Len returns the number of interactions stored in the cassette.
func (s *Session) Len() int { return s.cassette.Len() }

// PlayCount returns the number of interactions replayed in this session.
func (s *Session) PlayCount() int { return s.cassette.PlayCount() }

// AllPlayed reports whether every stored interaction was replayed.
func (s *Session) AllPlayed() bool { return s.cassette.AllPlayed() }

// Intercept decides how req is handled.
//
// A recorded match is replayed if the record mode allows replay. Otherwise the
// request is cleared for recording if the mode allows it, and the caller must
// make the request and pass the result to RecordResult. If neither is
// allowed, Intercept returns a Block decision together with a
// *CannotOverwriteExistingCassetteError.
func (s *Session) Intercept(req *cassette.Request) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return Decision{}, ErrSessionClosed
	}

	if s.mode.AllowReplay() {
		if in, ok := s.cassette.FindAndConsume(req, s.matchers.Match, s.reuse); ok {
			s.decided(req, Replay)
			return Decision{Action: Replay, Response: &in.Response}, nil
		}
	}
	if s.mode.AllowRecord(s.existed) {
		s.pending++
		s.decided(req, Record)
		return Decision{Action: Record}, nil
	}
	s.decided(req, Block)
	return Decision{Action: Block}, &CannotOverwriteExistingCassetteError{
		Path:    s.cassette.Path(),
		Mode:    s.mode,
		Request: req,
	}
}

func (s *Session) decided(req *cassette.Request, a Action) {
	s.metrics.observeDecision(s.mode, a)
	s.logger.Debug("intercepted request",
		slog.String("method", req.Method),
		slog.String("url", req.URL),
		slog.String("action", a.String()),
	)
}

// RecordResult stores the result of a request that Intercept cleared for
// recording. Filters are applied before the interaction is stored; the stored
// interaction is returned. A request URL that does not parse is rejected and
// nothing is stored.
func (s *Session) RecordResult(req *cassette.Request, resp *cassette.Response) (cassette.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return cassette.Interaction{}, ErrSessionClosed
	}
	if s.pending == 0 {
		return cassette.Interaction{}, ErrUnexpectedRecord
	}
	s.pending--
	if _, err := req.URI(); err != nil {
		return cassette.Interaction{}, fmt.Errorf("record %s %q: %w", req.Method, req.URL, err)
	}

	in := cassette.Interaction{Request: req.Clone(), Response: resp.Clone()}
	for _, apply := range s.filters {
		apply(&in)
	}
	if s.mode == All && !s.cleared {
		s.cassette.Clear()
		s.cleared = true
	}
	s.cassette.Append(in)
	s.logger.Debug("recorded interaction",
		slog.String("method", in.Request.Method),
		slog.String("url", in.Request.URL),
		slog.Int("status", in.Response.StatusCode),
	)
	return in, nil
}

// abandon releases a Record decision whose request failed before a result
// could be recorded.
func (s *Session) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending > 0 {
		s.pending--
	}
}

// End persists the cassette if it changed and closes the session. Calling End
// more than once returns the result of the first call.
func (s *Session) End() error {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		defer release(s.key)

		dirty := s.cassette.Dirty()
		err := s.cassette.Persist()
		if dirty {
			s.metrics.observePersist(err)
		}
		if err != nil {
			s.logger.Error("persist cassette", slog.Any("error", err))
			s.endErr = err
			return
		}
		s.logger.Info("session ended",
			slog.Bool("persisted", dirty),
			slog.Int("interactions", s.cassette.Len()),
			slog.Int("play_count", s.cassette.PlayCount()),
		)
	})
	return s.endErr
}

// Use begins a session on path, runs fn and ends the session, also when fn
// returns an error or panics. Errors from fn and End are joined.
func Use(path string, fn func(*Session) error, opts ...Option) (err error) {
	s, err := Begin(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if endErr := s.End(); endErr != nil {
			err = errors.Join(err, endErr)
		}
	}()
	return fn(s)
}

// Wrap returns a function that wraps a unit of work in a session on path.
// Every call of the wrapped function gets its own session.
func Wrap(path string, opts ...Option) func(fn func(*Session) error) func() error {
	return func(fn func(*Session) error) func() error {
		return func() error {
			return Use(path, fn, opts...)
		}
	}
}

// TB is the subset of testing.TB used by Start.
type TB interface {
	Helper()
	Cleanup(func())
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// Start begins a session for the duration of a test. The session is ended
// when the test and its subtests complete; a failure to persist fails the
// test.
func Start(tb TB, path string, opts ...Option) *Session {
	tb.Helper()
	s, err := Begin(path, opts...)
	if err != nil {
		tb.Fatalf("Begin cassette %s: %v", path, err)
		return nil
	}
	tb.Cleanup(func() {
		if err := s.End(); err != nil {
			tb.Errorf("End cassette %s: %v", path, err)
		}
	})
	return s
}
