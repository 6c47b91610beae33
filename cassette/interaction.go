package cassette

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// A Field is a single header line.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered multimap of header fields. Names are compared
// case-insensitively; the order of fields is preserved as captured.
type Header []Field

// HeaderFromHTTP converts an http.Header. Since http.Header is a map, names are
// sorted to keep the result deterministic. Values of a single name keep their
// order.
func HeaderFromHTTP(in http.Header) Header {
	names := make([]string, 0, len(in))
	for k := range in {
		names = append(names, k)
	}
	sort.Strings(names)
	var out Header
	for _, k := range names {
		for _, v := range in[k] {
			out = append(out, Field{Name: k, Value: v})
		}
	}
	return out
}

// HTTP returns the header as an http.Header.
func (h Header) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, f := range h {
		out.Add(f.Name, f.Value)
	}
	return out
}

// Get returns the first value for name, or an empty string.
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns all values for name in captured order.
func (h Header) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Names returns the distinct header names in order of first appearance. The
// spelling of the first occurrence is kept.
func (h Header) Names() []string {
	var out []string
	for _, f := range h {
		seen := false
		for _, n := range out {
			if strings.EqualFold(n, f.Name) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, f.Name)
		}
	}
	return out
}

// Without returns a copy of h with every field called name removed.
func (h Header) Without(name string) Header {
	var out Header
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	copy(out, h)
	return out
}

// A Request describes a captured outgoing request.
//
// A nil Body means the request had no body.
type Request struct {
	Method string
	URL    string
	Header Header
	Body   []byte
}

// URI returns the parsed request URL. Parsed URLs are cached by their string
// form, so matching a request against many stored ones parses each URL once.
func (r *Request) URI() (*url.URL, error) {
	return parseURL(r.URL)
}

const maxParsedURLs = 4096

var parsed = struct {
	sync.Mutex
	urls map[string]*url.URL
}{urls: map[string]*url.URL{}}

func parseURL(raw string) (*url.URL, error) {
	parsed.Lock()
	u, ok := parsed.urls[raw]
	parsed.Unlock()
	if !ok {
		var err error
		u, err = url.Parse(raw)
		if err != nil {
			return nil, err
		}
		parsed.Lock()
		if len(parsed.urls) >= maxParsedURLs {
			parsed.urls = map[string]*url.URL{}
		}
		parsed.urls[raw] = u
		parsed.Unlock()
	}
	cp := *u
	if u.User != nil {
		ui := *u.User
		cp.User = &ui
	}
	return &cp, nil
}

// Clone returns a deep copy of r.
func (r *Request) Clone() Request {
	return Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header.Clone(),
		Body:   cloneBytes(r.Body),
	}
}

// A Response describes a captured response.
//
// Status is the reason phrase without the code, for example "Not Found".
// Chunked records whether the body was sent with chunked transfer encoding.
type Response struct {
	StatusCode int
	Status     string
	Header     Header
	Body       []byte
	Chunked    bool
}

// Clone returns a deep copy of r.
func (r *Response) Clone() Response {
	return Response{
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Header:     r.Header.Clone(),
		Body:       cloneBytes(r.Body),
		Chunked:    r.Chunked,
	}
}

// An Interaction is a single recorded request paired with its response.
//
// Interactions are stored by value and copied on every boundary of a
// Cassette, so a stored interaction is never changed after it was appended.
type Interaction struct {
	Request  Request
	Response Response
}

// Clone returns a deep copy of i.
func (i *Interaction) Clone() Interaction {
	return Interaction{
		Request:  i.Request.Clone(),
		Response: i.Response.Clone(),
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
