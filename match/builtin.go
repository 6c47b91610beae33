package match

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/akupila/vcr/cassette"
	"github.com/google/go-cmp/cmp"
)

var builtins = map[string]Func{
	"method":         Method,
	"scheme":         Scheme,
	"host":           Host,
	"port":           Port,
	"path":           Path,
	"query":          Query,
	"uri":            URI,
	"headers":        Headers,
	"headers_subset": HeadersSubset,
	"body":           Body,
	"json_body":      JSONBody,
}

// Method compares request methods, ignoring case.
func Method(live, stored *cassette.Request) bool {
	return strings.EqualFold(live.Method, stored.Method)
}

// urls parses both request URLs. If either does not parse, ok is false and
// URL matchers compare the raw strings instead.
func urls(live, stored *cassette.Request) (a, b *url.URL, ok bool) {
	a, errA := live.URI()
	b, errB := stored.URI()
	return a, b, errA == nil && errB == nil
}

// Scheme compares URL schemes, ignoring case.
func Scheme(live, stored *cassette.Request) bool {
	a, b, ok := urls(live, stored)
	if !ok {
		return live.URL == stored.URL
	}
	return strings.EqualFold(a.Scheme, b.Scheme)
}

// Host compares host names without the port, ignoring case.
func Host(live, stored *cassette.Request) bool {
	a, b, ok := urls(live, stored)
	if !ok {
		return live.URL == stored.URL
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}

// Port compares ports. A missing port equals the default port of the scheme,
// so http://host and http://host:80 match.
func Port(live, stored *cassette.Request) bool {
	a, b, ok := urls(live, stored)
	if !ok {
		return live.URL == stored.URL
	}
	return effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	}
	return ""
}

// Path compares the escaped URL paths exactly, so /a%2Fb and /a/b differ.
func Path(live, stored *cassette.Request) bool {
	a, b, ok := urls(live, stored)
	if !ok {
		return live.URL == stored.URL
	}
	return a.EscapedPath() == b.EscapedPath()
}

// Query compares query strings as unordered collections of key/value pairs.
// Repeated pairs are counted, so a=1&a=1 does not match a=1. Pairs that cannot
// be decoded are compared verbatim.
func Query(live, stored *cassette.Request) bool {
	a, b, ok := urls(live, stored)
	if !ok {
		return live.URL == stored.URL
	}
	pa, pb := queryPairs(a.RawQuery), queryPairs(b.RawQuery)
	if len(pa) != len(pb) {
		return false
	}
	for i := range pa {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}

// queryPairs splits a raw query the way url.ParseQuery does. Decoded pairs
// are keyed "key\x00value"; pairs ParseQuery rejects are kept as "\x01raw".
// A parsed URL never contains control characters, so the two never collide.
func queryPairs(raw string) []string {
	var out []string
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		if entry, ok := decodePair(pair); ok {
			out = append(out, entry)
		} else {
			out = append(out, "\x01"+pair)
		}
	}
	sort.Strings(out)
	return out
}

func decodePair(pair string) (string, bool) {
	if strings.Contains(pair, ";") {
		return "", false
	}
	key, value, _ := strings.Cut(pair, "=")
	key, err := url.QueryUnescape(key)
	if err != nil {
		return "", false
	}
	value, err = url.QueryUnescape(value)
	if err != nil {
		return "", false
	}
	return key + "\x00" + value, true
}

// URI compares the full URL strings.
func URI(live, stored *cassette.Request) bool {
	return live.URL == stored.URL
}

// Headers compares all headers. Names are case-insensitive; the values of
// each name must be equal and in the same order.
func Headers(live, stored *cassette.Request) bool {
	return cmp.Equal(headerMap(live.Header), headerMap(stored.Header))
}

// HeadersSubset passes if every header of the stored request is present in
// the live request with the same values. Extra live headers are ignored.
func HeadersSubset(live, stored *cassette.Request) bool {
	for _, name := range stored.Header.Names() {
		if !cmp.Equal(live.Header.Values(name), stored.Header.Values(name)) {
			return false
		}
	}
	return true
}

// HeadersNamed returns a matcher comparing only the named headers.
func HeadersNamed(names ...string) Func {
	return func(live, stored *cassette.Request) bool {
		for _, name := range names {
			if !cmp.Equal(live.Header.Values(name), stored.Header.Values(name)) {
				return false
			}
		}
		return true
	}
}

func headerMap(h cassette.Header) map[string][]string {
	out := make(map[string][]string)
	for _, f := range h {
		k := strings.ToLower(f.Name)
		out[k] = append(out[k], f.Value)
	}
	return out
}

// Body compares bodies byte for byte. An absent body equals an empty one.
func Body(live, stored *cassette.Request) bool {
	return bytes.Equal(live.Body, stored.Body)
}

// BodyWith returns a body matcher that compares bodies after passing both
// through normalize. If normalize fails for either body, the raw bytes are
// compared instead.
func BodyWith(normalize func([]byte) ([]byte, error)) Func {
	return func(live, stored *cassette.Request) bool {
		a, errA := normalize(live.Body)
		b, errB := normalize(stored.Body)
		if errA != nil || errB != nil {
			return bytes.Equal(live.Body, stored.Body)
		}
		return bytes.Equal(a, b)
	}
}

// JSONBody compares bodies as JSON values, so key order and whitespace do not
// matter. Bodies that are not valid JSON are compared byte for byte.
func JSONBody(live, stored *cassette.Request) bool {
	var a, b interface{}
	if json.Unmarshal(live.Body, &a) != nil || json.Unmarshal(stored.Body, &b) != nil {
		return bytes.Equal(live.Body, stored.Body)
	}
	return cmp.Equal(a, b)
}
