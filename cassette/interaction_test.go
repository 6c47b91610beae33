package cassette_test

import (
	"net/http"
	"testing"

	"github.com/akupila/vcr/cassette"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	h := cassette.Header{
		{Name: "Accept", Value: "a"},
		{Name: "X-Trace", Value: "1"},
		{Name: "accept", Value: "b"},
	}

	if got := h.Get("ACCEPT"); got != "a" {
		t.Errorf("Get() = %q, want %q", got, "a")
	}
	if diff := cmp.Diff([]string{"a", "b"}, h.Values("Accept")); diff != "" {
		t.Errorf("Values() mismatch (-want, +got)\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Accept", "X-Trace"}, h.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want, +got)\n%s", diff)
	}
	if diff := cmp.Diff(cassette.Header{{Name: "X-Trace", Value: "1"}}, h.Without("accept")); diff != "" {
		t.Errorf("Without() mismatch (-want, +got)\n%s", diff)
	}
}

func TestHeaderFromHTTP(t *testing.T) {
	in := http.Header{}
	in.Add("X-B", "2")
	in.Add("X-A", "1")
	in.Add("X-B", "3")

	want := cassette.Header{
		{Name: "X-A", Value: "1"},
		{Name: "X-B", Value: "2"},
		{Name: "X-B", Value: "3"},
	}
	got := cassette.HeaderFromHTTP(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("HeaderFromHTTP() mismatch (-want, +got)\n%s", diff)
	}
	if diff := cmp.Diff(in, got.HTTP()); diff != "" {
		t.Errorf("HTTP() mismatch (-want, +got)\n%s", diff)
	}
}

func TestRequestURI(t *testing.T) {
	r := cassette.Request{URL: "https://user:pw@example.com:8443/p?q=1"}
	u, err := r.URI()
	require.NoError(t, err)
	if u.Hostname() != "example.com" || u.Port() != "8443" || u.Path != "/p" {
		t.Errorf("URI() = %v", u)
	}

	// Changing the returned URL does not affect later calls.
	u.Path = "/changed"
	u.User = nil
	again, err := r.URI()
	require.NoError(t, err)
	require.Equal(t, "https://user:pw@example.com:8443/p?q=1", again.String())

	bad := cassette.Request{URL: "http://[::1"}
	_, err = bad.URI()
	require.Error(t, err)
}
