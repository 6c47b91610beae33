package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akupila/vcr/cassette"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, dir string) string {
	t.Helper()
	c := cassette.New(filepath.Join(dir, "seed.yml"))
	c.Append(cassette.Interaction{
		Request:  cassette.Request{Method: "get", URL: "http://example.com/a"},
		Response: cassette.Response{StatusCode: 200, Status: "OK", Body: []byte("hello")},
	})
	c.Append(cassette.Interaction{
		Request:  cassette.Request{Method: "POST", URL: "http://example.com/b"},
		Response: cassette.Response{StatusCode: 404, Status: "Not Found"},
	})
	require.NoError(t, c.Persist())
	return c.Path()
}

func TestInspect(t *testing.T) {
	path := seed(t, t.TempDir())

	out, err := run(t, "inspect", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "GET")
	require.Contains(t, lines[1], "http://example.com/a")
	require.Contains(t, lines[1], "200 OK")
	require.Contains(t, lines[1], "5 bytes")
	require.Contains(t, lines[2], "404 Not Found")
}

func TestInspect_Missing(t *testing.T) {
	_, err := run(t, "inspect", filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	good := seed(t, dir)
	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("request: ["), 0644))

	out, err := run(t, "verify", good)
	require.NoError(t, err)
	require.Contains(t, out, "ok   "+good+": 2 interactions")

	out, err = run(t, "verify", good, bad)
	require.Error(t, err)
	require.Contains(t, out, "FAIL "+bad)
}

func TestMatchers(t *testing.T) {
	out, err := run(t, "matchers")
	require.NoError(t, err)
	require.Contains(t, out, "method (default)\n")
	require.Contains(t, out, "json_body\n")
}
