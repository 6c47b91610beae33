package vcr_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akupila/vcr"
	"github.com/akupila/vcr/cassette"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"VCR_RECORD_MODE", "VCR_MATCH_ON", "VCR_EXHAUST_ONCE", "VCR_CASSETTE_DIR"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	c, err := vcr.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "once", c.RecordMode)
	require.Empty(t, c.MatchOn)
	require.False(t, c.ExhaustOnce)
	require.Equal(t, filepath.Join("testdata", "cassettes", "x"), c.Path("x"))
}

func TestLoadConfig_Session(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VCR_RECORD_MODE", "none")
	t.Setenv("VCR_MATCH_ON", "method,path")
	t.Setenv("VCR_EXHAUST_ONCE", "true")
	t.Setenv("VCR_CASSETTE_DIR", dir)

	c, err := vcr.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"method", "path"}, c.MatchOn)

	// Seed a cassette with one interaction.
	seed := cassette.New(c.Path("env"))
	seed.Append(cassette.Interaction{
		Request:  cassette.Request{Method: "GET", URL: "http://example.com/a?x=1"},
		Response: cassette.Response{StatusCode: 200},
	})
	require.NoError(t, seed.Persist())

	opts, err := c.Options()
	require.NoError(t, err)
	s, err := vcr.Begin(c.Path("env"), opts...)
	require.NoError(t, err)
	defer s.End()

	require.Equal(t, vcr.None, s.Mode())
	require.Equal(t, []string{"method", "path"}, s.Matchers().Names())

	d, err := s.Intercept(&cassette.Request{Method: "GET", URL: "http://other.com/a?x=2"})
	require.NoError(t, err)
	require.Equal(t, vcr.Replay, d.Action)

	d, err = s.Intercept(&cassette.Request{Method: "GET", URL: "http://other.com/a?x=2"})
	require.Error(t, err, "interaction is exhausted")
	require.Equal(t, vcr.Block, d.Action)
}

func TestConfig_InvalidMode(t *testing.T) {
	_, err := vcr.Config{RecordMode: "sometimes"}.Options()
	var ce *vcr.ConfigurationError
	require.ErrorAs(t, err, &ce)
}
