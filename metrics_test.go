package vcr_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/akupila/vcr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := vcr.NewMetrics(reg)
	path := filepath.Join(t.TempDir(), "metrics")
	n := &fakeNetwork{}

	require.NoError(t, vcr.Use(path, func(s *vcr.Session) error {
		roundTrip(t, s, n, request("GET", "http://example.com/a"))
		return nil
	}, vcr.WithMetrics(m)))
	require.NoError(t, vcr.Use(path, func(s *vcr.Session) error {
		roundTrip(t, s, n, request("GET", "http://example.com/a"))
		roundTrip(t, s, n, request("GET", "http://example.com/b"))
		return nil
	}, vcr.WithMetrics(m)))

	want := `
# HELP vcr_decisions_total Intercepted requests by record mode and action.
# TYPE vcr_decisions_total counter
vcr_decisions_total{action="block",mode="once"} 1
vcr_decisions_total{action="record",mode="once"} 1
vcr_decisions_total{action="replay",mode="once"} 1
# HELP vcr_persists_total Cassette writes by result.
# TYPE vcr_persists_total counter
vcr_persists_total{result="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want)))
}

func TestMetrics_Nil(t *testing.T) {
	n := &fakeNetwork{}
	require.NoError(t, vcr.Use(filepath.Join(t.TempDir(), "nil"), func(s *vcr.Session) error {
		roundTrip(t, s, n, request("GET", "http://example.com/a"))
		return nil
	}, vcr.WithMetrics(nil)))
}
