package vcr

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds session settings read from the environment. It lets a test
// suite be switched to re-record, or to strict replay in CI, without code
// changes.
type Config struct {
	RecordMode  string   `env:"VCR_RECORD_MODE" envDefault:"once"`
	MatchOn     []string `env:"VCR_MATCH_ON" envSeparator:","`
	ExhaustOnce bool     `env:"VCR_EXHAUST_ONCE"`
	CassetteDir string   `env:"VCR_CASSETTE_DIR" envDefault:"testdata/cassettes"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// Options converts c to session options.
func (c Config) Options() ([]Option, error) {
	mode, err := ParseRecordMode(c.RecordMode)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithRecordMode(mode),
		WithPlaybackRepeats(!c.ExhaustOnce),
	}
	if len(c.MatchOn) > 0 {
		opts = append(opts, WithMatchers(c.MatchOn...))
	}
	return opts, nil
}

// Path returns the path of the named cassette in CassetteDir.
func (c Config) Path(name string) string {
	return filepath.Join(c.CassetteDir, name)
}
