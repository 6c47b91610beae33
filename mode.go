package vcr

import (
	"fmt"
	"strings"
)

// RecordMode controls whether a session may record new interactions and
// whether it may serve recorded ones.
type RecordMode int

// Possible values:
const (
	// Once replays an existing cassette and only records if the cassette did
	// not exist when the session began.
	Once RecordMode = iota

	// NewEpisodes replays recorded interactions and records any request that
	// has no match.
	NewEpisodes

	// None only replays. A request without a recorded match is blocked.
	None

	// All never replays and records every request. The interactions stored
	// in the cassette are replaced on the first recorded request.
	All
)

var modeNames = map[RecordMode]string{
	Once:        "once",
	NewEpisodes: "new_episodes",
	None:        "none",
	All:         "all",
}

// ParseRecordMode parses the name of a record mode, ignoring case.
func ParseRecordMode(s string) (RecordMode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, &ConfigurationError{Field: "record mode", Err: fmt.Errorf("unknown record mode %q", s)}
}

// String returns the name of the mode.
func (m RecordMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("RecordMode(%d)", int(m))
}

func (m RecordMode) valid() bool {
	_, ok := modeNames[m]
	return ok
}

// AllowRecord reports whether new interactions may be recorded. existed tells
// whether the cassette was stored on disk before the session began.
func (m RecordMode) AllowRecord(existed bool) bool {
	switch m {
	case Once:
		return !existed
	case NewEpisodes, All:
		return true
	default:
		return false
	}
}

// AllowReplay reports whether recorded interactions may be served.
func (m RecordMode) AllowReplay() bool {
	switch m {
	case Once, NewEpisodes, None:
		return true
	default:
		return false
	}
}
