// Package vcr records HTTP interactions into cassettes and replays them.
//
// The primary use-case is for tests where HTTP requests are sent once against
// the real service and replayed afterwards without reaching out to the
// network. A Session opens a cassette with a RecordMode that decides whether
// unknown requests may be recorded, and a set of matchers from package match
// that decides which recorded interaction answers a request. Recorder plugs a
// session into an http.Client:
//
//	s, err := vcr.Begin("testdata/example")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.End()
//
//	cli := vcr.NewRecorder(s).Client()
//	resp, err := cli.Get("https://example.com")
//
// Other clients can drive a session directly with Intercept and RecordResult.
package vcr
