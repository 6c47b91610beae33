package vcr

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/akupila/vcr/cassette"
)

// NewRecorder is a convenience function for creating a Recorder that sends
// real requests through http.DefaultTransport.
func NewRecorder(s *Session) *Recorder {
	return &Recorder{
		Session:   s,
		Transport: http.DefaultTransport,
	}
}

// Recorder wraps a http.RoundTripper by recording requests that go through it
// into a session, or replaying them from it.
type Recorder struct {
	// Session the requests are intercepted by. Required.
	Session *Session

	// Transport to use for real request.
	// If nil, http.DefaultTransport is used.
	Transport http.RoundTripper
}

var _ http.RoundTripper = (*Recorder)(nil)

// Client returns an http.Client using r as its transport.
func (r *Recorder) Client() *http.Client {
	return &http.Client{Transport: r}
}

// RoundTrip implements http.RoundTripper.
//
// The behavior depends on the decision of the session:
//
//	Replay:   The recorded response is returned without network traffic.
//	Record:   The request is sent through Transport and the result stored.
//	Block:    A *CannotOverwriteExistingCassetteError is returned.
func (r *Recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := captureRequest(req)
	if err != nil {
		return nil, err
	}

	d, err := r.Session.Intercept(out)
	if err != nil {
		return nil, err
	}
	if d.Action == Replay {
		return buildResponse(req, d.Response), nil
	}

	transport := r.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	// Send request
	resp, err := transport.RoundTrip(req)
	if err != nil {
		r.Session.abandon()
		return nil, err
	}

	// Construct response
	bodyIn, err := io.ReadAll(resp.Body)
	if err != nil {
		resp.Body.Close()
		r.Session.abandon()
		return nil, err
	}
	if err := resp.Body.Close(); err != nil {
		r.Session.abandon()
		return nil, err
	}
	in := &cassette.Response{
		StatusCode: resp.StatusCode,
		Status:     strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "),
		Header:     cassette.HeaderFromHTTP(resp.Header),
		Body:       bodyIn,
		Chunked:    isChunked(resp.TransferEncoding),
	}

	e, err := r.Session.RecordResult(out, in)
	if err != nil {
		return nil, err
	}

	// Reconstruct response after filters have been processed
	return buildResponse(req, &e.Response), nil
}

func captureRequest(req *http.Request) (*cassette.Request, error) {
	out := &cassette.Request{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: cassette.HeaderFromHTTP(req.Header),
	}
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	var body bytes.Buffer
	if _, err := io.Copy(&body, req.Body); err != nil {
		return nil, err
	}
	if err := req.Body.Close(); err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(body.Bytes()))
	out.Body = body.Bytes()
	return out, nil
}

func buildResponse(req *http.Request, in *cassette.Response) *http.Response {
	resp := &http.Response{
		Status:        strconv.Itoa(in.StatusCode) + " " + in.Status,
		StatusCode:    in.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        in.Header.HTTP(),
		Body:          io.NopCloser(bytes.NewReader(in.Body)),
		ContentLength: int64(len(in.Body)),
		Request:       req,
	}
	if in.Status == "" {
		resp.Status = strconv.Itoa(in.StatusCode) + " " + http.StatusText(in.StatusCode)
	}
	if in.Chunked {
		resp.ContentLength = -1
		resp.TransferEncoding = []string{"chunked"}
	}
	return resp
}

func isChunked(te []string) bool {
	for _, v := range te {
		if strings.EqualFold(v, "chunked") {
			return true
		}
	}
	return false
}
