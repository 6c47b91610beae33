package cassette

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v2"
)

// A Codec converts interactions to and from their persisted form.
//
// Implementations must write interactions in the given order and return them
// in the same order, and bodies must survive a round-trip byte for byte.
type Codec interface {
	Encode(w io.Writer, interactions []Interaction) error
	Decode(r io.Reader) ([]Interaction, error)
}

// YAML is the default Codec. Each interaction is written as a separate YAML
// document. Bodies that are not printable UTF-8 text are base64 encoded.
type YAML struct{}

var _ Codec = YAML{}

const encodingBase64 = "base64"

type record struct {
	Request  requestRecord  `yaml:"request"`
	Response responseRecord `yaml:"response"`
}

type requestRecord struct {
	Method       string        `yaml:"method"`
	URI          string        `yaml:"uri"`
	Headers      yaml.MapSlice `yaml:"headers,omitempty"`
	Body         *string       `yaml:"body,omitempty"`
	BodyEncoding string        `yaml:"body_encoding,omitempty"`
}

type statusRecord struct {
	Code    int    `yaml:"code"`
	Message string `yaml:"message,omitempty"`
}

type responseRecord struct {
	Status       statusRecord  `yaml:"status"`
	Headers      yaml.MapSlice `yaml:"headers,omitempty"`
	Body         *string       `yaml:"body,omitempty"`
	BodyEncoding string        `yaml:"body_encoding,omitempty"`
	Chunked      bool          `yaml:"chunked,omitempty"`
}

// Encode implements Codec.
func (YAML) Encode(w io.Writer, interactions []Interaction) error {
	enc := yaml.NewEncoder(w)
	for i, in := range interactions {
		rec := record{
			Request: requestRecord{
				Method:  in.Request.Method,
				URI:     in.Request.URL,
				Headers: encodeHeader(in.Request.Header),
			},
			Response: responseRecord{
				Status: statusRecord{
					Code:    in.Response.StatusCode,
					Message: in.Response.Status,
				},
				Headers: encodeHeader(in.Response.Header),
				Chunked: in.Response.Chunked,
			},
		}
		rec.Request.Body, rec.Request.BodyEncoding = encodeBody(in.Request.Body)
		rec.Response.Body, rec.Response.BodyEncoding = encodeBody(in.Response.Body)
		if err := enc.Encode(rec); err != nil {
			return &SerializationError{Index: i, Err: err}
		}
	}
	return enc.Close()
}

// Decode implements Codec.
func (YAML) Decode(r io.Reader) ([]Interaction, error) {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	var out []Interaction
	for i := 0; ; i++ {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, &SerializationError{Index: i, Err: err}
		}
		in, err := rec.interaction()
		if err != nil {
			return nil, &SerializationError{Index: i, Err: err}
		}
		out = append(out, in)
	}
}

func (rec *record) interaction() (Interaction, error) {
	var in Interaction
	if rec.Request.Method == "" {
		return in, errors.New("request method is missing")
	}
	if _, err := url.Parse(rec.Request.URI); err != nil {
		return in, fmt.Errorf("request uri: %w", err)
	}
	if c := rec.Response.Status.Code; c < 100 || c > 999 {
		return in, fmt.Errorf("invalid status code %d", c)
	}
	var err error
	in.Request.Method = rec.Request.Method
	in.Request.URL = rec.Request.URI
	if in.Request.Header, err = decodeHeader(rec.Request.Headers); err != nil {
		return in, fmt.Errorf("request headers: %w", err)
	}
	if in.Request.Body, err = decodeBody(rec.Request.Body, rec.Request.BodyEncoding); err != nil {
		return in, fmt.Errorf("request body: %w", err)
	}
	in.Response.StatusCode = rec.Response.Status.Code
	in.Response.Status = rec.Response.Status.Message
	in.Response.Chunked = rec.Response.Chunked
	if in.Response.Header, err = decodeHeader(rec.Response.Headers); err != nil {
		return in, fmt.Errorf("response headers: %w", err)
	}
	if in.Response.Body, err = decodeBody(rec.Response.Body, rec.Response.BodyEncoding); err != nil {
		return in, fmt.Errorf("response body: %w", err)
	}
	return in, nil
}

// encodeHeader groups values by name, in order of first appearance.
func encodeHeader(h Header) yaml.MapSlice {
	var out yaml.MapSlice
	for _, name := range h.Names() {
		out = append(out, yaml.MapItem{Key: name, Value: h.Values(name)})
	}
	return out
}

func decodeHeader(in yaml.MapSlice) (Header, error) {
	var out Header
	for _, item := range in {
		name, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("header name %v is not a string", item.Key)
		}
		switch v := item.Value.(type) {
		case []interface{}:
			for _, e := range v {
				s, err := scalar(e)
				if err != nil {
					return nil, fmt.Errorf("header %s: %w", name, err)
				}
				out = append(out, Field{Name: name, Value: s})
			}
		default:
			s, err := scalar(v)
			if err != nil {
				return nil, fmt.Errorf("header %s: %w", name, err)
			}
			out = append(out, Field{Name: name, Value: s})
		}
	}
	return out, nil
}

// scalar accepts hand-edited cassettes where a value such as a content length
// was left unquoted.
func scalar(v interface{}) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("unsupported value %v", v)
	}
}

func encodeBody(b []byte) (*string, string) {
	if b == nil {
		return nil, ""
	}
	if printable(b) {
		s := string(b)
		return &s, ""
	}
	s := base64.StdEncoding.EncodeToString(b)
	return &s, encodingBase64
}

func decodeBody(s *string, encoding string) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	switch encoding {
	case "":
		b := make([]byte, len(*s))
		copy(b, *s)
		return b, nil
	case encodingBase64:
		return base64.StdEncoding.DecodeString(*s)
	default:
		return nil, fmt.Errorf("unknown body encoding %q", encoding)
	}
}

// printable reports whether b can be stored as a plain YAML string without
// losing bytes.
func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r == '\n' || r == '\t' {
			continue
		}
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
