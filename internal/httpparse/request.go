// Package httpparse implements the HTTP/URL parser (component J): it
// tokenizes a raw byte stream into method, URL, headers and body using
// fasthttp's header reader as the underlying state machine.
//
// Repeated header names accumulate rather than overwrite: Header joins
// their values with ", " per RFC 7230 §3.2.2. The body is the
// Content-Length bytes that follow the header block in the buffer given
// to Parse; a chunked (Transfer-Encoding) body is not decoded and Body
// stays empty.
package httpparse

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"
)

// ErrIncomplete is returned by Parse when data does not yet contain a
// full request; the caller should read more bytes and retry with the
// combined buffer. This is distinct from a malformed request, which
// Parse reports as a wrapped *MalformedError instead, so a client that is
// merely slow to finish sending is never confused with one sending
// garbage.
var ErrIncomplete = errors.New("httpparse: incomplete request")

// MalformedError wraps the underlying tokenizer failure for a request
// that is structurally invalid, not merely incomplete.
type MalformedError struct {
	Inner error
}

func (e *MalformedError) Error() string { return fmt.Sprintf("httpparse: malformed request: %v", e.Inner) }
func (e *MalformedError) Unwrap() error { return e.Inner }

// Request is the accumulated result of parsing one HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers map[string][]string
	Body    []byte

	consumed int
}

// Consumed returns how many bytes of the input buffer made up this
// request (header block plus any body already available).
func (r *Request) Consumed() int { return r.consumed }

// AddHeader appends value to the list already stored for key, using key
// as given; Parse passes the header names as fasthttp has normalized them.
func (r *Request) AddHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string][]string)
	}
	r.Headers[key] = append(r.Headers[key], value)
}

// Header returns the comma-joined value for key, or "" if absent.
func (r *Request) Header(key string) string {
	vals := r.Headers[key]
	if len(vals) == 0 {
		return ""
	}
	return strings.Join(vals, ", ")
}

// Parse tokenizes data as a single HTTP request. On success it returns
// the parsed Request, whose Consumed reports the byte count consumed. If
// data does not yet contain the full header block, or holds fewer body
// bytes than Content-Length, it returns ErrIncomplete. Any other failure
// is wrapped in *MalformedError.
func Parse(data []byte) (*Request, error) {
	var header fasthttp.RequestHeader
	br := bufio.NewReader(bytes.NewReader(data))

	if err := header.Read(br); err != nil {
		if errors.Is(err, bufio.ErrBufferFull) || errors.Is(err, fasthttp.ErrNeedMore) {
			return nil, ErrIncomplete
		}
		return nil, &MalformedError{Inner: err}
	}

	req := &Request{
		Method: string(header.Method()),
		URL:    string(header.RequestURI()),
	}
	header.VisitAll(func(key, value []byte) {
		req.AddHeader(string(key), string(value))
	})

	headerLen := len(data) - br.Buffered()
	contentLength := header.ContentLength()
	if contentLength > 0 {
		available := len(data) - headerLen
		if available < contentLength {
			return nil, ErrIncomplete
		}
		req.Body = append([]byte(nil), data[headerLen:headerLen+contentLength]...)
		req.consumed = headerLen + contentLength
	} else {
		req.consumed = headerLen
	}

	return req, nil
}
