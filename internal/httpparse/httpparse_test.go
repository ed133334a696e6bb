package httpparse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCompleteRequestNoBody(t *testing.T) {
	raw := "GET /foo?x=1 HTTP/1.1\r\nHost: example.com\r\n\r\n"
	req, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "GET", req.Method)
	require.Equal(t, "/foo?x=1", req.URL)
	require.Equal(t, "example.com", req.Header("Host"))
}

func TestParseAccumulatesDuplicateHeaders(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: example.com\r\nX-Tag: a\r\nX-Tag: b\r\n\r\n"
	req, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "a, b", req.Header("X-Tag"))
}

func TestParseIncompleteHeadersReturnsErrIncomplete(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: exam"
	_, err := Parse([]byte(raw))
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestParseWithBodyWaitsForFullBody(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nHost: example.com\r\nContent-Length: 11\r\n\r\nhello"
	_, err := Parse([]byte(raw))
	require.ErrorIs(t, err, ErrIncomplete)

	full := raw + " world"
	req, err := Parse([]byte(full))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(req.Body))
	require.Equal(t, len(full), req.Consumed())
}

func TestParseURLSplitsComponents(t *testing.T) {
	u, err := ParseURL("http://example.com:8080/path?name=val")
	require.NoError(t, err)
	require.Equal(t, "http", u.Protocol)
	require.Equal(t, "example.com", u.Host)
	require.Equal(t, 8080, u.Port)
	require.Equal(t, "/path", u.Path)
	require.Equal(t, "val", u.Query("name"))
}

func TestParseURLDefaultsPort(t *testing.T) {
	u, err := ParseURL("http://example.com/path")
	require.NoError(t, err)
	require.Equal(t, DefaultPort, u.Port)
}

func TestParseURLMultipleQueryArgs(t *testing.T) {
	u, err := ParseURL("http://example.com:8080/p?a=1&b=two")
	require.NoError(t, err)
	require.Equal(t, "example.com", u.Host)
	require.Equal(t, 8080, u.Port)
	require.Equal(t, "1", u.Query("a"))
	require.Equal(t, "two", u.Query("b"))
}

func TestParseURLMissingSchemeReturnsCodeMinus1(t *testing.T) {
	_, err := ParseURL("example.com/path")
	require.Error(t, err)
	var uerr *URLError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrCodeMissingScheme, uerr.Code)
}

func TestParseURLEmptyHostReturnsCodeMinus2(t *testing.T) {
	_, err := ParseURL("http:///path")
	require.Error(t, err)
	var uerr *URLError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrCodeEmptyHost, uerr.Code)
}

func TestParseURLBadQuerySegmentReturnsCodeMinus3(t *testing.T) {
	_, err := ParseURL("http://example.com/path?noequals")
	require.Error(t, err)
	var uerr *URLError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ErrCodeBadQuery, uerr.Code)
}
