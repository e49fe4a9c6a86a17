package offline

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// OfflineBody is returned when neither the network nor the cache can answer.
const OfflineBody = "Offline - Content not available"

// Entry is a captured response stored under its request URL.
type Entry struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

func newEntry(key string, resp *http.Response, body []byte, now time.Time) Entry {
	return Entry{
		URL:      key,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: now.UTC(),
	}
}

// Response rebuilds an http.Response for req from the entry.
func (e Entry) Response(req *http.Request) *http.Response {
	h := e.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Length", strconv.Itoa(len(e.Body)))
	return &http.Response{
		Status:        strconv.Itoa(e.Status) + " " + http.StatusText(e.Status),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func offlineResponse(req *http.Request) *http.Response {
	return Entry{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": {"text/plain"}},
		Body:   []byte(OfflineBody),
	}.Response(req)
}

// CacheKey is the storage key of a request URL: fragment and userinfo are
// dropped and an empty path becomes "/".
func CacheKey(u *url.URL) string {
	k := *u
	k.Fragment = ""
	k.RawFragment = ""
	k.User = nil
	if k.Path == "" {
		k.Path = "/"
		k.RawPath = ""
	}
	return k.String()
}
