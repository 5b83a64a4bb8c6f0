package offline

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/phambaophuc/meal-analyzer/internal/models"
)

// SourceHeader tells the caller where a shell response came from.
const SourceHeader = "X-Cache-Source"

const (
	sourceNetwork = "network"
	sourceCache   = "cache"
	sourceOffline = "offline"
)

// unstoredHeaders never make it into a snapshot.
var unstoredHeaders = []string{"Set-Cookie", "Connection", "Keep-Alive", "Transfer-Encoding", SourceHeader}

func snapshot(key string, resp *http.Response, body []byte, now time.Time) *models.CacheEntry {
	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	for _, h := range unstoredHeaders {
		header.Del(h)
	}
	return &models.CacheEntry{
		URL:      key,
		Status:   resp.StatusCode,
		Header:   header,
		Body:     body,
		StoredAt: now,
	}
}

func entryResponse(req *http.Request, entry *models.CacheEntry, source string) *http.Response {
	header := entry.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set(SourceHeader, source)
	header.Set("Content-Length", strconv.Itoa(len(entry.Body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.Status, http.StatusText(entry.Status)),
		StatusCode:    entry.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}

// unavailableResponse is served when neither network, cache nor the offline
// document can answer.
func unavailableResponse(req *http.Request) *http.Response {
	body := []byte("You are offline and this page has not been cached yet.\n")
	return entryResponse(req, &models.CacheEntry{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:   body,
	}, sourceOffline)
}

type readCloser struct {
	io.Reader
	io.Closer
}
