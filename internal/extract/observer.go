package extract

import (
	"context"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// observer watches network responses on a page and captures the first
// one that looks like the document download. The capture survives the
// navigation being aborted, which is exactly what happens when the
// browser hands the response off as a file download.
type observer struct {
	mu     sync.Mutex
	url    string
	marker string
	stop   func()
}

func newObserver(page *rod.Page, cdnMarker string) *observer {
	o := &observer{marker: strings.ToLower(cdnMarker)}

	ctx, cancel := context.WithCancel(context.Background())
	o.stop = cancel

	wait := page.Context(ctx).EachEvent(func(e *proto.NetworkResponseReceived) {
		resp := e.Response
		if resp == nil {
			return
		}
		disposition := headerValue(resp.Headers, "content-disposition")
		if isDownloadResponse(resp.URL, resp.MIMEType, disposition, o.marker) {
			o.mu.Lock()
			if o.url == "" {
				o.url = resp.URL
			}
			o.mu.Unlock()
		}
	})
	go wait()
	return o
}

// captured returns the first matching response URL, or "".
func (o *observer) captured() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.url
}

func headerValue(headers proto.NetworkHeaders, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v.Str()
		}
	}
	return ""
}

// isDownloadResponse applies the two-sided match: the URL must look like
// a download endpoint and the response must actually carry a document.
func isDownloadResponse(url, mimeType, disposition, marker string) bool {
	u := strings.ToLower(url)
	urlHit := strings.Contains(u, "download") ||
		strings.Contains(u, ".pdf") ||
		(marker != "" && strings.Contains(u, marker))
	if !urlHit {
		return false
	}
	return strings.Contains(strings.ToLower(mimeType), "pdf") ||
		strings.Contains(strings.ToLower(disposition), "attachment")
}
