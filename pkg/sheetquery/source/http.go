package source

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// DefaultFetchTimeout bounds a single download.
const DefaultFetchTimeout = 60 * time.Second

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	// TTL is the freshness window (default: 5 minutes).
	TTL time.Duration
	// Timeout bounds one download (default: 60 seconds).
	Timeout time.Duration
	// Client overrides the HTTP client. A client with a cookie jar is created when nil.
	Client *http.Client
}

type httpMeta struct {
	contentLength int64
	contentType   string
	finalURL      string
	statusCode    int
}

// HTTPFetcher downloads a document from a share link.
// The link gets download=1 appended so the host serves the raw file.
type HTTPFetcher struct {
	shareURL string
	client   *http.Client
	timeout  time.Duration
	log      *log.Entry

	// fetchMu serializes downloads; mu guards win and meta only.
	fetchMu sync.Mutex
	mu      sync.Mutex
	win     window
	meta    httpMeta
}

// NewHTTPFetcher creates a fetcher for shareURL.
func NewHTTPFetcher(shareURL string, cfg HTTPConfig) *HTTPFetcher {
	client := cfg.Client
	if client == nil {
		// Share hosts set cookies along the redirect chain.
		jar, _ := cookiejar.New(nil)
		client = &http.Client{Jar: jar}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		shareURL: shareURL,
		client:   client,
		timeout:  timeout,
		log:      log.WithField("component", "http-fetcher"),
		win:      newWindow(cfg.TTL),
	}
}

// DownloadURL appends download=1 to a share link.
func DownloadURL(shareURL string) string {
	sep := "?"
	if strings.Contains(shareURL, "?") {
		sep = "&"
	}
	return shareURL + sep + "download=1"
}

// Fetch returns the held document while fresh, otherwise downloads it.
// Concurrent callers wait for a single download. Fresh and Info do not
// wait for a download in progress.
func (h *HTTPFetcher) Fetch(ctx context.Context) (*Document, error) {
	h.fetchMu.Lock()
	defer h.fetchMu.Unlock()

	if doc := h.freshDoc(); doc != nil {
		return doc, nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	downloadURL := DownloadURL(h.shareURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	start := h.win.now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetchFailed, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}

	doc := &Document{
		Data:      body,
		Name:      FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
		FetchedAt: h.win.now(),
	}
	if doc.Name == "" {
		doc.Name = "download.xlsx"
	}
	h.mu.Lock()
	h.win.store(doc)
	h.meta = httpMeta{
		contentLength: int64(len(body)),
		contentType:   resp.Header.Get("Content-Type"),
		finalURL:      resp.Request.URL.String(),
		statusCode:    resp.StatusCode,
	}
	h.mu.Unlock()

	h.log.WithFields(log.Fields{
		"filename": doc.Name,
		"bytes":    len(body),
		"status":   resp.StatusCode,
		"elapsed":  doc.FetchedAt.Sub(start).String(),
	}).Info("downloaded workbook")

	return doc, nil
}

func (h *HTTPFetcher) freshDoc() *Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.win.fresh() {
		return h.win.doc
	}
	return nil
}

// Fresh reports whether the held document is within its window.
func (h *HTTPFetcher) Fresh() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.win.fresh()
}

// Invalidate drops the held document.
func (h *HTTPFetcher) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.win.clear()
}

// Info returns diagnostics about the held document.
func (h *HTTPFetcher) Info() models.FileInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	fi := models.FileInfo{Source: models.SourceRemote, Location: redactQuery(h.shareURL)}
	if h.win.doc == nil {
		return fi
	}
	fetchedAt := h.win.doc.FetchedAt
	size := h.meta.contentLength
	fi.Filename = h.win.doc.Name
	fi.FetchedAt = &fetchedAt
	fi.ContentLength = &size
	fi.ContentType = h.meta.contentType
	fi.FinalURL = redactQuery(h.meta.finalURL)
	fi.StatusCode = h.meta.statusCode
	return fi
}

var (
	dispositionExtended = regexp.MustCompile(`filename\*=UTF-8''(.+?)(?:;|$)`)
	dispositionPlain    = regexp.MustCompile(`filename="?([^";]+)"?`)
)

// FilenameFromDisposition extracts the filename from a Content-Disposition
// header. The RFC 5987 filename* form takes precedence over filename.
func FilenameFromDisposition(cd string) string {
	if cd == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	// mime rejects some headers that hosts send anyway
	if m := dispositionExtended.FindStringSubmatch(cd); m != nil {
		if name, err := url.PathUnescape(m[1]); err == nil {
			return name
		}
		return m[1]
	}
	if m := dispositionPlain.FindStringSubmatch(cd); m != nil {
		return m[1]
	}
	return ""
}

// redactQuery strips the query string, which carries share tokens.
func redactQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	return u.String()
}
