package source

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURLTemplate is the Google Drive direct-download endpoint. The
// file identifier replaces %s.
const DefaultURLTemplate = "https://drive.google.com/uc?export=download&id=%s"

// DefaultTimeout bounds a single remote download.
const DefaultTimeout = 30 * time.Second

// RemoteURL builds the download URL for a file identifier. Templates
// without a %s verb get the escaped identifier appended.
func RemoteURL(template, fileID string) string {
	if template == "" {
		template = DefaultURLTemplate
	}
	id := url.QueryEscape(fileID)
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, id)
	}
	return template + id
}

// HTTP downloads the spreadsheet with one GET request.
type HTTP struct {
	FileID   string
	URL      string
	Header   http.Header
	Client   *http.Client
	MaxBytes int64
}

// NewHTTP returns a remote source for fileID. header is sent with every
// request; timeout bounds the whole exchange.
func NewHTTP(template, fileID string, header http.Header, timeout time.Duration, maxBytes int64) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		FileID:   fileID,
		URL:      RemoteURL(template, fileID),
		Header:   header.Clone(),
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
	}
}

func (h *HTTP) Describe() Descriptor {
	return Descriptor{Mode: ModeRemote, Identifier: h.FileID}
}

func (h *HTTP) Acquire(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build source request: %w", err)
	}
	for name, values := range h.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Source: h.Describe(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindStatus, Source: h.Describe(), StatusCode: resp.StatusCode}
	}

	// Drive answers unshared or oversized files with an HTML page and 200.
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt == "text/html" {
			return nil, &Error{Kind: KindStatus, Source: h.Describe(), Detail: ct}
		}
	}

	data, err := readLimited(resp.Body, h.MaxBytes, h.Describe())
	if err != nil {
		if IsKind(err, KindTooLarge) {
			return nil, err
		}
		return nil, &Error{Kind: KindNetwork, Source: h.Describe(), Err: err}
	}
	return data, nil
}
