package schedule

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/version"
)

const (
	// DefaultTimeout bounds one feed request.
	DefaultTimeout = 15 * time.Second
	// maxFeedBytes caps how much of a response is read.
	maxFeedBytes = 1 << 20
)

// Fetcher retrieves and parses the feed.
type Fetcher struct {
	client *http.Client
	now    func() time.Time
}

// NewFetcher creates a fetcher with the default timeout. now stamps
// FetchedAt; nil means time.Now.
func NewFetcher(now func() time.Time) *Fetcher {
	if now == nil {
		now = time.Now
	}
	return &Fetcher{
		client: &http.Client{Timeout: DefaultTimeout},
		now:    now,
	}
}

// Fetch downloads url and parses its first item. Every failure is returned
// as a FeedFetchFault.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Schedule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fault.NewFeedFetchError("invalid feed address", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	start := f.now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fault.NewFeedFetchError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.NewFeedFetchError(fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(decodeBody(resp), maxFeedBytes))
	if err != nil {
		return nil, fault.NewFeedFetchError("read failed", err)
	}

	s, err := Parse(string(body))
	if err != nil {
		return nil, fault.NewFeedFetchError("unexpected feed content", err)
	}
	s.FetchedAt = f.now()

	logging.Info("Feed fetched",
		zap.String("url", url),
		zap.String("title", s.Title),
		zap.Int("entries", len(s.Entries)),
		zap.Duration("duration", s.FetchedAt.Sub(start)),
	)
	return s, nil
}

// decodeBody converts legacy Turkish and Latin-1 feeds to UTF-8.
func decodeBody(resp *http.Response) io.Reader {
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "iso-8859-9"):
		return transform.NewReader(resp.Body, charmap.ISO8859_9.NewDecoder())
	case strings.Contains(ct, "windows-1254"):
		return transform.NewReader(resp.Body, charmap.Windows1254.NewDecoder())
	case strings.Contains(ct, "iso-8859-1"):
		return transform.NewReader(resp.Body, charmap.ISO8859_1.NewDecoder())
	default:
		return resp.Body
	}
}
