package provision

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

const (
	// DefaultTimeout bounds one request.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the number of extra attempts after a retryable failure.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the first backoff delay.
	DefaultRetryDelay = time.Second

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 10 * time.Second

	// maxBody caps how much of an error page is kept.
	maxBody = 4096
)

// Client talks to one portal.
type Client struct {
	// BaseURL is the portal root, e.g. "http://192.168.4.1/".
	BaseURL string

	HTTPClient    *http.Client
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the portal at baseURL.
func NewClient(baseURL string) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		BaseURL:       baseURL,
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		sleep:         sleepContext,
	}
}

// Ping checks that the portal serves its form.
func (c *Client) Ping(ctx context.Context) error {
	return c.retry(ctx, "ping", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
		if err != nil {
			return &PortalError{Type: ErrTypeNetwork, Message: "failed to create request", Err: err}
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return classifyNetworkError("portal unreachable", err)
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

		if resp.StatusCode != http.StatusOK {
			return newHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
		}
		return nil
	})
}

// Submit posts cfg to the portal. A nil error means the device saved it.
func (c *Client) Submit(ctx context.Context, cfg config.Configuration) error {
	return c.retry(ctx, "submit", func() error {
		return c.submitAttempt(ctx, cfg)
	})
}

func (c *Client) submitAttempt(ctx context.Context, cfg config.Configuration) error {
	body := FormValues(cfg).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, strings.NewReader(body))
	if err != nil {
		return &PortalError{Type: ErrTypeNetwork, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyNetworkError("submission failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	page, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		return &PortalError{
			Type:       ErrTypeRejected,
			Message:    "portal rejected the values: " + pageText(string(page)),
			StatusCode: resp.StatusCode,
		}
	default:
		return newHTTPError(resp.StatusCode, fmt.Sprintf("submission failed with status %d", resp.StatusCode))
	}
}

// retry runs attempt with exponential backoff while the error is retryable.
func (c *Client) retry(ctx context.Context, op string, attempt func() error) error {
	var lastErr error
	delay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			logging.Debug("Retrying portal request",
				zap.String("op", op),
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		lastErr = attempt()
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// FormValues encodes cfg with the portal's field names.
func FormValues(cfg config.Configuration) url.Values {
	return url.Values{
		config.FieldSSID:           {cfg.SSID},
		config.FieldPassword:       {cfg.Password},
		config.FieldFeedURL:        {cfg.FeedURL},
		config.FieldTimezoneOffset: {strconv.Itoa(cfg.TimezoneOffset)},
	}
}

// pageText pulls the messages out of a portal error page. The first one is
// the generic headline; the rest name the rejected fields.
func pageText(page string) string {
	var msgs []string
	for _, part := range strings.Split(page, `<p class="message`)[1:] {
		_, text, ok := strings.Cut(part, ">")
		if !ok {
			continue
		}
		text, _, _ = strings.Cut(text, "</p>")
		if text = strings.TrimSpace(html.UnescapeString(text)); text != "" {
			msgs = append(msgs, text)
		}
	}
	switch len(msgs) {
	case 0:
		return "missing fields"
	case 1:
		return msgs[0]
	default:
		return strings.Join(msgs[1:], "; ")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
