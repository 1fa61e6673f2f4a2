package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tweet_monitor/internal/domain"
)

const (
	defaultRateLimitWait = time.Minute
	minRateLimitWait     = time.Second
	userAgent            = "TweetMonitor/1.0"
)

// Config holds timeline client configuration.
type Config struct {
	BaseURL          string
	BearerToken      string
	MaxResults       int
	Timeout          time.Duration
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxRateLimitWait time.Duration
}

// Client fetches user timelines from the X API v2.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	bearerToken      string
	maxResults       int
	maxAttempts      int
	initialBackoff   time.Duration
	maxRateLimitWait time.Duration
	logger           *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a timeline client.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:          cfg.BaseURL,
		bearerToken:      cfg.BearerToken,
		maxResults:       cfg.MaxResults,
		maxAttempts:      cfg.MaxAttempts,
		initialBackoff:   cfg.InitialBackoff,
		maxRateLimitWait: cfg.MaxRateLimitWait,
		logger:           logger.With("component", "twitter"),
		now:              time.Now,
		sleep:            sleepCtx,
	}
}

// FetchTimeline returns tweets strictly newer than sinceID, newest first.
func (c *Client) FetchTimeline(ctx context.Context, twitterID string, sinceID *string) (*domain.Timeline, error) {
	resp, err := c.fetchWithRetry(ctx, c.timelineURL(twitterID, sinceID))
	if err != nil {
		return nil, err
	}

	tweets, err := transform(resp)
	if err != nil {
		return nil, err
	}

	return &domain.Timeline{
		Tweets:   tweets,
		NewestID: resp.Meta.NewestID,
	}, nil
}

func (c *Client) timelineURL(twitterID string, sinceID *string) string {
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(c.maxResults))
	q.Set("tweet.fields", "created_at,entities")
	q.Set("expansions", "attachments.media_keys")
	q.Set("media.fields", "url,preview_image_url")
	if sinceID != nil && *sinceID != "" {
		q.Set("since_id", *sinceID)
	}
	return fmt.Sprintf("%s/users/%s/tweets?%s", c.baseURL, url.PathEscape(twitterID), q.Encode())
}

func (c *Client) fetchWithRetry(ctx context.Context, reqURL string) (*TimelineResponse, error) {
	var resp *TimelineResponse
	var err error

	backoff := c.initialBackoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err = c.doRequest(ctx, reqURL)
		if err == nil {
			return resp, nil
		}

		wait, retry := c.retryDelay(ctx, err, backoff)
		if !retry {
			return nil, err
		}
		if attempt == c.maxAttempts {
			break
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.RateLimited() {
			backoff *= 2
		}

		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.maxAttempts, err)
}

// retryDelay applies the retry policy: rate limits wait for the reported
// reset, 5xx and transport failures back off, everything else is final.
func (c *Client) retryDelay(ctx context.Context, err error, backoff time.Duration) (time.Duration, bool) {
	if ctx.Err() != nil {
		return 0, false
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		var netErr *transportError
		return backoff, errors.As(err, &netErr)
	}

	switch {
	case apiErr.RateLimited():
		wait := defaultRateLimitWait
		if !apiErr.ResetAt.IsZero() {
			wait = apiErr.ResetAt.Sub(c.now())
		}
		if wait < minRateLimitWait {
			wait = minRateLimitWait
		}
		if wait > c.maxRateLimitWait {
			wait = c.maxRateLimitWait
		}
		return wait, true
	case apiErr.Retryable():
		return backoff, true
	default:
		return 0, false
	}
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "execute request: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func (c *Client) doRequest(ctx context.Context, reqURL string) (*TimelineResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var apiResp TimelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		c.logger.Warn("failed to read error body", "status", resp.StatusCode, "error", err)
	}
	var p problem
	if len(body) > 0 && json.Unmarshal(body, &p) == nil {
		apiErr.Title = p.Title
		apiErr.Detail = p.Detail
	}

	if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
		if sec, err := strconv.ParseInt(reset, 10, 64); err == nil {
			apiErr.ResetAt = time.Unix(sec, 0)
		}
	}

	return apiErr
}

func transform(resp *TimelineResponse) ([]domain.Tweet, error) {
	media := make(map[string]Media)
	if resp.Includes != nil {
		for _, m := range resp.Includes.Media {
			media[m.MediaKey] = m
		}
	}

	tweets := make([]domain.Tweet, 0, len(resp.Data))
	for _, t := range resp.Data {
		if _, err := strconv.ParseUint(t.ID, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCursor, t.ID)
		}

		createdAt, err := time.Parse(time.RFC3339, t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of tweet %s: %w", t.ID, err)
		}

		tweet := domain.Tweet{
			TweetID:        t.ID,
			Content:        t.Text,
			TweetCreatedAt: createdAt,
		}

		if t.Attachments != nil {
			for _, key := range t.Attachments.MediaKeys {
				m, ok := media[key]
				if !ok {
					continue
				}
				switch {
				case m.URL != "":
					tweet.MediaURLs = append(tweet.MediaURLs, m.URL)
				case m.PreviewImageURL != "":
					tweet.MediaURLs = append(tweet.MediaURLs, m.PreviewImageURL)
				}
			}
		}

		tweets = append(tweets, tweet)
	}

	return tweets, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
