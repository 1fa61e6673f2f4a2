package twitter

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tweet_monitor/internal/domain"
)

type ClientTestSuite struct {
	suite.Suite
	logger *slog.Logger
	sleeps []time.Duration
	now    time.Time
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.sleeps = nil
	s.now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
}

func (s *ClientTestSuite) newClient(baseURL string) *Client {
	c := New(Config{
		BaseURL:          baseURL,
		BearerToken:      "token-123",
		MaxResults:       5,
		Timeout:          5 * time.Second,
		MaxAttempts:      3,
		InitialBackoff:   time.Second,
		MaxRateLimitWait: 15 * time.Minute,
	}, s.logger)
	c.now = func() time.Time { return s.now }
	c.sleep = func(_ context.Context, d time.Duration) error {
		s.sleeps = append(s.sleeps, d)
		return nil
	}
	return c
}

func (s *ClientTestSuite) TestFetchTimeline_RequestAndMapping() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/users/42/tweets", r.URL.Path)
		s.Equal("Bearer token-123", r.Header.Get("Authorization"))
		s.Equal("100", r.URL.Query().Get("since_id"))
		s.Equal("5", r.URL.Query().Get("max_results"))
		s.Equal("created_at,entities", r.URL.Query().Get("tweet.fields"))
		s.Equal("attachments.media_keys", r.URL.Query().Get("expansions"))
		s.Equal("url,preview_image_url", r.URL.Query().Get("media.fields"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": "102", "text": "second", "created_at": "2026-10-18T11:59:00Z",
				 "attachments": {"media_keys": ["3_1", "7_2", "missing"]}},
				{"id": "101", "text": "first", "created_at": "2026-10-18T11:58:00Z"}
			],
			"meta": {"newest_id": "102", "oldest_id": "101", "result_count": 2},
			"includes": {"media": [
				{"media_key": "3_1", "type": "photo", "url": "https://img/1.jpg"},
				{"media_key": "7_2", "type": "video", "preview_image_url": "https://img/2.jpg"}
			]}
		}`))
	}))
	defer server.Close()

	since := "100"
	timeline, err := s.newClient(server.URL).FetchTimeline(context.Background(), "42", &since)
	s.Require().NoError(err)

	s.Equal("102", timeline.NewestID)
	s.Require().Len(timeline.Tweets, 2)
	s.Equal("102", timeline.Tweets[0].TweetID)
	s.Equal("second", timeline.Tweets[0].Content)
	s.Equal([]string{"https://img/1.jpg", "https://img/2.jpg"}, timeline.Tweets[0].MediaURLs)
	s.Equal(time.Date(2026, 10, 18, 11, 59, 0, 0, time.UTC), timeline.Tweets[0].TweetCreatedAt.UTC())
	s.Nil(timeline.Tweets[1].MediaURLs)
}

func (s *ClientTestSuite) TestFetchTimeline_NoSinceIDOnFirstPass() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.False(r.URL.Query().Has("since_id"))
		_, _ = w.Write([]byte(`{"meta": {"result_count": 0}}`))
	}))
	defer server.Close()

	timeline, err := s.newClient(server.URL).FetchTimeline(context.Background(), "42", nil)
	s.Require().NoError(err)
	s.Empty(timeline.Tweets)
	s.Empty(timeline.NewestID)
}

func (s *ClientTestSuite) TestFetchTimeline_NotFoundIsFinal() {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title": "Not Found Error", "detail": "Could not find user"}`))
	}))
	defer server.Close()

	_, err := s.newClient(server.URL).FetchTimeline(context.Background(), "42", nil)
	s.Require().Error(err)
	s.True(IsNotFound(err))
	s.Contains(err.Error(), "Not Found Error")
	s.Equal(int32(1), atomic.LoadInt32(&calls))
	s.Empty(s.sleeps)
}

func (s *ClientTestSuite) TestFetchTimeline_ServerErrorBacksOffExponentially() {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data": [{"id": "5", "text": "ok", "created_at": "2026-10-18T11:00:00Z"}], "meta": {"newest_id": "5"}}`))
	}))
	defer server.Close()

	timeline, err := s.newClient(server.URL).FetchTimeline(context.Background(), "42", nil)
	s.Require().NoError(err)
	s.Len(timeline.Tweets, 1)
	s.Equal([]time.Duration{time.Second, 2 * time.Second}, s.sleeps)
}

func (s *ClientTestSuite) TestFetchTimeline_RateLimitWaitsForReset() {
	var calls int32
	reset := s.now.Add(90 * time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset.Unix(), 10))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"meta": {}}`))
	}))
	defer server.Close()

	_, err := s.newClient(server.URL).FetchTimeline(context.Background(), "42", nil)
	s.Require().NoError(err)
	s.Equal([]time.Duration{90 * time.Second}, s.sleeps)
}

func (s *ClientTestSuite) TestFetchTimeline_RateLimitWaitIsCapped() {
	reset := s.now.Add(2 * time.Hour)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset.Unix(), 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := s.newClient(server.URL).FetchTimeline(context.Background(), "42", nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "after 3 attempts")
	s.Equal([]time.Duration{15 * time.Minute, 15 * time.Minute}, s.sleeps)

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.True(apiErr.RateLimited())
}

func (s *ClientTestSuite) TestFetchTimeline_RejectsNonNumericIDs() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"id": "abc", "text": "x", "created_at": "2026-10-18T11:00:00Z"}]}`))
	}))
	defer server.Close()

	_, err := s.newClient(server.URL).FetchTimeline(context.Background(), "42", nil)
	s.ErrorIs(err, domain.ErrInvalidCursor)
}

func (s *ClientTestSuite) TestFetchTimeline_CancelledContextStopsRetry() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := s.newClient(server.URL)
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.FetchTimeline(ctx, "42", nil)
	s.ErrorIs(err, context.Canceled)
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }
func (failingBody) Close() error { return nil }

func (s *ClientTestSuite) TestDecodeError_UnreadableBodyIsLogged() {
	var logs bytes.Buffer
	c := New(Config{MaxAttempts: 1}, slog.New(slog.NewTextHandler(&logs, nil)))

	resp := &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"X-Rate-Limit-Reset": []string{"1760000000"}},
		Body:       failingBody{},
	}

	err := c.decodeError(resp)

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.True(apiErr.RateLimited())
	s.Empty(apiErr.Title)
	s.Equal(time.Unix(1760000000, 0), apiErr.ResetAt)
	s.Contains(logs.String(), "failed to read error body")
	s.Contains(logs.String(), "connection reset by peer")
}
