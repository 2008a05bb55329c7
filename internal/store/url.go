package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppetrov/opinia/internal/model"
	"github.com/ppetrov/opinia/internal/util"
)

// DefaultUserAgent identifies fetches made by the url store
const DefaultUserAgent = "Opinia/0.1 (+https://github.com/ppetrov/opinia)"

// URLStore fetches a JSON feedback export over HTTP
type URLStore struct {
	url        string
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // nil when the robots.txt check is disabled
}

// NewURLStore creates an HTTP-backed store from configuration
func NewURLStore(cfg model.StoreConfig) *URLStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes == 0 {
		maxBytes = 2_000_000
	}

	var robots *util.RobotsChecker
	if !cfg.IgnoreRobots {
		robots = util.NewRobotsChecker(userAgent, timeout)
	}

	return &URLStore{
		url: cfg.Path,
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		robots:    robots,
	}
}

// Kind identifies the backend
func (s *URLStore) Kind() string {
	return "url"
}

// Query fetches and parses the remote export
func (s *URLStore) Query(ctx context.Context) ([]model.FeedbackRecord, error) {
	if s.robots != nil && !s.robots.IsAllowed(ctx, s.url) {
		return nil, fmt.Errorf("robots.txt disallows fetching %s", s.url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feedback export: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status fetching %s: %d %s", s.url, resp.StatusCode, resp.Status)
	}

	// Read body with size limit
	limitedReader := io.LimitReader(resp.Body, s.maxBytes)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("parsing feedback export from %s: %w", s.url, err)
	}

	return records, nil
}
