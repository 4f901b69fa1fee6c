// Copyright 2025 KittyLit Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package livesource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kittylit/bookfinder/core"
)

const (
	// DefaultBaseURL is the Google Books volumes endpoint.
	DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

	// defaultTimeout bounds a single upstream request.
	defaultTimeout = 10 * time.Second

	// maxResults is the page size requested from the upstream API.
	maxResults = 40

	// defaultQuery is used when no filter contributes a search term.
	defaultQuery = "children"

	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// QuotaGate meters external calls against the daily budget.
type QuotaGate interface {
	// CanCall reports whether another call is allowed today.
	CanCall(ctx context.Context) bool

	// Increment records one call attempt and returns the updated count.
	Increment(ctx context.Context) int
}

// Client fetches books from the Google Books API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	gate        QuotaGate
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream endpoint. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the HTTP client.
// Default has a 10 second timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxAttempts sets how many times a fetch is attempted.
// Default is 3.
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithBaseDelay sets the base retry delay.
// Default is 500ms.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		if delay > 0 {
			c.baseDelay = delay
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewClient creates a live source client gated by the given quota.
func NewClient(gate QuotaGate, opts ...Option) (*Client, error) {
	if gate == nil {
		return nil, ErrQuotaGateRequired
	}

	c := &Client{
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		gate:        gate,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default().With("component", "livesource"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// volumesResponse mirrors the slice of the upstream payload we read.
type volumesResponse struct {
	Items []struct {
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			PublishedDate       string   `json:"publishedDate"`
			Description         string   `json:"description"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Fetch queries the upstream API with the given filters and returns
// normalized books. Returns ErrQuotaExhausted without touching the
// network when the daily budget is spent. Every network attempt counts
// against the quota, success or not.
func (c *Client) Fetch(ctx context.Context, query core.Query) ([]core.Book, error) {
	if !c.gate.CanCall(ctx) {
		c.logger.Warn("daily api call limit reached, skipping live fetch")
		return nil, ErrQuotaExhausted
	}

	reqURL := c.requestURL(query)

	var payload volumesResponse
	err := RetryWithBackoff(ctx, func() error {
		count := c.gate.Increment(ctx)
		c.logger.Debug("calling live source", "url", reqURL, "calls_today", count)
		return c.fetchOnce(ctx, reqURL, &payload)
	}, c.maxAttempts, c.baseDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	books := normalizeVolumes(payload, query.PublicationYear)
	c.logger.Debug("live fetch complete", "items", len(books))
	return books, nil
}

func (c *Client) requestURL(query core.Query) string {
	q := defaultQuery
	if query.Genre != "" {
		q = "subject:" + query.Genre
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	if query.Language != "" {
		params.Set("langRestrict", query.Language)
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) fetchOnce(ctx context.Context, reqURL string, payload *volumesResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	*payload = volumesResponse{}
	return json.NewDecoder(resp.Body).Decode(payload)
}

// normalizeVolumes converts the upstream payload into the internal book
// shape. When filterYear names a single year, volumes published in a
// different year are dropped; range filters are left to the semantic
// tier's scoring.
func normalizeVolumes(payload volumesResponse, filterYear string) []core.Book {
	filterYear = strings.TrimSpace(filterYear)
	exactYear := filterYear != "" && !strings.Contains(filterYear, "-")

	books := make([]core.Book, 0, len(payload.Items))
	for _, item := range payload.Items {
		info := item.VolumeInfo

		pubYear := ""
		if info.PublishedDate != "" {
			pubYear, _, _ = strings.Cut(info.PublishedDate, "-")
		}
		if exactYear && pubYear != "" && pubYear != filterYear {
			continue
		}

		// Prefer an ISBN-13, fall back to the first identifier.
		isbn := ""
		for _, id := range info.IndustryIdentifiers {
			if id.Type == "ISBN_13" {
				isbn = id.Identifier
				break
			}
		}
		if isbn == "" && len(info.IndustryIdentifiers) > 0 {
			isbn = info.IndustryIdentifiers[0].Identifier
		}

		title := info.Title
		if title == "" {
			title = "Unknown Title"
		}
		author := "Unknown Author"
		if len(info.Authors) > 0 {
			author = strings.Join(info.Authors, ", ")
		}

		books = append(books, core.Book{
			Title:           title,
			Author:          author,
			PublicationYear: pubYear,
			Description:     info.Description,
			Isbn:            isbn,
			ThumbnailURL:    info.ImageLinks.Thumbnail,
			Source:          core.SourceGoogleBooks,
		})
	}
	return books
}
