package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/agenthands/quarry/internal/config"
	"github.com/agenthands/quarry/internal/core/model"
)

// BookStackClient pulls pages straight from a BookStack instance's API using
// token auth. Calls are rate-limited and wrapped in the bounded retry policy;
// an instance that stays down fails the batch instead of looping forever.
type BookStackClient struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	http        *http.Client
	limiter     *rate.Limiter
	retry       RetryPolicy
}

func NewBookStackClient(cfg config.SourceAPIConfig) (*BookStackClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("bookstack base_url is required")
	}
	if cfg.TokenID == "" || cfg.TokenSecret == "" {
		return nil, fmt.Errorf("bookstack token_id and token_secret are required")
	}

	retry := DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}

	return &BookStackClient{
		baseURL:     cfg.BaseURL,
		tokenID:     cfg.TokenID,
		tokenSecret: cfg.TokenSecret,
		http:        &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		retry:       retry,
	}, nil
}

type pageSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
}

type pageListResponse struct {
	Data []pageSummary `json:"data"`
}

type pageDetail struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	HTML string `json:"html"`
	Book struct {
		Name string `json:"name"`
	} `json:"book"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
	UpdatedAt string `json:"updated_at"`
}

// ListPages walks the paginated /api/pages endpoint and returns every page
// summary.
func (c *BookStackClient) ListPages(ctx context.Context) ([]pageSummary, error) {
	const pageSize = 100

	var all []pageSummary
	offset := 0
	for {
		var resp pageListResponse
		params := url.Values{
			"count":  {strconv.Itoa(pageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		if err := c.get(ctx, "/api/pages", params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			break
		}
		all = append(all, resp.Data...)
		offset += len(resp.Data)
	}

	return all, nil
}

// GetPage fetches full page detail including book and tags.
func (c *BookStackClient) GetPage(ctx context.Context, id int64) (*pageDetail, error) {
	var detail pageDetail
	params := url.Values{"include": {"book,chapter,tags"}}
	if err := c.get(ctx, fmt.Sprintf("/api/pages/%d", id), params, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExportRecords fetches every page and normalizes it to the canonical record
// shape. A page that fails to fetch after retries is skipped with a warning
// so one broken page cannot block the rest of the corpus.
func (c *BookStackClient) ExportRecords(ctx context.Context) ([]model.SourceRecord, int, error) {
	summaries, err := c.ListPages(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pages: %w", err)
	}

	var records []model.SourceRecord
	skipped := 0
	for _, summary := range summaries {
		detail, err := c.GetPage(ctx, summary.ID)
		if err != nil {
			skipped++
			continue
		}

		tags := make([]string, 0, len(detail.Tags))
		for _, t := range detail.Tags {
			tags = append(tags, t.Name)
		}

		rec, ok := NormalizeBookStackPage(bookstackExport{
			ID:        json.Number(strconv.FormatInt(detail.ID, 10)),
			Title:     detail.Name,
			BodyHTML:  detail.HTML,
			Book:      detail.Book.Name,
			URL:       fmt.Sprintf("%s/link/%d", c.baseURL, detail.ID),
			Tags:      tags,
			UpdatedAt: detail.UpdatedAt,
		})
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

func (c *BookStackClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.retry.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		reqURL := c.baseURL + path
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", fmt.Sprintf("Token %s:%s", c.tokenID, c.tokenSecret))
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("bookstack API %s: status %d: %s", path, resp.StatusCode, body)
		}

		return json.NewDecoder(resp.Body).Decode(out)
	})
}
