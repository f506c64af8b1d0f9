// Package redmine is the retrieval layer: a paging REST client for the
// source instance plus a lazy directory over its enumeration resources.
package redmine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/trackshift/trackshift/internal/config"
	"github.com/trackshift/trackshift/internal/model"
)

const apiKeyHeader = "X-Redmine-API-Key"

// issueIncludes are the child resources fetched along with each issue.
// Time entries are a separate endpoint and hydrated afterwards.
const issueIncludes = "journals,attachments,relations,watchers,children"

// Client talks to one Redmine instance. Safe for sequential use; the export
// pipeline never needs concurrent requests.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *http.Client
}

// NewClient builds a client from the connection config.
func NewClient(cfg config.RedmineConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// statusError is a non-2xx response. Server-side failures retry; client
// errors do not.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.url, e.code)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// get performs one GET with retry and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.apiKey != "" {
			req.Header.Set(apiKeyHeader, c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			serr := &statusError{code: resp.StatusCode, url: u}
			if serr.retryable() {
				return serr
			}
			return backoff.Permanent(serr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("GET %s: decoding response: %w", u, err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	return backoff.Retry(operation, policy)
}

// paged iterates a collection endpoint with offset/limit paging until
// total_count is exhausted, invoking decode with each page's raw body.
func (c *Client) paged(ctx context.Context, path string, query url.Values, page func(json.RawMessage) (int, error)) error {
	limit := c.pageSize
	if limit <= 0 {
		limit = 100
	}

	offset := 0
	for {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(limit))

		var envelope struct {
			TotalCount int `json:"total_count"`
		}
		var raw json.RawMessage
		if err := c.get(ctx, path, q, &raw); err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("GET %s: parsing page envelope: %w", path, err)
		}

		n, err := page(raw)
		if err != nil {
			return err
		}

		offset += n
		if n == 0 || offset >= envelope.TotalCount {
			return nil
		}
	}
}

// Issues fetches the issues matching the raw query string, e.g.
// "project_id=acme&status_id=*". Child resources are included; time
// entries are hydrated with one extra request per issue.
func (c *Client) Issues(ctx context.Context, rawQuery string) ([]model.Issue, error) {
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("parsing issue query: %w", err)
	}
	if query.Get("status_id") == "" {
		query.Set("status_id", "*")
	}
	query.Set("include", issueIncludes)
	query.Set("sort", "id")

	var issues []model.Issue
	err = c.paged(ctx, "/issues.json", query, func(raw json.RawMessage) (int, error) {
		var page struct {
			Issues []model.Issue `json:"issues"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("parsing issues page: %w", err)
		}
		issues = append(issues, page.Issues...)
		return len(page.Issues), nil
	})
	if err != nil {
		return nil, err
	}

	for i := range issues {
		entries, err := c.timeEntries(ctx, issues[i].ID)
		if err != nil {
			return nil, err
		}
		issues[i].TimeEntries = entries
	}
	return issues, nil
}

// Issue fetches a single issue with its child resources.
func (c *Client) Issue(ctx context.Context, id int) (*model.Issue, error) {
	query := url.Values{"include": {issueIncludes}}
	var envelope struct {
		Issue model.Issue `json:"issue"`
	}
	if err := c.get(ctx, "/issues/"+strconv.Itoa(id)+".json", query, &envelope); err != nil {
		return nil, err
	}

	entries, err := c.timeEntries(ctx, envelope.Issue.ID)
	if err != nil {
		return nil, err
	}
	envelope.Issue.TimeEntries = entries
	return &envelope.Issue, nil
}

type timeEntryJSON struct {
	ID       int       `json:"id"`
	User     model.Ref `json:"user"`
	Hours    float64   `json:"hours"`
	SpentOn  string    `json:"spent_on"`
	Comments string    `json:"comments"`
}

func (c *Client) timeEntries(ctx context.Context, issueID int) ([]model.TimeEntry, error) {
	query := url.Values{"issue_id": {strconv.Itoa(issueID)}}

	var entries []model.TimeEntry
	err := c.paged(ctx, "/time_entries.json", query, func(raw json.RawMessage) (int, error) {
		var page struct {
			TimeEntries []timeEntryJSON `json:"time_entries"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return 0, fmt.Errorf("parsing time entries page: %w", err)
		}
		for _, te := range page.TimeEntries {
			spentOn, _ := time.Parse("2006-01-02", te.SpentOn)
			entries = append(entries, model.TimeEntry{
				ID:       te.ID,
				User:     te.User,
				Hours:    te.Hours,
				SpentOn:  spentOn,
				Comments: te.Comments,
			})
		}
		return len(page.TimeEntries), nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
