// Package jira implements the tracker data source against the Jira Cloud
// REST API: key search with paging, issue fetch with expanded changelog,
// and a single retry honoring Retry-After on rate-limit responses.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/sojourn/internal/domain"
	"github.com/hylla/sojourn/internal/history"
)

// defaultPageSize matches the search page size the API tolerates well.
const defaultPageSize = 100

// Config holds connection settings for one Jira site.
type Config struct {
	BaseURL  string
	Email    string
	APIToken string
	PageSize int
	// HTTPClient overrides the transport, mainly for tests. Timeouts and
	// cancellation belong to the client or the caller's context.
	HTTPClient *http.Client
}

// Client is a DataSource backed by a Jira site. Safe for concurrent use.
type Client struct {
	baseURL  string
	email    string
	token    string
	pageSize int
	httpc    *http.Client
}

// NewClient constructs a new value for this package.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("jira base url is required")
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:  base,
		email:    cfg.Email,
		token:    cfg.APIToken,
		pageSize: pageSize,
		httpc:    httpc,
	}, nil
}

// Ping verifies credentials against the current-user endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/rest/api/3/myself", nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jira ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// searchRequest and searchResponse mirror the search endpoint's wire shape.
type searchRequest struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

type searchResponse struct {
	Total  int `json:"total"`
	Issues []struct {
		Key string `json:"key"`
	} `json:"issues"`
}

// SearchKeys resolves a JQL query to issue keys, paging until the reported
// total is exhausted.
func (c *Client) SearchKeys(ctx context.Context, query string) ([]string, error) {
	var keys []string
	startAt := 0
	for {
		body, err := json.Marshal(searchRequest{
			JQL:        query,
			StartAt:    startAt,
			MaxResults: c.pageSize,
			Fields:     []string{"key"},
		})
		if err != nil {
			return nil, fmt.Errorf("encode search request: %w", err)
		}
		resp, err := c.do(ctx, http.MethodPost, "/rest/api/3/search", body)
		if err != nil {
			return nil, err
		}
		var page searchResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		drain(resp)
		if err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}
		for _, issue := range page.Issues {
			keys = append(keys, issue.Key)
		}
		startAt += c.pageSize
		if startAt >= page.Total {
			return keys, nil
		}
	}
}

// issueDoc mirrors the issue endpoint's wire shape, reduced to the fields
// the pipeline consumes.
type issueDoc struct {
	Key    string `json:"key"`
	Fields struct {
		Created string `json:"created"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
	} `json:"fields"`
	Changelog struct {
		Histories []struct {
			Created string `json:"created"`
			Items   []struct {
				Field      string `json:"field"`
				FromString string `json:"fromString"`
				ToString   string `json:"toString"`
			} `json:"items"`
		} `json:"histories"`
	} `json:"changelog"`
}

// FetchIssue retrieves one issue with its changelog expanded and converts
// the loose wire document into the strict internal record. History entry
// timestamps stay unparsed; extraction owns their malformed-entry policy.
func (c *Client) FetchIssue(ctx context.Context, key string) (domain.IssueRecord, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s?expand=changelog", key)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.IssueRecord{}, err
	}
	var doc issueDoc
	err = json.NewDecoder(resp.Body).Decode(&doc)
	drain(resp)
	if err != nil {
		return domain.IssueRecord{}, fmt.Errorf("decode issue %s: %w", key, err)
	}

	created, err := history.ParseTimestamp(doc.Fields.Created)
	if err != nil {
		return domain.IssueRecord{}, fmt.Errorf("issue %s created: %w", key, err)
	}

	rec := domain.IssueRecord{
		Key:          doc.Key,
		Created:      created,
		CurrentState: doc.Fields.Status.Name,
	}
	for _, h := range doc.Changelog.Histories {
		entry := domain.ChangeEntry{Created: h.Created}
		for _, item := range h.Items {
			entry.Items = append(entry.Items, domain.ChangeItem{
				Field: item.Field,
				From:  item.FromString,
				To:    item.ToString,
			})
		}
		rec.History.Entries = append(rec.History.Entries, entry)
	}
	return rec, nil
}

// do issues one request, retrying once when the API answers 429 with a
// Retry-After hint. The sleep is clamped to 1–10 seconds and remains
// cancellable through ctx. Non-2xx statuses other than 429 become errors;
// the caller owns draining and closing the body on success.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp)
		drain(resp)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		resp, err = c.send(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := resp.StatusCode
		drain(resp)
		return nil, fmt.Errorf("jira %s %s: status %d", method, path, status)
	}
	return resp, nil
}

// send builds and issues a single authenticated request.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira %s %s: %w", method, path, err)
	}
	return resp, nil
}

// retryAfter reads the Retry-After hint, clamped to 1–10 seconds.
func retryAfter(resp *http.Response) time.Duration {
	secs := 2
	if v := resp.Header.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			secs = n
		}
	}
	if secs < 1 {
		secs = 1
	}
	if secs > 10 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

// drain consumes and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
