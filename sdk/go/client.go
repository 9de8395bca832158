package speclinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Specline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Document represents the API document model.
type Document struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Body       string   `json:"body,omitempty"`
	Type       string   `json:"type"`
	Stage      string   `json:"stage"`
	Version    int      `json:"version"`
	CreatedBy  string   `json:"created_by"`
	UpdatedBy  string   `json:"updated_by"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
	NextStages []string `json:"next_stages,omitempty"`
}

// Revision is an archived document state.
type Revision struct {
	DocumentID string `json:"document_id"`
	Version    int    `json:"version"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Stage      string `json:"stage"`
	EditedBy   string `json:"edited_by"`
	CreatedAt  string `json:"created_at"`
}

// Link is a parent -> child edge.
type Link struct {
	ParentID  string `json:"parent_id"`
	ChildID   string `json:"child_id"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

// TreeNode is one node of a document subtree.
type TreeNode struct {
	DocumentID string     `json:"document_id"`
	Title      string     `json:"title"`
	Type       string     `json:"type"`
	Stage      string     `json:"stage"`
	Children   []TreeNode `json:"children,omitempty"`
}

// Comment on a document.
type Comment struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	AuthorID   string `json:"author_id"`
	Body       string `json:"body"`
	CreatedAt  string `json:"created_at"`
}

// DiffBlock is one line of a version diff.
type DiffBlock struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Line    int    `json:"line"`
	OldLine int    `json:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty"`
}

// Diff is the full comparison between two versions.
type Diff struct {
	DocumentID  string      `json:"document_id"`
	FromVersion int         `json:"from_version"`
	ToVersion   int         `json:"to_version"`
	Blocks      []DiffBlock `json:"blocks"`
	Inline      []string    `json:"inline"`
}

// Event is a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedDocuments wraps document listings with cursors.
type PaginatedDocuments struct {
	Items      []Document `json:"items"`
	NextCursor string     `json:"next_cursor"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateDocument creates a document in the idea stage.
func (c *Client) CreateDocument(ctx context.Context, title, docType, body string) (Document, error) {
	payload := map[string]any{"title": title}
	if docType != "" {
		payload["type"] = docType
	}
	if body != "" {
		payload["body"] = body
	}
	var resp Document
	err := c.do(ctx, http.MethodPost, "documents", payload, &resp)
	return resp, err
}

// GetDocument fetches a document by id.
func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	var resp Document
	err := c.do(ctx, http.MethodGet, "documents/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListDocuments returns a page of documents.
func (c *Client) ListDocuments(ctx context.Context, stage string, limit int, cursor string) (PaginatedDocuments, error) {
	q := url.Values{}
	if stage != "" {
		q.Set("stage", stage)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "documents"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedDocuments
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// UpdateDocument patches the title and/or body, bumping the version.
func (c *Client) UpdateDocument(ctx context.Context, id string, title, body *string) (Document, error) {
	payload := map[string]any{}
	if title != nil {
		payload["title"] = *title
	}
	if body != nil {
		payload["body"] = *body
	}
	var resp Document
	err := c.do(ctx, http.MethodPatch, "documents/"+url.PathEscape(id), payload, &resp)
	return resp, err
}

// Transition moves a document to a new stage.
func (c *Client) Transition(ctx context.Context, id, stage string) (Document, error) {
	var resp Document
	err := c.do(ctx, http.MethodPost, "documents/"+url.PathEscape(id)+"/transition", map[string]any{"stage": stage}, &resp)
	return resp, err
}

// Revisions lists a document's archived versions, newest first.
func (c *Client) Revisions(ctx context.Context, id string) ([]Revision, error) {
	var resp []Revision
	err := c.do(ctx, http.MethodGet, "documents/"+url.PathEscape(id)+"/revisions", nil, &resp)
	return resp, err
}

// Diff compares two versions of a document.
func (c *Client) Diff(ctx context.Context, id string, from, to int) (Diff, error) {
	endpoint := fmt.Sprintf("documents/%s/diff?from=%d", url.PathEscape(id), from)
	if to > 0 {
		endpoint += fmt.Sprintf("&to=%d", to)
	}
	var resp Diff
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateLink adds a parent -> child edge.
func (c *Client) CreateLink(ctx context.Context, parentID, childID string) (Link, error) {
	var resp Link
	err := c.do(ctx, http.MethodPost, "documents/"+url.PathEscape(parentID)+"/links", map[string]any{"child_id": childID}, &resp)
	return resp, err
}

// Tree fetches the subtree rooted at a document.
func (c *Client) Tree(ctx context.Context, id string) (TreeNode, error) {
	var resp TreeNode
	err := c.do(ctx, http.MethodGet, "documents/"+url.PathEscape(id)+"/tree", nil, &resp)
	return resp, err
}

// AddComment comments on a document.
func (c *Client) AddComment(ctx context.Context, id, body string) (Comment, error) {
	var resp Comment
	err := c.do(ctx, http.MethodPost, "documents/"+url.PathEscape(id)+"/comments", map[string]any{"body": body}, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v0/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
