// Package transport talks to a Mastodon-compatible server.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/providers"
	"feedsync/internal/structures"
)

const (
	homeTimelinePath  = "/api/v1/timelines/home"
	notificationsPath = "/api/v1/notifications"
	maxErrorBody      = 4096
	maxPageBody       = 8 << 20
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     providers.Logger
	// maxBody caps a successful response body.
	maxBody    int64
}

func NewClient(conf *structures.Config, logger providers.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(conf.Account.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://" + conf.Account.Server
	}
	timeout := conf.Feed.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      conf.Account.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		maxBody:    maxPageBody,
	}
}

// get performs one paginated GET and returns the body and the cursor parsed
// from the Link header. Errors are TransportErrors unless the context ended.
func (c *Client) get(ctx context.Context, path string, req models.PageRequest) ([]byte, *models.PageCursor, error) {
	query := url.Values{}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.MaxID != "" {
		query.Set("max_id", req.MaxID)
	}
	if req.MinID != "" {
		query.Set("min_id", req.MinID)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, models.NewTransportError(models.NetworkUnavailable, fmt.Errorf("new request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, models.NewTransportError(models.NetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limited, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("GET %s: status=%d body=%s", path, resp.StatusCode, strings.TrimSpace(string(limited)))
		c.logger.Warnf(providers.TypeFeed, "%s", statusErr)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, nil, models.NewTransportError(models.Unauthorized, statusErr)
		}
		return nil, nil, models.NewTransportError(models.NetworkUnavailable, statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, models.NewTransportError(models.NetworkUnavailable, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > c.maxBody {
		return nil, nil, models.NewTransportError(models.Decoding, fmt.Errorf("GET %s: body exceeds %d bytes", path, c.maxBody))
	}
	return body, ParseLinkHeader(resp.Header.Get("Link")), nil
}

// PageFetcher fetches one paginated endpoint and decodes it into T.
type PageFetcher[T models.Item] struct {
	client *Client
	path   string
	decode func([]byte) ([]T, error)
}

func NewHomeTimelineFetcher(client *Client) *PageFetcher[models.Post] {
	return &PageFetcher[models.Post]{client: client, path: homeTimelinePath, decode: decodeStatuses}
}

func NewNotificationsFetcher(client *Client) *PageFetcher[models.Notification] {
	return &PageFetcher[models.Notification]{client: client, path: notificationsPath, decode: decodeNotifications}
}

func (f *PageFetcher[T]) FetchPage(ctx context.Context, req models.PageRequest) (models.Page[T], error) {
	body, cursor, err := f.client.get(ctx, f.path, req)
	if err != nil {
		return models.Page[T]{}, err
	}
	items, err := f.decode(body)
	if err != nil {
		return models.Page[T]{}, models.NewTransportError(models.Decoding, fmt.Errorf("decode %s: %w", f.path, err))
	}
	return models.Page[T]{Items: items, Cursor: cursor}, nil
}

// ParseLinkHeader reads the next and prev relations of an RFC 8288 Link
// header into a cursor. It returns nil when neither carries an id.
func ParseLinkHeader(header string) *models.PageCursor {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	cursor := &models.PageCursor{}
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		raw := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(raw, "<") || !strings.HasSuffix(raw, ">") {
			continue
		}
		link, err := url.Parse(raw[1 : len(raw)-1])
		if err != nil {
			continue
		}
		for _, param := range segments[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(key) != "rel" {
				continue
			}
			switch strings.Trim(strings.TrimSpace(value), `"`) {
			case "next":
				cursor.MaxID = link.Query().Get("max_id")
			case "prev":
				cursor.MinID = firstNonEmpty(link.Query().Get("min_id"), link.Query().Get("since_id"))
			}
		}
	}
	if cursor.MaxID == "" && cursor.MinID == "" {
		return nil
	}
	return cursor
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
