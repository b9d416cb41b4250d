package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/pkg/config"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

// Page selects a result window and ordering for Read.
type Page struct {
	Number      int
	RowsPerPage int
	SortField   string
	SortOrder   string
}

// PageInfo is the pagination metadata returned alongside records.
type PageInfo struct {
	TotalRecords int `json:"total_records"`
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
}

type envelope struct {
	Records []Record `json:"records"`
	PageInfo
}

// Observer receives gateway call timings. Implemented by the metrics service.
type Observer interface {
	ObserveGatewayCall(collection, verb string, status int, duration time.Duration)
}

// Client is the gateway to the hosted record store. Calls are single network
// round trips: no retry, no backoff, no local transaction semantics. Errors
// surface immediately to the caller, typed by HTTP status.
type Client struct {
	http        *http.Client
	baseURL     string
	appID       string
	apiKey      string
	rowsPerPage int
	logger      *zap.Logger
	observer    Observer
}

// New constructs a gateway client. The underlying HTTP client carries no
// timeout: an in-flight save is never aborted once started.
func New(cfg config.RecordStoreConfig, logger *zap.Logger, observer Observer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rows := cfg.RowsPerPage
	if rows <= 0 {
		rows = 1000
	}
	return &Client{
		http:        &http.Client{},
		baseURL:     cfg.BaseURL,
		appID:       cfg.ApplicationID,
		apiKey:      cfg.APIKey,
		rowsPerPage: rows,
		logger:      logger,
		observer:    observer,
	}
}

// Read fetches records from a collection, optionally filtered and paged.
func (c *Client) Read(ctx context.Context, collection string, filter *Filter, page Page) ([]Record, *PageInfo, error) {
	endpoint := fmt.Sprintf("%s/objects/%s/records", c.baseURL, collection)
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid record store url")
	}

	q := u.Query()
	if filter != nil {
		encoded, err := filter.Encode()
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode filter")
		}
		q.Set("filters", encoded)
	}
	rows := page.RowsPerPage
	if rows <= 0 {
		rows = c.rowsPerPage
	}
	q.Set("rows_per_page", strconv.Itoa(rows))
	if page.Number > 0 {
		q.Set("page", strconv.Itoa(page.Number))
	}
	if page.SortField != "" {
		q.Set("sort_field", page.SortField)
		order := page.SortOrder
		if order == "" {
			order = "asc"
		}
		q.Set("sort_order", order)
	}
	u.RawQuery = q.Encode()

	var env envelope
	if err := c.do(ctx, http.MethodGet, collection, u.String(), nil, &env); err != nil {
		return nil, nil, err
	}
	info := env.PageInfo
	return env.Records, &info, nil
}

// Create inserts a record into a collection.
func (c *Client) Create(ctx context.Context, collection string, fields map[string]interface{}) (Record, error) {
	endpoint := fmt.Sprintf("%s/objects/%s/records", c.baseURL, collection)
	var rec Record
	if err := c.do(ctx, http.MethodPost, collection, endpoint, fields, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update overwrites fields of an existing record.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]interface{}) (Record, error) {
	endpoint := fmt.Sprintf("%s/objects/%s/records/%s", c.baseURL, collection, id)
	var rec Record
	if err := c.do(ctx, http.MethodPut, collection, endpoint, fields, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) do(ctx context.Context, verb, collection, endpoint string, body interface{}, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode record fields")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, verb, endpoint, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build record store request")
	}
	req.Header.Set("X-Knack-Application-Id", c.appID)
	req.Header.Set("X-Knack-REST-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(collection, verb, 0, time.Since(start))
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "record store request failed")
	}
	defer resp.Body.Close()
	c.observe(collection, verb, resp.StatusCode, time.Since(start))

	if resp.StatusCode/100 != 2 {
		return c.statusError(verb, collection, resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "malformed record store response")
	}
	return nil
}

func (c *Client) statusError(verb, collection string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	c.logger.Warn("record store error",
		zap.String("verb", verb),
		zap.String("collection", collection),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", snippet),
	)

	msg := fmt.Sprintf("record store returned %d for %s %s", resp.StatusCode, verb, collection)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return appErrors.Clone(appErrors.ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusForbidden:
		return appErrors.Clone(appErrors.ErrForbidden, msg)
	case resp.StatusCode == http.StatusBadRequest:
		return appErrors.Clone(appErrors.ErrValidation, msg)
	case resp.StatusCode == http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, msg)
	default:
		return appErrors.Clone(appErrors.ErrTransport, msg)
	}
}

func (c *Client) observe(collection, verb string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveGatewayCall(collection, verb, status, duration)
	}
}
