package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/errs"
)

// APIError is the error class for backend transport and status failures.
var APIError = errs.Class("api")

// StatusError is a non-success HTTP response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

const maxResponseBody = 8 << 20

// APIClient talks to the dashboard REST API.
type APIClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Log     zerolog.Logger
}

// NewAPIClient returns a client with the given timeout.
func NewAPIClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *APIClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &APIClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
		Log:     log,
	}
}

// FetchAnalysis loads the daily summary and history of a client.
func (c *APIClient) FetchAnalysis(ctx context.Context, clientID string, date time.Time) (AnalysisResponse, error) {
	var resp AnalysisResponse
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("date", DayKey(date))
	err := c.do(ctx, http.MethodGet, "/analysis-by-date", q, nil, &resp)
	return resp, err
}

// SubmitEdit updates a logged food entry.
func (c *APIClient) SubmitEdit(ctx context.Context, entryID string, data EditData) (EditEntryResponse, error) {
	var resp EditEntryResponse
	err := c.do(ctx, http.MethodPut, "/edit-entry/"+url.PathEscape(entryID), nil, data, &resp)
	return resp, err
}

// SubmitEntry logs a new entry.
func (c *APIClient) SubmitEntry(ctx context.Context, req NewEntryRequest) error {
	return c.do(ctx, http.MethodPost, "/log-entry", nil, req, nil)
}

// ListClients returns every client visible to the coach.
func (c *APIClient) ListClients(ctx context.Context) ([]Client, error) {
	var wire []WireClient
	if err := c.do(ctx, http.MethodGet, "/clients", nil, nil, &wire); err != nil {
		return nil, err
	}
	clients := make([]Client, 0, len(wire))
	for _, w := range wire {
		clients = append(clients, w.Client())
	}
	return clients, nil
}

// ListPlans returns plans with their enrolled clients.
func (c *APIClient) ListPlans(ctx context.Context) ([]Plan, error) {
	var wire []WirePlan
	if err := c.do(ctx, http.MethodGet, "/plans", nil, nil, &wire); err != nil {
		return nil, err
	}
	plans := make([]Plan, 0, len(wire))
	for _, w := range wire {
		plans = append(plans, w.Plan())
	}
	return plans, nil
}

// ListSubscriptions returns all client subscriptions.
func (c *APIClient) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var wire []WireSubscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions", nil, nil, &wire); err != nil {
		return nil, err
	}
	subs := make([]Subscription, 0, len(wire))
	for _, w := range wire {
		subs = append(subs, w.Subscription())
	}
	return subs, nil
}

// LoadDataset fetches the listing endpoints into a Dataset. Clients come
// through dir so repeated loads within its TTL reuse the cached list.
func (c *APIClient) LoadDataset(ctx context.Context, dir *ClientDirectory) (*Dataset, error) {
	clients, err := dir.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading clients: %w", err)
	}
	plans, err := c.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading plans: %w", err)
	}
	subs, err := c.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}
	return &Dataset{Clients: clients, Plans: plans, Subscriptions: subs}, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return APIError.New("encoding %s %s: %v", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return APIError.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return APIError.Wrap(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return APIError.Wrap(err)
	}

	c.Log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return APIError.Wrap(&StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		})
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return APIError.New("decoding %s %s: %v", method, path, err)
	}
	return nil
}

// ClientLister is the subset of the API the directory needs.
type ClientLister interface {
	ListClients(ctx context.Context) ([]Client, error)
}

// ClientDirectory serves the client list from an explicit TTL cache.
type ClientDirectory struct {
	mu     sync.Mutex
	lister ClientLister
	ttl    time.Duration
	now    func() time.Time
	cached Cached[[]Client]
}

// NewClientDirectory returns a directory that reloads from lister once ttl has passed.
func NewClientDirectory(lister ClientLister, ttl time.Duration) *ClientDirectory {
	return &ClientDirectory{lister: lister, ttl: ttl, now: time.Now}
}

// Clients returns the client list, loading it when the cached copy is stale.
func (d *ClientDirectory) Clients(ctx context.Context) ([]Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cached.Refresh(ctx, d.now(), d.ttl, d.lister.ListClients)
}

// IDs returns the client IDs of the cached list.
func (d *ClientDirectory) IDs(ctx context.Context) ([]string, error) {
	clients, err := d.Clients(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.Key())
	}
	return ids, nil
}

// Invalidate forces the next call to reload.
func (d *ClientDirectory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached.Invalidate()
}
