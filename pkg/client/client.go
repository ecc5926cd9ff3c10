package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/reconciler"
	"github.com/terra-clan/solution-builder/internal/session"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

// Client is a Go SDK for the solution-builder API.
// Every request is made on behalf of one client id.
type Client struct {
	baseURL    string
	clientID   string
	operator   string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithOperator sets the operator recorded as creator of saved solutions
func WithOperator(operator string) Option {
	return func(c *Client) {
		c.operator = operator
	}
}

// NewClient creates a new solution-builder client
func NewClient(baseURL, clientID string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error answered by the API
type APIError struct {
	Status  int             `json:"-"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.Status, e.Code, e.Message)
}

// Result carries the non-fatal warning of a successful call, if any
type Result struct {
	Warning string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Warning string          `json:"warning"`
	Error   *APIError       `json:"error"`
}

// ListIndustries retrieves all industries
func (c *Client) ListIndustries(ctx context.Context) ([]models.Industry, error) {
	var data struct {
		Industries []models.Industry `json:"industries"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/industries", nil, &data); err != nil {
		return nil, err
	}
	return data.Industries, nil
}

// ListTechnologies retrieves all technologies
func (c *Client) ListTechnologies(ctx context.Context) ([]models.Technology, error) {
	var data struct {
		Technologies []models.Technology `json:"technologies"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/technologies", nil, &data); err != nil {
		return nil, err
	}
	return data.Technologies, nil
}

// ListSolutionTypes retrieves the solution types of an industry and technology
func (c *Client) ListSolutionTypes(ctx context.Context, industryID, technologyID string) ([]models.SolutionType, error) {
	q := url.Values{}
	q.Set("industry", industryID)
	q.Set("technology", technologyID)

	var data struct {
		SolutionTypes []models.SolutionType `json:"solution_types"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/solution-types?"+q.Encode(), nil, &data); err != nil {
		return nil, err
	}
	return data.SolutionTypes, nil
}

// ListSolutionVariants retrieves the variants of a solution type
func (c *Client) ListSolutionVariants(ctx context.Context, solutionID string) ([]models.SolutionVariant, error) {
	var data struct {
		SolutionVariants []models.SolutionVariant `json:"solution_variants"`
	}
	path := "/api/v1/solution-variants?solution=" + url.QueryEscape(solutionID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.SolutionVariants, nil
}

// CreateSession starts a new wizard session
func (c *Client) CreateSession(ctx context.Context) (*session.Snapshot, error) {
	var snap session.Snapshot
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSessions retrieves the live sessions of the client
func (c *Client) ListSessions(ctx context.Context) ([]session.Snapshot, error) {
	var data struct {
		Sessions []session.Snapshot `json:"sessions"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/sessions", nil, &data); err != nil {
		return nil, err
	}
	return data.Sessions, nil
}

// GetSession retrieves a session by ID
func (c *Client) GetSession(ctx context.Context, id string) (*session.Snapshot, error) {
	var snap session.Snapshot
	if _, err := c.do(ctx, http.MethodGet, sessionPath(id), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// EndSession abandons a session
func (c *Client) EndSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, sessionPath(id), nil, nil)
	return err
}

// ApplyEvent sends a wizard event. A missing saved solution is reported
// through Result.Warning, not as an error.
func (c *Client) ApplyEvent(ctx context.Context, id string, e wizard.Event) (*session.Snapshot, Result, error) {
	var snap session.Snapshot
	res, err := c.do(ctx, http.MethodPost, sessionPath(id)+"/events", e, &snap)
	if err != nil {
		return nil, res, err
	}
	return &snap, res, nil
}

// ListParameters retrieves the parameters matching tab and query.
// Empty values keep the session's current filter.
func (c *Client) ListParameters(ctx context.Context, id, tab, query string) (*session.ParameterView, error) {
	q := url.Values{}
	if tab != "" {
		q.Set("tab", tab)
	}
	if query != "" {
		q.Set("q", query)
	}

	path := sessionPath(id) + "/parameters"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var view session.ParameterView
	if _, err := c.do(ctx, http.MethodGet, path, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// AddParameter adds a parameter to the session's form
func (c *Client) AddParameter(ctx context.Context, id string, p models.Parameter) (*models.Parameter, error) {
	var saved models.Parameter
	if _, err := c.do(ctx, http.MethodPost, sessionPath(id)+"/parameters", p, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateParameter replaces a parameter of the session's form
func (c *Client) UpdateParameter(ctx context.Context, id string, p models.Parameter) (*models.Parameter, error) {
	var saved models.Parameter
	if _, err := c.do(ctx, http.MethodPut, parameterPath(id, p.ID), p, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// RemoveParameter deletes a parameter from the session's form
func (c *Client) RemoveParameter(ctx context.Context, id, parameterID string) error {
	_, err := c.do(ctx, http.MethodDelete, parameterPath(id, parameterID), nil, nil)
	return err
}

// BeginParameterAdd opens an edit for a new parameter and returns its blank draft
func (c *Client) BeginParameterAdd(ctx context.Context, id string) (*models.Parameter, error) {
	return c.parameterAction(ctx, http.MethodPost, sessionPath(id)+"/parameters/new", nil)
}

// BeginParameterEdit puts a parameter into edit mode. Only one parameter can be edited at a time.
func (c *Client) BeginParameterEdit(ctx context.Context, id, parameterID string) (*models.Parameter, error) {
	return c.parameterAction(ctx, http.MethodPost, parameterPath(id, parameterID)+"/edit", nil)
}

// UpdateParameterDraft replaces the working copy of the open edit
func (c *Client) UpdateParameterDraft(ctx context.Context, id string, p models.Parameter) (*models.Parameter, error) {
	return c.parameterAction(ctx, http.MethodPut, parameterPath(id, p.ID)+"/draft", p)
}

// SaveParameterDraft validates and commits the open edit
func (c *Client) SaveParameterDraft(ctx context.Context, id, parameterID string) (*models.Parameter, error) {
	return c.parameterAction(ctx, http.MethodPost, parameterPath(id, parameterID)+"/save", nil)
}

// CancelParameterEdit closes the open edit without committing
func (c *Client) CancelParameterEdit(ctx context.Context, id, parameterID string) error {
	_, err := c.do(ctx, http.MethodPost, parameterPath(id, parameterID)+"/cancel", nil, nil)
	return err
}

func (c *Client) parameterAction(ctx context.Context, method, path string, in interface{}) (*models.Parameter, error) {
	var p models.Parameter
	if _, err := c.do(ctx, method, path, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Review retrieves the end-user facing summary of a session
func (c *Client) Review(ctx context.Context, id string) (*session.Review, error) {
	var review session.Review
	if _, err := c.do(ctx, http.MethodGet, sessionPath(id)+"/review", nil, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// AddCategory creates a custom category of the given kind ("parameters" or "calculations")
func (c *Client) AddCategory(ctx context.Context, id, kind, name string, color models.ColorToken) error {
	body := map[string]string{"name": name, "color": string(color), "kind": kind}
	_, err := c.do(ctx, http.MethodPost, sessionPath(id)+"/categories", body, nil)
	return err
}

// RemoveCategory deletes a category and every item in it, returning how many items went with it
func (c *Client) RemoveCategory(ctx context.Context, id, kind, name string) (int, error) {
	var data struct {
		Removed int `json:"removed"`
	}
	path := sessionPath(id) + "/categories/" + url.PathEscape(name) + "?kind=" + url.QueryEscape(kind)
	if _, err := c.do(ctx, http.MethodDelete, path, nil, &data); err != nil {
		return 0, err
	}
	return data.Removed, nil
}

// AddCalculation adds a calculation to the session's form
func (c *Client) AddCalculation(ctx context.Context, id string, calc models.Calculation) (*models.Calculation, error) {
	var saved models.Calculation
	if _, err := c.do(ctx, http.MethodPost, sessionPath(id)+"/calculations", calc, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Save persists the session. The session ends when the save succeeds;
// on failure it stays open and Save can be retried.
func (c *Client) Save(ctx context.Context, id string, mode models.SaveMode) (*reconciler.SaveResult, error) {
	var result reconciler.SaveResult
	body := map[string]models.SaveMode{"mode": mode}
	if _, err := c.do(ctx, http.MethodPost, sessionPath(id)+"/save", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	return err
}

func sessionPath(id string) string {
	return "/api/v1/sessions/" + url.PathEscape(id)
}

func parameterPath(id, parameterID string) string {
	return sessionPath(id) + "/parameters/" + url.PathEscape(parameterID)
}

// do performs an HTTP request and decodes the data of the response envelope into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) (Result, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return Result{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", c.clientID)
	if c.operator != "" {
		req.Header.Set("X-Operator", c.operator)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return Result{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return Result{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown", Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.Status = resp.StatusCode
		return Result{}, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return Result{}, fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return Result{Warning: env.Warning}, nil
}
