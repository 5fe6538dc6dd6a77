// Package client is a Go client for the bluescore HTTP API.
package client

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/woozymasta/bluescore/internal/models"
	"github.com/woozymasta/bluescore/internal/vars"
)

// APIError is returned for every non 2xx answer.
type APIError struct {
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bluescore: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("bluescore: %d %s", e.StatusCode, e.Message)
}

// Client talks to one bluescore server.
type Client struct {
	// reads are idempotent and retried
	reads *resty.Client
	// writes are sent once; a lost response must not apply an override twice
	writes *resty.Client
}

// NewClient creates a client for endpoint authenticated with the admin token.
func NewClient(endpoint, token string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("bluescore: empty endpoint")
	}

	reads := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Second * 10).
		SetRetryCount(3)

	// A cycle may take up to its deadline before the summary comes back
	writes := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Minute)

	if token != "" {
		reads.SetAuthToken(token)
		writes.SetAuthToken(token)
	}

	return &Client{reads: reads, writes: writes}, nil
}

// Scores fetches the scoreboard.
func (c *Client) Scores() (*models.ScoreData, error) {
	res := &models.ScoreData{}
	if err := do(c.reads.R().SetResult(res), http.MethodGet, "/api/scores"); err != nil {
		return nil, err
	}

	return res, nil
}

// LastCycle fetches the summary of the most recent cycle.
func (c *Client) LastCycle() (*models.CycleSummary, error) {
	res := &models.CycleSummary{}
	if err := do(c.reads.R().SetResult(res), http.MethodGet, "/api/cycles/last"); err != nil {
		return nil, err
	}

	return res, nil
}

// Version fetches the build metadata of the server.
func (c *Client) Version() (*vars.Build, error) {
	res := &vars.Build{}
	if err := do(c.reads.R().SetResult(res), http.MethodGet, "/api/version"); err != nil {
		return nil, err
	}

	return res, nil
}

// RunChecks triggers a check cycle and returns its summary.
func (c *Client) RunChecks() (*models.CycleSummary, error) {
	res := &models.CycleSummary{}
	if err := do(c.writes.R().SetResult(res), http.MethodPost, "/api/checks/run"); err != nil {
		return nil, err
	}

	return res, nil
}

// AddPoints adds amount to a team total. A non nil expected aborts when the stored total differs.
func (c *Client) AddPoints(team, amount string, expected *int) (*models.OverrideResult, error) {
	return c.amount(team, "add", amount, expected)
}

// SubtractPoints subtracts amount from a team total.
func (c *Client) SubtractPoints(team, amount string, expected *int) (*models.OverrideResult, error) {
	return c.amount(team, "subtract", amount, expected)
}

// Reset sets a team total to zero.
func (c *Client) Reset(team string, expected *int) (*models.OverrideResult, error) {
	res := &models.OverrideResult{}
	req := c.writes.R().
		SetResult(res).
		SetPathParam("team", team).
		SetBody(map[string]any{"expected": expected})
	if err := do(req, http.MethodPost, "/api/teams/{team}/reset"); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) amount(team, op, amount string, expected *int) (*models.OverrideResult, error) {
	res := &models.OverrideResult{}
	req := c.writes.R().
		SetResult(res).
		SetPathParam("team", team).
		SetPathParam("op", op).
		SetBody(map[string]any{"amount": amount, "expected": expected})
	if err := do(req, http.MethodPost, "/api/teams/{team}/points/{op}"); err != nil {
		return nil, err
	}

	return res, nil
}

func do(req *resty.Request, method, url string) error {
	apiErr := &APIError{}
	resp, err := req.SetError(apiErr).Execute(method, url)
	if err != nil {
		return err
	}

	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return apiErr
	}

	return nil
}
