// Package marketplace is the HTTP client for the backend that owns schemas,
// drafts, eligibility, wallets and configuration submissions.
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	commonhttp "obsp-workers/internal/common/http"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed API token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client talks to the marketplace API.
type Client struct {
	baseURL string
	http    *commonhttp.Client
	tokens  TokenSource
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    commonhttp.NewClient(timeout),
		tokens:  tokens,
		logger:  log,
	}
}

// FetchSchema returns the raw schema document for a level.
func (c *Client) FetchSchema(ctx context.Context, packageID, levelKey string) ([]byte, error) {
	var document []byte
	if err := c.get(ctx, c.levelPath(packageID, levelKey, "schema"), &document); err != nil {
		return nil, err
	}
	return document, nil
}

// FetchDraft returns the saved draft for a level, or models.ErrNotFound.
func (c *Client) FetchDraft(ctx context.Context, packageID, levelKey string) (*models.Draft, error) {
	var d models.Draft
	if err := c.get(ctx, c.levelPath(packageID, levelKey, "draft"), &d); err != nil {
		return nil, err
	}
	if d.LevelKey == "" {
		d.LevelKey = levelKey
	}
	return &d, nil
}

// CheckEligibility asks whether the buyer may purchase a level.
func (c *Client) CheckEligibility(ctx context.Context, packageID, levelKey string) (*models.EligibilityResult, error) {
	var res models.EligibilityResult
	if err := c.get(ctx, c.levelPath(packageID, levelKey, "eligibility"), &res); err != nil {
		return nil, err
	}
	if res.Reason == "" {
		res.Reason = models.ReasonNone
	}
	return &res, nil
}

// GetBalance reads the buyer's wallet.
func (c *Client) GetBalance(ctx context.Context) (*models.WalletBalance, error) {
	var bal models.WalletBalance
	if err := c.get(ctx, c.baseURL+"/wallet/balance", &bal); err != nil {
		return nil, err
	}
	return &bal, nil
}

// SubmitConfiguration saves a draft or submits a purchase. A rejection that
// carries a decodable body with blocked=true is returned as a response, not an error.
func (c *Client) SubmitConfiguration(ctx context.Context, packageID string, req models.SubmitRequest) (*models.SubmitResponse, error) {
	headers, err := c.headers(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/packages/%s/configurations", c.baseURL, url.PathEscape(packageID))

	var resp models.SubmitResponse
	err = c.http.DoJSON(ctx, http.MethodPost, endpoint, headers, req, &resp)
	if err != nil {
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) {
			if blocked, ok := decodeBlocked(statusErr.Body); ok {
				return blocked, nil
			}
		}
		c.logger.Warn("configuration submission failed", map[string]interface{}{
			"packageId": packageID,
			"levelKey":  req.LevelKey,
			"status":    string(req.Status),
			"error":     err.Error(),
		})
		return nil, err
	}

	if !resp.Success && !resp.Blocked {
		msg := resp.Error
		if msg == "" {
			msg = "submission rejected"
		}
		return &resp, errors.New(msg)
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	headers, err := c.headers(ctx)
	if err != nil {
		return err
	}

	err = c.http.DoJSON(ctx, http.MethodGet, endpoint, headers, nil, out)
	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", models.ErrNotFound, endpoint)
	}
	if err != nil {
		c.logger.Debug("marketplace request failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
	}
	return err
}

func (c *Client) headers(ctx context.Context) (map[string]string, error) {
	if c.tokens == nil {
		return nil, nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtain api token: %w", err)
	}
	if token == "" {
		return nil, nil
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

func (c *Client) levelPath(packageID, levelKey, resource string) string {
	return fmt.Sprintf("%s/packages/%s/levels/%s/%s",
		c.baseURL, url.PathEscape(packageID), url.PathEscape(levelKey), resource)
}

func decodeBlocked(body string) (*models.SubmitResponse, bool) {
	var resp models.SubmitResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil || !resp.Blocked {
		return nil, false
	}
	return &resp, true
}
