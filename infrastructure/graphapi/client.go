// Package graphapi implements the Graph Service port over HTTP,
// speaking the standard success/error response envelope.
package graphapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"crmgraph/application/ports"
	"crmgraph/domain/graph"
	"crmgraph/pkg/errors"
)

// Client calls a remote Graph Service over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ ports.GraphService = (*Client)(nil)

// NewClient creates a Graph Service client. token may be empty for
// unauthenticated development servers.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// envelope mirrors the server's standard response wrapper with the
// payload left raw for the caller to decode.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *errorInfo      `json:"error,omitempty"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// createEdgeRequest is the POST /edges payload.
type createEdgeRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label,omitempty"`
}

// FetchGraph retrieves the full node and edge set.
func (c *Client) FetchGraph(ctx context.Context) (*graph.Data, error) {
	var data graph.Data
	if err := c.do(ctx, http.MethodGet, "/api/v1/graph", nil, &data); err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched graph",
		zap.Int("nodes", len(data.Nodes)),
		zap.Int("edges", len(data.Edges)),
	)
	return &data, nil
}

// CreateEdge creates an edge and returns it with its server-assigned ID.
func (c *Client) CreateEdge(ctx context.Context, sourceID, targetID graph.NodeID, label string) (*graph.GraphEdge, error) {
	req := createEdgeRequest{
		SourceID: sourceID.String(),
		TargetID: targetID.String(),
		Label:    label,
	}
	var edge graph.GraphEdge
	if err := c.do(ctx, http.MethodPost, "/api/v1/edges", req, &edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

// DeleteEdge removes a committed edge by ID.
func (c *Client) DeleteEdge(ctx context.Context, edgeID graph.EdgeID) error {
	path := "/api/v1/edges/" + edgeID.String()
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do sends one request and decodes the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternalError("failed to encode request body").WithCause(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewInternalError("failed to build request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return errors.NewExternalError("graph service", err)
		}
		return c.statusError(resp.StatusCode, "", "")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && env.Success {
		if out == nil || env.Data == nil {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.NewExternalError("graph service", err)
		}
		return nil
	}

	var code, message string
	if env.Error != nil {
		code = env.Error.Code
		message = env.Error.Message
	}
	return c.statusError(resp.StatusCode, code, message)
}

// statusError maps an HTTP failure status onto the application error
// taxonomy so callers can branch on error type, not status codes.
func (c *Client) statusError(status int, code, message string) error {
	if message == "" {
		message = fmt.Sprintf("graph service returned status %d", status)
	}

	var appErr *errors.AppError
	switch status {
	case http.StatusBadRequest:
		appErr = errors.NewValidationError(message)
	case http.StatusUnauthorized:
		appErr = errors.NewUnauthorizedError(message)
	case http.StatusNotFound:
		appErr = errors.NewNotFoundError("edge")
		appErr.Message = message
	case http.StatusConflict:
		appErr = errors.NewConflictError(message)
	default:
		appErr = errors.NewExternalError("graph service", fmt.Errorf("status %d: %s", status, message))
	}
	if code != "" {
		appErr = appErr.WithCode(code)
	}
	return appErr
}
