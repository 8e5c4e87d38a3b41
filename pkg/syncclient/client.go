package syncclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/models"
)

const maxErrorBody = 1024

type bookPayload struct {
	BookID  string `json:"bookId"`
	Content string `json:"content"`
}

type progressPayload struct {
	BookID   string          `json:"bookId"`
	Progress models.Progress `json:"progress"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Client talks to the sync server. Every call is bounded by the client
// timeout.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Health checks that the server is reachable and accepts the token.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// PushBook mirrors the raw text of a book.
func (c *Client) PushBook(ctx context.Context, bookID, content string) error {
	return c.do(ctx, http.MethodPost, "/book", bookPayload{BookID: bookID, Content: content}, nil)
}

func (c *Client) PushProgress(ctx context.Context, bookID string, progress models.Progress) error {
	return c.do(ctx, http.MethodPost, "/sync", progressPayload{BookID: bookID, Progress: progress}, nil)
}

// FetchProgress returns the remote progress for a book. A book the server has
// never seen progress for yields a not_found error.
func (c *Client) FetchProgress(ctx context.Context, bookID string) (models.Progress, error) {
	payload := progressPayload{}
	err := c.do(ctx, http.MethodGet, "/sync/"+url.PathEscape(bookID), nil, &payload)
	if err != nil {
		return models.Progress{}, err
	}
	return payload.Progress, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.WithStack(err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errcodes.InvalidInput(fmt.Sprintf("Invalid sync URL: %v", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(errcodes.NetworkFailure(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WithStack(errcodes.NetworkFailure(errors.Wrap(err, "malformed response")))
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(data))
	payload := errorPayload{}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return errors.WithStack(&errcodes.Error{HTTPCode: resp.StatusCode, Message: msg, Code: errcodes.CodeUnauthorized})
	case http.StatusNotFound:
		return errors.WithStack(&errcodes.Error{HTTPCode: resp.StatusCode, Message: msg, Code: errcodes.CodeNotFound})
	case http.StatusBadRequest:
		return errors.WithStack(errcodes.InvalidInput(msg))
	default:
		return errors.WithStack(errcodes.NetworkFailure(errors.Errorf("unexpected status %d: %s", resp.StatusCode, msg)))
	}
}
