package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quirelabs/quire/internal/contents"
)

// Client is a contents.Manager backed by a remote Server. It also
// implements contents.Checkpointer; whether checkpoints actually work
// depends on the manager behind the server.
type Client struct {
	base *url.URL
	http *http.Client
}

var (
	_ contents.Manager      = (*Client)(nil)
	_ contents.Checkpointer = (*Client)(nil)
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q needs a scheme and host", baseURL)
	}

	c := &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, p string, opts contents.FetchOptions) (*contents.Model, error) {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if opts.IncludeContent {
		q.Set("content", "1")
	}
	if opts.Type != "" {
		q.Set("type", string(opts.Type))
	}
	if opts.Format != "" {
		q.Set("format", string(opts.Format))
	}

	var reply wireModel
	if err := c.do(ctx, http.MethodGet, c.endpoint(contentsRoot, cp, q), nil, &reply); err != nil {
		return nil, pathErr("get", p, err)
	}
	return &reply.Model, nil
}

func (c *Client) Save(ctx context.Context, p string, opts contents.SaveOptions) (*contents.Model, error) {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return nil, err
	}

	body := saveRequest{Type: opts.Type, Format: opts.Format, Content: opts.Content}
	var reply wireModel
	if err := c.do(ctx, http.MethodPut, c.endpoint(contentsRoot, cp, nil), body, &reply); err != nil {
		return nil, pathErr("save", p, err)
	}
	return &reply.Model, nil
}

func (c *Client) Rename(ctx context.Context, oldPath, newPath string) (*contents.Model, error) {
	oldCP, err := contents.CleanPath(oldPath)
	if err != nil {
		return nil, err
	}
	newCP, err := contents.CleanPath(newPath)
	if err != nil {
		return nil, err
	}
	if oldCP == "" || newCP == "" {
		return nil, pathErr("rename", oldPath, contents.ErrInvalidPath)
	}

	var reply wireModel
	if err := c.do(ctx, http.MethodPatch, c.endpoint(contentsRoot, oldCP, nil), renameRequest{Path: newCP}, &reply); err != nil {
		if errors.Is(err, contents.ErrExists) {
			return nil, pathErr("rename", newPath, err)
		}
		return nil, pathErr("rename", oldPath, err)
	}
	return &reply.Model, nil
}

func (c *Client) Delete(ctx context.Context, p string) error {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, c.endpoint(contentsRoot, cp, nil), nil, nil); err != nil {
		return pathErr("delete", p, err)
	}
	return nil
}

func (c *Client) List(ctx context.Context, dir string) ([]*contents.Model, error) {
	cp, err := contents.CleanPath(dir)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("content", "1")
	var reply wireModel
	if err := c.do(ctx, http.MethodGet, c.endpoint(contentsRoot, cp, q), nil, &reply); err != nil {
		return nil, pathErr("list", dir, err)
	}
	if reply.Type != contents.TypeDirectory {
		return nil, pathErr("list", dir, contents.ErrNotFound)
	}
	return reply.Entries, nil
}

func (c *Client) CreateCheckpoint(ctx context.Context, p string) (contents.Checkpoint, error) {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return contents.Checkpoint{}, err
	}
	var ckpt contents.Checkpoint
	if err := c.do(ctx, http.MethodPost, c.endpoint(checkpointsRoot, cp, nil), nil, &ckpt); err != nil {
		return contents.Checkpoint{}, pathErr("checkpoint", p, err)
	}
	return ckpt, nil
}

func (c *Client) ListCheckpoints(ctx context.Context, p string) ([]contents.Checkpoint, error) {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return nil, err
	}
	var list []contents.Checkpoint
	if err := c.do(ctx, http.MethodGet, c.endpoint(checkpointsRoot, cp, nil), nil, &list); err != nil {
		return nil, pathErr("checkpoint", p, err)
	}
	if list == nil {
		list = []contents.Checkpoint{}
	}
	return list, nil
}

func (c *Client) RestoreCheckpoint(ctx context.Context, p, checkpointID string) error {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("id", checkpointID)
	if err := c.do(ctx, http.MethodPut, c.endpoint(checkpointsRoot, cp, q), nil, nil); err != nil {
		return pathErr("restore", p, err)
	}
	return nil
}

func (c *Client) DeleteCheckpoint(ctx context.Context, p, checkpointID string) error {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("id", checkpointID)
	if err := c.do(ctx, http.MethodDelete, c.endpoint(checkpointsRoot, cp, q), nil, nil); err != nil {
		return pathErr("checkpoint", p, err)
	}
	return nil
}

// endpoint builds the request URL for a cleaned content path under root.
// Escaping happens when the URL is rendered, so paths with spaces and the
// like survive the trip.
func (c *Client) endpoint(root, cp string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + root + "/" + cp
	u.RawPath = ""
	u.RawQuery = query.Encode()
	return u.String()
}

// do sends one request. body is marshaled as JSON when non-nil; a 2xx reply
// is decoded into out when out is non-nil. Error replies come back as the
// matching backend sentinel.
func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns an error reply into the backend sentinel its code names.
// Replies without a known code keep the server's message.
func decodeError(resp *http.Response) error {
	var reply errorReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil || reply.Error == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if sentinel := sentinelFor(reply.Code); sentinel != nil {
		return sentinel
	}
	return errors.New(reply.Error)
}

func pathErr(op, path string, err error) error {
	return &contents.PathError{Op: op, Path: path, Err: err}
}
