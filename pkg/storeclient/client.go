// Package storeclient talks to the vendor/purchase-order resource store over
// HTTP and implements contract.EntityStore.
package storeclient

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

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

const maxErrorBodyBytes = 64 << 10

type Config struct {
	URL     string        `envconfig:"URL" default:"http://localhost:8080"`
	Timeout time.Duration `split_words:"true" default:"0s"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ contractx.EntityStore = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New builds a client for cfg.URL. A zero Timeout means requests wait as long
// as their context allows.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("store url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid store url: %w", err)
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	c, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

/* ------------------------------ Vendors ------------------------------ */

func (c *Client) ListVendors(ctx context.Context) ([]contractx.Vendor, error) {
	var out []contractx.Vendor
	if err := c.call(ctx, http.MethodGet, "/vendors", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateVendor(ctx context.Context, fields contractx.VendorFields) (contractx.Vendor, error) {
	var out contractx.Vendor
	err := c.call(ctx, http.MethodPost, "/vendors", fields, &out)
	return out, err
}

func (c *Client) UpdateVendor(ctx context.Context, id int64, fields contractx.VendorFields) (contractx.Vendor, error) {
	var out contractx.Vendor
	err := c.call(ctx, http.MethodPut, fmt.Sprintf("/vendors/%d", id), fields, &out)
	return out, err
}

func (c *Client) DeleteVendor(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/vendors/%d", id), nil, nil)
}

/* --------------------------- Purchase orders --------------------------- */

func (c *Client) ListOrders(ctx context.Context) ([]contractx.PurchaseOrder, error) {
	var out []contractx.PurchaseOrder
	if err := c.call(ctx, http.MethodGet, "/pos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, fields contractx.OrderFields) (contractx.PurchaseOrder, error) {
	var out contractx.PurchaseOrder
	err := c.call(ctx, http.MethodPost, "/pos", fields, &out)
	return out, err
}

func (c *Client) ReviseOrder(ctx context.Context, id int64, fields contractx.OrderFields) (contractx.PurchaseOrder, error) {
	var out contractx.PurchaseOrder
	err := c.call(ctx, http.MethodPut, fmt.Sprintf("/pos/%d/revise", id), fields, &out)
	return out, err
}

func (c *Client) ArchiveOrder(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/pos/%d/archive", id), nil, nil)
}

func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/pos/%d", id), nil, nil)
}

/* ------------------------------ Transport ------------------------------ */

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// decodeJSON turns a non-2xx response into *contract.RemoteError carrying the
// body text, and otherwise decodes into v when v is non-nil.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return &contractx.RemoteError{
			Status: resp.StatusCode,
			Detail: strings.TrimSpace(string(body)),
		}
	}
	if v == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
