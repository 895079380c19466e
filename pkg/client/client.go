// Package client is a small HTTP client for the storefront admin endpoints.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"

	"github.com/irevive/storefront/internal/catalog"
	"github.com/irevive/storefront/internal/inventory"
	"github.com/irevive/storefront/internal/orders"
)

// APIError is a non-2xx answer from the storefront.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	http *resty.Client
}

// New creates a client for the storefront served at baseURL.
func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(baseURL+"/api").
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	r.JSONMarshal = json.Marshal
	r.JSONUnmarshal = json.Unmarshal
	return &Client{http: r}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := &APIError{}
	req := c.http.R().SetContext(ctx).SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = resp.Status()
		}
		return apiErr
	}
	return nil
}

func variantPath(variantID string) string {
	return "/inventory/" + url.PathEscape(variantID)
}

func (c *Client) GetStock(ctx context.Context, variantID string) (int, error) {
	var out struct {
		Stock int `json:"stock"`
	}
	err := c.do(ctx, resty.MethodGet, variantPath(variantID), nil, &out)
	return out.Stock, err
}

func (c *Client) SetStock(ctx context.Context, variantID string, stock int) (*inventory.StockChange, error) {
	var change inventory.StockChange
	err := c.do(ctx, resty.MethodPut, variantPath(variantID), map[string]int{"stock": stock}, &change)
	if err != nil {
		return nil, err
	}
	return &change, nil
}

func (c *Client) AdjustStock(ctx context.Context, variantID string, delta int) (*inventory.StockChange, error) {
	var change inventory.StockChange
	err := c.do(ctx, resty.MethodPost, variantPath(variantID)+"/adjust", map[string]int{"delta": delta}, &change)
	if err != nil {
		return nil, err
	}
	return &change, nil
}

func (c *Client) Stats(ctx context.Context) (*inventory.Stats, error) {
	var stats inventory.Stats
	if err := c.do(ctx, resty.MethodGet, "/inventory/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// LowStock lists variants at or below threshold. A negative threshold uses
// the server default.
func (c *Client) LowStock(ctx context.Context, threshold int) ([]catalog.Variant, error) {
	path := "/inventory/low-stock"
	if threshold >= 0 {
		path += "?threshold=" + strconv.Itoa(threshold)
	}
	var out struct {
		Data []catalog.Variant `json:"data"`
	}
	if err := c.do(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	var order orders.Order
	if err := c.do(ctx, resty.MethodGet, "/orders/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) ListOrders(ctx context.Context, status orders.Status) ([]orders.Order, error) {
	path := "/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out struct {
		Data []orders.Order `json:"data"`
	}
	if err := c.do(ctx, resty.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status orders.Status) (*orders.Order, error) {
	var order orders.Order
	err := c.do(ctx, resty.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", map[string]orders.Status{"status": status}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CancelOrder(ctx context.Context, id string) (*orders.Order, error) {
	var order orders.Order
	if err := c.do(ctx, resty.MethodPost, "/orders/"+url.PathEscape(id)+"/cancel", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
