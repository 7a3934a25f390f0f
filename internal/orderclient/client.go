package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"campus-orderboard/internal/models"
	"campus-orderboard/internal/subscription"
)

// Client talks to the authoritative order/catalog service over HTTP. Retry
// policy, auth, and transport framing are that service's concern; from here
// these are opaque calls that either succeed or fail.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// ListOrders performs the bulk fetch, including nested line items.
func (c *Client) ListOrders(ctx context.Context, scope subscription.Scope) ([]models.Order, error) {
	q := url.Values{}
	if scope.VendorID != "" {
		q.Set("vendor_id", scope.VendorID)
	}
	if scope.CounterID != "" {
		q.Set("counter_id", scope.CounterID)
	}

	endpoint := fmt.Sprintf("%s/api/v1/orders", c.BaseURL)
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var orders []models.Order
	if err := c.getJSON(ctx, endpoint, &orders); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListCatalogItems fetches the full catalog for the cache refresh.
func (c *Client) ListCatalogItems(ctx context.Context) ([]models.CatalogItem, error) {
	endpoint := fmt.Sprintf("%s/api/v1/catalog-items", c.BaseURL)

	var items []models.CatalogItem
	if err := c.getJSON(ctx, endpoint, &items); err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	return items, nil
}

// SetItemStatus requests a single line item status change.
func (c *Client) SetItemStatus(ctx context.Context, itemID, status string) error {
	endpoint := fmt.Sprintf("%s/api/v1/line-items/%s/status", c.BaseURL, itemID)
	return c.patchStatus(ctx, endpoint, status)
}

// SetOrderStatusDirect is the authoritative order-level override; it bypasses
// item-level derivation entirely.
func (c *Client) SetOrderStatusDirect(ctx context.Context, orderID, status string) error {
	endpoint := fmt.Sprintf("%s/api/v1/orders/%s/status", c.BaseURL, orderID)
	return c.patchStatus(ctx, endpoint, status)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) patchStatus(ctx context.Context, endpoint, status string) error {
	body, _ := json.Marshal(map[string]string{"status": status})

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
