// Package registry talks to the external system of record that mirrors
// session occupancy. The worker pushes counts here; the registry's own
// storage model is not our concern.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/exambooking/internal/kafka"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// PushOccupancy reports a session's occupancy to the registry.
func (c *Client) PushOccupancy(ctx context.Context, event kafka.OccupancyEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal occupancy: %w", err)
	}

	url := fmt.Sprintf("%s/sessions/%d/occupancy", c.baseURL, event.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push occupancy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("registry rejected occupancy for session %d: %s", event.SessionID, resp.Status)
	}
	return nil
}
