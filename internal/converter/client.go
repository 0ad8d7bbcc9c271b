package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"example.com/garmcloud/internal/domain"
)

// Forwarder delivers a converted activity to the ingestion sink.
type Forwarder interface {
	Forward(ctx context.Context, activity *domain.Activity) error
}

// IngestClient posts activity JSON to the ingest service, tagging the
// request with the uuid and converter label as query parameters.
type IngestClient struct {
	endpoint string
	client   *http.Client
}

// NewIngestClient builds an IngestClient for the configured endpoint.
func NewIngestClient(endpoint string, timeout time.Duration) *IngestClient {
	return &IngestClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Forward implements Forwarder.
func (c *IngestClient) Forward(ctx context.Context, activity *domain.Activity) error {
	body, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	target, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parse ingest url: %w", err)
	}
	query := target.Query()
	query.Set("uuid", activity.UUID)
	query.Set("converter", activity.Converter)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to ingest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ingest returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
