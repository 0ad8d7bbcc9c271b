package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dispatcher hands a staged upload to the converter responsible for its
// format. Implementations are invoked asynchronously; the uploading client
// has already received its correlation identifier by then.
type Dispatcher interface {
	Dispatch(ctx context.Context, stagedPath, uuid string) error
}

// ConverterClient forwards staged files to downstream converter endpoints
// over HTTP, selected from a closed per-extension table.
type ConverterClient struct {
	endpoints map[string]string
	client    *http.Client
}

// NewConverterClient builds a ConverterClient for the two known converter
// endpoints.
func NewConverterClient(gpxURL, fitURL string, timeout time.Duration) *ConverterClient {
	return &ConverterClient{
		endpoints: map[string]string{
			".gpx": gpxURL,
			".fit": fitURL,
		},
		client: &http.Client{Timeout: timeout},
	}
}

// Dispatch implements Dispatcher. It re-reads the staged file, wraps it in
// a multipart form under the "file" field, and POSTs it to the converter
// with the uuid as a query parameter. The staged file is removed afterwards
// whether or not the converter accepted it.
func (c *ConverterClient) Dispatch(ctx context.Context, stagedPath, uuid string) error {
	defer os.Remove(stagedPath)

	endpoint, ok := c.endpoints[strings.ToLower(filepath.Ext(stagedPath))]
	if !ok {
		return fmt.Errorf("no converter for extension %q", filepath.Ext(stagedPath))
	}

	data, err := os.ReadFile(stagedPath)
	if err != nil {
		return fmt.Errorf("read staged file: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(stagedPath))
	if err != nil {
		return fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write form: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	target, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse converter url: %w", err)
	}
	query := target.Query()
	query.Set("uuid", uuid)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to converter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("converter returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
