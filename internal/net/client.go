package net

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"drawoverlay/internal/surface"
)

var ErrUploadRejected = errors.New("upload rejected")

// Client posts exports to an upload endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{Endpoint: endpoint, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// Body packages exp as a multipart form with a single image field.
func Body(exp *surface.Export) (contentType string, body *bytes.Buffer, err error) {
	body = &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ImageField, exp.Filename))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", nil, err
	}
	if _, err := part.Write(exp.PNG); err != nil {
		return "", nil, err
	}
	if err := mw.Close(); err != nil {
		return "", nil, err
	}
	return mw.FormDataContentType(), body, nil
}

// Upload sends exp and returns the stored path reported by the server.
func (c *Client) Upload(ctx context.Context, exp *surface.Export) (string, error) {
	contentType, body, err := Body(exp)
	if err != nil {
		return "", fmt.Errorf("package upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", exp.Filename, err)
	}
	defer resp.Body.Close()

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload %s: %s: unreadable reply: %w", exp.Filename, resp.Status, err)
	}
	if !out.Success {
		return "", fmt.Errorf("%w (%s): %s", ErrUploadRejected, resp.Status, out.Message)
	}
	return out.Path, nil
}
