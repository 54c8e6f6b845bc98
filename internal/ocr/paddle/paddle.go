// HTTP client for a PaddleOCR structure-recognition sidecar. The sidecar
// loads the model once at startup; this client is constructed once per worker
// and reused for every batch.

package paddle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/jpeg" // register decoders for embedded images returned by the sidecar

	"github.com/docrlabs/docr-go/internal/ocr"
)

// Client talks to the recognition sidecar over HTTP.
type Client struct {
	endpoint string
	language string
	http     *http.Client
}

// New creates a Client and verifies the sidecar is reachable. A sidecar that
// is still loading its model answers the health check only once ready, so a
// successful New means the engine can accept batches.
func New(endpoint, language string, timeout time.Duration) (*Client, error) {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		language: language,
		http:     &http.Client{Timeout: timeout},
	}
	if err := c.ping(); err != nil {
		return nil, fmt.Errorf("recognition sidecar at %s not ready: %w", endpoint, err)
	}
	return c, nil
}

func (c *Client) ping() error {
	resp, err := c.http.Get(c.endpoint + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

type recognizeRequest struct {
	Images   []string `json:"images"` // base64 PNG, page order
	Language string   `json:"language"`
}

type recognizeResponse struct {
	Results []struct {
		Markdown string            `json:"markdown"`
		Layout   json.RawMessage   `json:"layout"`
		Images   map[string]string `json:"images"` // relative path -> base64
	} `json:"results"`
	Error string `json:"error"`
}

// Recognize submits one batch of page images and returns per-page results in
// input order.
func (c *Client) Recognize(ctx context.Context, images []image.Image) ([]ocr.PageResult, error) {
	req := recognizeRequest{Language: c.language, Images: make([]string, 0, len(images))}
	for i, img := range images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page image %d: %w", i, err)
		}
		req.Images = append(req.Images, base64.StdEncoding.EncodeToString(buf.Bytes()))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/recognize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("recognition request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read recognition response: %w", err)
	}

	var decoded recognizeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode recognition response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("recognition sidecar returned %d: %s", resp.StatusCode, msg)
	}
	if len(decoded.Results) != len(images) {
		return nil, fmt.Errorf("recognition returned %d results for %d pages", len(decoded.Results), len(images))
	}

	results := make([]ocr.PageResult, 0, len(decoded.Results))
	for i, r := range decoded.Results {
		pr := ocr.PageResult{Markdown: r.Markdown, Layout: r.Layout}
		if len(r.Images) > 0 {
			pr.Images = make(map[string]image.Image, len(r.Images))
			for rel, data := range r.Images {
				img, err := decodeEmbeddedImage(data)
				if err != nil {
					return nil, fmt.Errorf("decode embedded image %q on page %d: %w", rel, i, err)
				}
				pr.Images[rel] = img
			}
		}
		results = append(results, pr)
	}
	return results, nil
}

// ConcatenatePages joins page fragments with blank lines, dropping trailing
// whitespace per page so page breaks do not accumulate.
func (c *Client) ConcatenatePages(fragments []string) string {
	trimmed := make([]string, 0, len(fragments))
	for _, f := range fragments {
		trimmed = append(trimmed, strings.TrimRight(f, "\n "))
	}
	return strings.Join(trimmed, "\n\n")
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func decodeEmbeddedImage(data string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	return img, err
}
