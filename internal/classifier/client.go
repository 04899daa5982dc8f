// Package classifier talks to the external CLIP classification service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Result is the classifier's verdict for one image.
type Result struct {
	Category         string             `json:"category"`
	Confidence       float64            `json:"confidence"`
	AllScores        map[string]float64 `json:"all_scores"`
	TopLabels        []string           `json:"top_labels"`
	Entropy          float64            `json:"entropy"`
	ConfidenceMargin float64            `json:"confidence_margin"`
	NSFWScore        float64            `json:"nsfw_score"`
	IsNSFW           bool               `json:"is_nsfw"`
	Ambiguous        bool               `json:"ambiguous"`
	AffinityWeight   float64            `json:"affinity_weight"`
	ImageHash        string             `json:"image_hash"`
	ModelName        string             `json:"model_name"`
}

// Client uploads images to the classifier service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a classifier client for the given base URL. A zero
// timeout means no client-side deadline beyond the request context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Classify uploads one image and returns the service's verdict.
func (c *Client) Classify(ctx context.Context, filename string, data []byte) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("classifier: build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("classifier: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("classifier: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", &body)
	if err != nil {
		return nil, fmt.Errorf("classifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier: classify %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("classifier: classify %s: status %d: %s",
			filename, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("classifier: decode response for %s: %w", filename, err)
	}
	return &result, nil
}

// Ping checks the service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("classifier: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("classifier: ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier: ping: status %d", resp.StatusCode)
	}
	return nil
}
