package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

const DefaultBaseURL = "https://api.vimeo.com"

var (
	ErrNotConfigured = errors.New("vimeo access token is not configured")
	ErrNotFound      = errors.New("vimeo video not found")
	ErrInvalidID     = errors.New("invalid vimeo video id")
)

var videoIDPattern = regexp.MustCompile(`^[0-9]{1,20}$`)

// ValidID reports whether id looks like a numeric Vimeo video id.
func ValidID(id string) bool {
	return videoIDPattern.MatchString(id)
}

type Video struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Duration    int    `json:"duration"`
	Status      string `json:"status"`
	EmbedHTML   string `json:"embed_html"`
}

type vimeoVideo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Duration    int    `json:"duration"`
	Status      string `json:"status"`
	Embed       struct {
		HTML string `json:"html"`
	} `json:"embed"`
}

// Client reads video metadata from the Vimeo API with a fixed access token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(accessToken string) *Client {
	return &Client{
		token:      accessToken,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the client at another API host.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.token != ""
}

func (c *Client) GetVideo(ctx context.Context, id string) (*Video, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	endpoint := fmt.Sprintf("%s/videos/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.vimeo.*+json;version=3.4")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach vimeo: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("vimeo API returned status %d: %s", resp.StatusCode, string(body))
	}

	var v vimeoVideo
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode vimeo response: %w", err)
	}
	return &Video{
		URI:         v.URI,
		Name:        v.Name,
		Description: v.Description,
		Link:        v.Link,
		Duration:    v.Duration,
		Status:      v.Status,
		EmbedHTML:   v.Embed.HTML,
	}, nil
}
