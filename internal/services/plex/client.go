package plex

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"plexbanner/internal/config"
	"plexbanner/internal/imagehash"
	"plexbanner/internal/services"
)

const (
	userAgent = "plexbanner/0.1.0"
	stageName = "plex"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to a single Plex server.
type Client struct {
	baseURL string
	token   string
	http    HTTPDoer

	mu       sync.Mutex
	sections map[string]Section
}

// New constructs a client. A nil doer selects http.DefaultClient.
func New(baseURL, token string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    doer,
	}
}

// NewFromConfig builds a client from the [plex] section.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if err := cfg.RequirePlex(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "configure", "", err)
	}
	timeout := time.Duration(cfg.Plex.TimeoutSeconds) * time.Second
	return New(cfg.Plex.URL, cfg.Plex.Token, &http.Client{Timeout: timeout}), nil
}

// Section is a library section.
type Section struct {
	Key   string
	Title string
	Type  string
}

// Sections returns library sections keyed by lower-cased title. The result
// is cached for the lifetime of the client.
func (c *Client) Sections(ctx context.Context) (map[string]Section, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sections != nil {
		return c.sections, nil
	}

	var container mediaContainer
	if err := c.getXML(ctx, "sections", "/library/sections", nil, &container); err != nil {
		return nil, err
	}
	sections := make(map[string]Section, len(container.Directories))
	for _, dir := range container.Directories {
		if dir.Key == "" || dir.Title == "" {
			continue
		}
		sections[strings.ToLower(dir.Title)] = Section{Key: dir.Key, Title: dir.Title, Type: dir.Type}
	}
	c.sections = sections
	return sections, nil
}

// LibraryItems lists every item of the given type in the named library.
func (c *Client) LibraryItems(ctx context.Context, library string, kind ItemType) ([]Item, error) {
	sections, err := c.Sections(ctx)
	if err != nil {
		return nil, err
	}
	section, ok := sections[strings.ToLower(strings.TrimSpace(library))]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, stageName, "library", fmt.Sprintf("library %q not found", library), nil)
	}
	query := url.Values{}
	if code := kind.code(); code > 0 {
		query.Set("type", strconv.Itoa(code))
	}
	var container mediaContainer
	if err := c.getXML(ctx, "library", "/library/sections/"+url.PathEscape(section.Key)+"/all", query, &container); err != nil {
		return nil, err
	}
	return container.items(), nil
}

// Item fetches the metadata of one item by rating key.
func (c *Client) Item(ctx context.Context, ratingKey string) (Item, error) {
	ratingKey = strings.TrimSpace(ratingKey)
	if ratingKey == "" {
		return Item{}, services.Wrap(services.ErrValidation, stageName, "item", "empty rating key", nil)
	}
	var container mediaContainer
	if err := c.getXML(ctx, "item", "/library/metadata/"+url.PathEscape(ratingKey), nil, &container); err != nil {
		return Item{}, err
	}
	items := container.items()
	if len(items) == 0 {
		return Item{}, services.Wrap(services.ErrNotFound, stageName, "item", "no metadata for "+ratingKey, nil)
	}
	return items[0], nil
}

// Poster downloads the item's poster rendered at size. Decode failures wrap
// imagehash.ErrImageDecode.
func (c *Client) Poster(ctx context.Context, item Item, size image.Point) (image.Image, error) {
	thumb := item.PosterPath()
	if thumb == "" {
		return nil, services.Wrap(services.ErrNotFound, stageName, "poster", "item has no poster", nil)
	}
	query := url.Values{}
	query.Set("url", thumb)
	query.Set("width", strconv.Itoa(size.X))
	query.Set("height", strconv.Itoa(size.Y))
	query.Set("minSize", "1")
	query.Set("upscale", "1")
	query.Set("format", "png")

	data, err := c.do(ctx, "poster", http.MethodGet, "/photo/:/transcode", query, nil, "image/*")
	if err != nil {
		return nil, err
	}
	img, err := imagehash.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("poster for %s: %w", item.RatingKey, err)
	}
	return img, nil
}

// UploadPoster replaces the item's poster with the given PNG bytes.
func (c *Client) UploadPoster(ctx context.Context, ratingKey string, png []byte) error {
	if len(png) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "upload", "empty poster", nil)
	}
	_, err := c.do(ctx, "upload", http.MethodPost, "/library/metadata/"+url.PathEscape(ratingKey)+"/posters", nil, png, "")
	return err
}

// AddLabel attaches an unlocked label to the item.
func (c *Client) AddLabel(ctx context.Context, ratingKey string, kind ItemType, label string) error {
	query := url.Values{}
	if code := kind.code(); code > 0 {
		query.Set("type", strconv.Itoa(code))
	}
	query.Set("label[0].tag.tag", label)
	query.Set("label.locked", "0")
	_, err := c.do(ctx, "label", http.MethodPut, "/library/metadata/"+url.PathEscape(ratingKey), query, nil, "")
	return err
}

func (c *Client) getXML(ctx context.Context, operation, path string, query url.Values, out any) error {
	data, err := c.do(ctx, operation, http.MethodGet, path, query, nil, "application/xml")
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrValidation, stageName, operation, "decode response", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body []byte, accept string) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, operation, "build request", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", "image/png")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, operation, method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
		return nil, services.Wrap(statusMarker(resp.StatusCode), stageName, operation, msg, nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, operation, "read response", err)
	}
	return data, nil
}

func statusMarker(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.ErrConfiguration
	case status == http.StatusNotFound:
		return services.ErrNotFound
	case status >= 500 || status == http.StatusTooManyRequests:
		return services.ErrTransient
	}
	return services.ErrValidation
}
