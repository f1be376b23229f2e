// Package jamendo implements the Catalog port against the Jamendo v3.0 API.
package jamendo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

const (
	// DefaultBaseURL is the Jamendo API endpoint.
	DefaultBaseURL = "https://api.jamendo.com/v3.0"

	// DefaultLimit is the page size used for every list.
	DefaultLimit = 10

	// maxOffset bounds the random page offset so results vary between calls.
	maxOffset = 100

	// maxBodyBytes caps a catalog response.
	maxBodyBytes = 4 << 20

	statusSuccess = "success"
)

// Config holds client configuration.
type Config struct {
	ClientID   string        // Required: Jamendo client id
	BaseURL    string        // Optional: defaults to DefaultBaseURL (used for testing)
	Limit      int           // Optional: defaults to DefaultLimit
	Timeout    time.Duration // Optional: per-request timeout (0 means none beyond ctx)
	HTTPClient *http.Client  // Optional: defaults to http.DefaultClient
	Logger     *slog.Logger  // Optional
	// Offset returns the page offset for a request. Defaults to a random
	// value in [0, 100).
	Offset func() int
}

// Client is a Jamendo catalog client.
type Client struct {
	clientID   string
	baseURL    string
	limit      int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	offset     func() int
}

// NewClient creates a new Jamendo client.
// Returns an error if the client id is missing or the base URL is invalid.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, domain.NewValidationError("catalog.client_id", cfg.ClientID, "client id is required")
	}

	baseURL := strings.TrimRight(lo.Ternary(cfg.BaseURL == "", DefaultBaseURL, cfg.BaseURL), "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, domain.NewValidationError("catalog.base_url", cfg.BaseURL, err.Error())
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		clientID:   cfg.ClientID,
		baseURL:    baseURL,
		limit:      lo.Ternary(cfg.Limit > 0, cfg.Limit, DefaultLimit),
		timeout:    cfg.Timeout,
		httpClient: lo.Ternary(cfg.HTTPClient != nil, cfg.HTTPClient, http.DefaultClient),
		logger:     logger,
		offset:     lo.Ternary(cfg.Offset != nil, cfg.Offset, randomOffset),
	}, nil
}

func randomOffset() int {
	return rand.IntN(maxOffset)
}

// FeaturedTracks returns all-time popular tracks.
func (c *Client) FeaturedTracks(ctx context.Context, tag string) ([]domain.Track, error) {
	return c.tracks(ctx, "featured", tag, url.Values{"boost": {"popularity_total"}})
}

// TrendingTracks returns tracks popular this week.
func (c *Client) TrendingTracks(ctx context.Context, tag string) ([]domain.Track, error) {
	return c.tracks(ctx, "trending", tag, url.Values{"boost": {"popularity_week"}})
}

// NewAlbums returns the most recently released albums.
func (c *Client) NewAlbums(ctx context.Context, tag string) ([]domain.Album, error) {
	var resp response[albumJSON]
	if err := c.get(ctx, "albums", "/albums/", tag, url.Values{"orderby": {"releasedate_desc"}}, &resp); err != nil {
		return nil, err
	}
	return lo.Map(resp.Results, func(a albumJSON, _ int) domain.Album {
		return a.toDomain()
	}), nil
}

// SearchTracks returns tracks matching query, best matches first.
// Search results always start at the first page.
func (c *Client) SearchTracks(ctx context.Context, query string) ([]domain.Track, error) {
	return c.tracks(ctx, "search", "", url.Values{
		"search":  {query},
		"offset":  {"0"},
		"orderby": {"relevance"},
	})
}

func (c *Client) tracks(ctx context.Context, op, tag string, extra url.Values) ([]domain.Track, error) {
	var resp response[trackJSON]
	if err := c.get(ctx, op, "/tracks/", tag, extra, &resp); err != nil {
		return nil, err
	}
	tracks := lo.Map(resp.Results, func(t trackJSON, _ int) domain.Track {
		return t.toDomain()
	})
	// A track without a stream cannot be queued.
	return lo.Filter(tracks, func(t domain.Track, _ int) bool {
		return t.AudioURL != ""
	}), nil
}

// get performs a list request and decodes the envelope into out.
func (c *Client) get(ctx context.Context, op, path, tag string, extra url.Values, out envelope) error {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("offset", strconv.Itoa(c.offset()))
	if tag != "" {
		q.Set("tags", tag)
	}
	for k, v := range extra {
		q[k] = v
	}
	endpoint := c.baseURL + path + "?" + q.Encode()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.NewCatalogError(op, 0, 0, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewCatalogError(op, 0, 0, "request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("catalog request",
		slog.String("op", op),
		slog.String("tag", tag),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.NewCatalogError(op, resp.StatusCode, 0, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.NewCatalogError(op, resp.StatusCode, 0, http.StatusText(resp.StatusCode), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewCatalogError(op, resp.StatusCode, 0, "failed to decode response", err)
	}

	h := out.header()
	if h.Status != statusSuccess {
		return domain.NewCatalogError(op, resp.StatusCode, h.Code, h.ErrorMessage, nil)
	}
	return nil
}

// envelope is implemented by every response type.
type envelope interface {
	header() headerJSON
}

type headerJSON struct {
	Status       string `json:"status"`
	Code         int    `json:"code"`
	ErrorMessage string `json:"error_message"`
	Warnings     string `json:"warnings"`
	ResultsCount int    `json:"results_count"`
}

type response[T any] struct {
	Headers headerJSON `json:"headers"`
	Results []T        `json:"results"`
}

func (r *response[T]) header() headerJSON { return r.Headers }

type trackJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Duration   int    `json:"duration"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name"`
	AlbumImage string `json:"album_image"`
	Image      string `json:"image"`
	Audio      string `json:"audio"`
	ShareURL   string `json:"shareurl"`
}

func (t trackJSON) toDomain() domain.Track {
	return domain.Track{
		ID:         t.ID,
		Name:       t.Name,
		ArtistName: t.ArtistName,
		AlbumName:  t.AlbumName,
		AlbumImage: lo.CoalesceOrEmpty(t.AlbumImage, t.Image),
		AudioURL:   t.Audio,
		ShareURL:   t.ShareURL,
		Duration:   time.Duration(t.Duration) * time.Second,
	}
}

type albumJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ArtistName  string `json:"artist_name"`
	Image       string `json:"image"`
	ReleaseDate string `json:"releasedate"`
	ShareURL    string `json:"shareurl"`
}

func (a albumJSON) toDomain() domain.Album {
	return domain.Album{
		ID:          a.ID,
		Name:        a.Name,
		ArtistName:  a.ArtistName,
		Image:       a.Image,
		ReleaseDate: a.ReleaseDate,
		ShareURL:    a.ShareURL,
	}
}

// String identifies the client in logs.
func (c *Client) String() string {
	return fmt.Sprintf("jamendo(%s)", c.baseURL)
}

var _ ports.Catalog = (*Client)(nil)
