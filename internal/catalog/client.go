package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
	"github.com/tidemark-labs/spillview/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the number of products requested per page.
	DefaultPageSize = 20

	// DefaultMaxPages caps pagination so one lookup cannot walk an
	// unbounded result set.
	DefaultMaxPages = 5

	// DefaultWindowDays is the half-width of the acquisition window
	// FindImagery searches around a detection time.
	DefaultWindowDays = 7

	// DefaultRadiusKm is the buffer radius FindImagery searches
	// around a detection point.
	DefaultRadiusKm = 50
)

// Config holds the catalog endpoints and search defaults.
type Config struct {
	// SearchURL is the product search endpoint (POST, JSON query).
	SearchURL string

	// PreviewURL is the base URL for product preview images; the
	// product id is appended as a path element.
	PreviewURL string

	// ProcessURL is the raster rendering endpoint.
	ProcessURL string

	// RadarCollection and OpticalCollection name the two product
	// families in the catalog.
	RadarCollection   string
	OpticalCollection string

	// MaxCloudCover constrains optical searches (percentage).
	MaxCloudCover *float64

	PageSize   int
	MaxPages   int
	WindowDays int
	RadiusKm   float64
}

// Ensure Client implements the searcher port.
var _ driven.ImagerySearcher = (*Client)(nil)

// Client issues authenticated search requests against the imagery
// catalog and maps raw catalog records into the uniform Product shape.
type Client struct {
	cfg        Config
	tokens     driven.TokenProvider
	httpClient *http.Client
	limiter    *RateLimiter
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithClientHTTP sets the HTTP client used for catalog requests.
func WithClientHTTP(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a catalog client with a token provider.
func NewClient(cfg Config, tokens driven.TokenProvider, opts ...ClientOption) *Client {
	if cfg.RadarCollection == "" {
		cfg.RadarCollection = "SENTINEL-1"
	}
	if cfg.OpticalCollection == "" {
		cfg.OpticalCollection = "SENTINEL-2"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = DefaultRadiusKm
	}

	c := &Client{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchRadar searches the radar (SAR) product family.
func (c *Client) SearchRadar(ctx context.Context, params driven.ImagerySearch) ([]domain.Product, error) {
	query, err := BuildQuery(c.cfg.RadarCollection, params.Center, params.RadiusKm, params.Start, params.End)
	if err != nil {
		return nil, err
	}
	query.Limit = c.cfg.PageSize
	return c.search(ctx, domain.PlatformSAR, query)
}

// SearchOptical searches the optical multi-spectral product family.
func (c *Client) SearchOptical(ctx context.Context, params driven.ImagerySearch) ([]domain.Product, error) {
	query, err := BuildQuery(c.cfg.OpticalCollection, params.Center, params.RadiusKm, params.Start, params.End)
	if err != nil {
		return nil, err
	}
	query.Limit = c.cfg.PageSize
	if params.MaxCloudCover != nil {
		query.MaxCloudCover = params.MaxCloudCover
	} else if c.cfg.MaxCloudCover != nil {
		query.MaxCloudCover = c.cfg.MaxCloudCover
	}
	return c.search(ctx, domain.PlatformOptical, query)
}

// FindImagery looks up radar and optical imagery around a detection.
// The two family searches run concurrently and one family's failure
// never blocks the other: a failed family degrades to an empty list
// and the bundle is marked partial. Only when both fail is the
// aggregate error surfaced.
func (c *Client) FindImagery(ctx context.Context, lat, lon float64, centerTime time.Time) (*domain.ImageryBundle, error) {
	center := domain.Point{Latitude: lat, Longitude: lon}
	if err := center.Validate(); err != nil {
		return nil, err
	}

	window := time.Duration(c.cfg.WindowDays) * 24 * time.Hour
	params := driven.ImagerySearch{
		Center:   center,
		RadiusKm: c.cfg.RadiusKm,
		Start:    centerTime.Add(-window),
		End:      centerTime.Add(window),
	}

	var (
		wg         sync.WaitGroup
		radar      []domain.Product
		optical    []domain.Product
		radarErr   error
		opticalErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		radar, radarErr = c.SearchRadar(ctx, params)
	}()
	go func() {
		defer wg.Done()
		optical, opticalErr = c.SearchOptical(ctx, params)
	}()
	wg.Wait()

	if radarErr != nil && opticalErr != nil {
		return nil, fmt.Errorf("imagery lookup failed: %w", errors.Join(radarErr, opticalErr))
	}

	bundle := &domain.ImageryBundle{
		Radar:   radar,
		Optical: optical,
	}
	if radarErr != nil {
		logger.Warn("Radar search failed, returning optical only: %v", radarErr)
		bundle.Radar = nil
		bundle.Partial = true
	}
	if opticalErr != nil {
		logger.Warn("Optical search failed, returning radar only: %v", opticalErr)
		bundle.Optical = nil
		bundle.Partial = true
	}
	return bundle, nil
}

// rawProduct is one raw catalog record.
type rawProduct struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentDate struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"content_date"`
	Footprint   string `json:"footprint"`
	PreviewURL  string `json:"preview_url"`
	DownloadURL string `json:"download_url"`
	Attributes  []struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	} `json:"attributes"`
}

// searchResponse is one page of catalog results. Next carries the
// absolute URL of the following page, empty on the last page.
type searchResponse struct {
	Value []rawProduct `json:"value"`
	Next  string       `json:"next"`
}

// search issues the query and follows pagination links, mapping raw
// records to Products.
func (c *Client) search(ctx context.Context, platform domain.Platform, query Query) ([]domain.Product, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	var products []domain.Product
	method, reqURL, payload := http.MethodPost, c.cfg.SearchURL, body

	for page := 0; page < c.cfg.MaxPages; page++ {
		select {
		case <-ctx.Done():
			return products, ctx.Err()
		default:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		respBody, err := c.doAuthenticated(ctx, method, reqURL, payload, "application/json")
		if err != nil {
			return nil, err
		}

		var pageResp searchResponse
		if err := json.Unmarshal(respBody, &pageResp); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}

		for i := range pageResp.Value {
			products = append(products, mapProduct(&pageResp.Value[i], platform))
		}

		if pageResp.Next == "" {
			break
		}
		// Subsequent pages are fetched by following the link.
		method, reqURL, payload = http.MethodGet, pageResp.Next, nil
	}

	logger.Debug("Catalog search (%s) returned %d products", platform, len(products))
	return products, nil
}

// doAuthenticated performs one request with a bearer token. On a 401
// it clears the token cache and retries exactly once with a freshly
// obtained token; a second 401 is a terminal AuthError. Any other
// non-2xx response becomes an APIError.
func (c *Client) doAuthenticated(ctx context.Context, method, reqURL string, body []byte, contentType string) ([]byte, error) {
	retried := false
	for {
		token, err := c.tokens.GetToken(ctx)
		if err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("catalog request: %w", err)
		}

		if rlErr := c.limiter.CheckRateLimit(resp); rlErr != nil {
			resp.Body.Close()
			return nil, rlErr
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if retried {
				return nil, &AuthError{Message: "catalog rejected token after refresh"}
			}
			logger.Debug("Catalog returned 401, clearing token and retrying once")
			c.tokens.Clear()
			retried = true
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    apiErrorMessage(respBody),
				URL:        reqURL,
			}
		}
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		return respBody, nil
	}
}

// apiErrorMessage extracts an error message from a catalog error body,
// falling back to the raw body when it is not the expected JSON.
func apiErrorMessage(body []byte) string {
	var errResp struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Detail != "" {
			return errResp.Detail
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// mapProduct converts a raw catalog record to the uniform Product
// shape. Cloud coverage comes from the attribute list when present.
func mapProduct(raw *rawProduct, platform domain.Platform) domain.Product {
	p := domain.Product{
		ID:              raw.ID,
		Title:           raw.Name,
		Platform:        platform,
		AcquisitionDate: raw.ContentDate.Start,
		Footprint:       raw.Footprint,
		PreviewURL:      raw.PreviewURL,
		DownloadURL:     raw.DownloadURL,
	}
	for _, attr := range raw.Attributes {
		if attr.Name == "cloudCover" {
			cover := attr.Value
			p.CloudCoverage = &cover
			break
		}
	}
	return p
}

// Preview fetches the binary preview image for a product. It uses an
// oauth2 client built over the token cache so the bearer token is
// attached by the transport.
func (c *Client) Preview(ctx context.Context, productID string) ([]byte, error) {
	if productID == "" {
		return nil, &domain.ValidationError{Field: "product_id", Message: "must not be empty"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	client := oauth2.NewClient(ctx, NewTokenSource(ctx, c.tokens))
	client.Timeout = DefaultTimeout

	reqURL := c.cfg.PreviewURL + "/" + productID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create preview request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preview request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(body),
			URL:        reqURL,
		}
	}
	return io.ReadAll(resp.Body)
}

// ProcessRequest asks the rendering endpoint for a raster image of a
// bounding box in a narrow time window, visualised with the given
// evalscript bands.
type ProcessRequest struct {
	Platform   domain.Platform `json:"platform"`
	Evalscript string          `json:"evalscript"`

	// BBox is [minLon, minLat, maxLon, maxLat].
	BBox  [4]float64 `json:"bbox"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// Process renders a raster image via the catalog's processing
// endpoint.
func (c *Client) Process(ctx context.Context, req ProcessRequest) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode process request: %w", err)
	}
	return c.doAuthenticated(ctx, http.MethodPost, c.cfg.ProcessURL, body, "application/json")
}
