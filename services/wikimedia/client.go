// Package wikimedia is a small client for the MediaWiki action API as served
// by Wikipedia and Wikimedia Commons.
package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	DefaultWikiAPIURL    = "https://en.wikipedia.org/w/api.php"
	DefaultCommonsAPIURL = "https://commons.wikimedia.org/w/api.php"

	defaultUserAgent = "university-explorer/1.0 (https://github.com/sahilchouksey/university-explorer)"
	listLimit        = "50"
)

var (
	// ErrUpstream wraps non-2xx answers and API-level errors
	ErrUpstream = errors.New("wikimedia upstream error")
)

// Config controls endpoints and the per-call bounds of the client
type Config struct {
	WikiAPIURL        string
	CommonsAPIURL     string
	CallTimeout       time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// ImageInfo is the subset of Commons file metadata used for attribution
type ImageInfo struct {
	Title          string
	URL            string
	DescriptionURL string
	MIME           string
	Artist         string
	License        string
	Description    string
	ObjectName     string
}

// Client issues rate limited, circuit broken requests to the action API
type Client struct {
	http    *resty.Client
	cfg     Config
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a client, filling unset config with defaults
func NewClient(cfg Config) *Client {
	if cfg.WikiAPIURL == "" {
		cfg.WikiAPIURL = DefaultWikiAPIURL
	}
	if cfg.CommonsAPIURL == "" {
		cfg.CommonsAPIURL = DefaultCommonsAPIURL
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 4 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	httpClient := resty.New().
		SetTimeout(cfg.CallTimeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "wikimedia-api",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cb:      cb,
	}
}

type queryEnvelope struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
		CategoryMembers []struct {
			Title string `json:"title"`
		} `json:"categorymembers"`
		Pages []struct {
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
			Images  []struct {
				Title string `json:"title"`
			} `json:"images"`
			ImageInfo []struct {
				URL            string                   `json:"url"`
				DescriptionURL string                   `json:"descriptionurl"`
				MIME           string                   `json:"mime"`
				ExtMetadata    map[string]metadataEntry `json:"extmetadata"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

type metadataEntry struct {
	Value interface{} `json:"value"`
}

// Search returns the titles of the top article hits for query
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	env, err := c.query(ctx, c.cfg.WikiAPIURL, map[string]string{
		"list":     "search",
		"srsearch": query,
		"srlimit":  fmt.Sprint(limit),
		"srwhat":   "text",
	})
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(env.Query.Search))
	for _, hit := range env.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

// PageImages returns the file titles embedded in an article
func (c *Client) PageImages(ctx context.Context, title string) ([]string, error) {
	env, err := c.query(ctx, c.cfg.WikiAPIURL, map[string]string{
		"prop":    "images",
		"titles":  title,
		"imlimit": listLimit,
	})
	if err != nil {
		return nil, err
	}

	var files []string
	for _, page := range env.Query.Pages {
		for _, img := range page.Images {
			files = append(files, img.Title)
		}
	}
	return files, nil
}

// CategoryFiles returns the file members of a Commons category
func (c *Client) CategoryFiles(ctx context.Context, category string) ([]string, error) {
	if !strings.HasPrefix(category, "Category:") {
		category = "Category:" + category
	}
	env, err := c.query(ctx, c.cfg.CommonsAPIURL, map[string]string{
		"list":    "categorymembers",
		"cmtitle": category,
		"cmtype":  "file",
		"cmlimit": listLimit,
	})
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(env.Query.CategoryMembers))
	for _, member := range env.Query.CategoryMembers {
		files = append(files, member.Title)
	}
	return files, nil
}

// ImageInfo fetches the URL and attribution metadata of a file. A file
// unknown to Commons yields (nil, nil).
func (c *Client) ImageInfo(ctx context.Context, fileTitle string) (*ImageInfo, error) {
	env, err := c.query(ctx, c.cfg.CommonsAPIURL, map[string]string{
		"prop":   "imageinfo",
		"titles": fileTitle,
		"iiprop": "url|mime|extmetadata",
	})
	if err != nil {
		return nil, err
	}

	for _, page := range env.Query.Pages {
		if page.Missing && len(page.ImageInfo) == 0 {
			continue
		}
		for _, ii := range page.ImageInfo {
			return &ImageInfo{
				Title:          page.Title,
				URL:            ii.URL,
				DescriptionURL: ii.DescriptionURL,
				MIME:           ii.MIME,
				Artist:         metadataText(ii.ExtMetadata, "Artist"),
				License:        metadataText(ii.ExtMetadata, "LicenseShortName"),
				Description:    metadataText(ii.ExtMetadata, "ImageDescription"),
				ObjectName:     metadataText(ii.ExtMetadata, "ObjectName"),
			}, nil
		}
	}
	return nil, nil
}

func (c *Client) query(ctx context.Context, endpoint string, params map[string]string) (*queryEnvelope, error) {
	params["action"] = "query"
	params["format"] = "json"
	params["formatversion"] = "2"

	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var env queryEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode wikimedia response: %w", err)
	}
	if env.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrUpstream, env.Error.Code, env.Error.Info)
	}
	return &env, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return c.cb.Execute(func() ([]byte, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(endpoint)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%w: %s returned %d", ErrUpstream, endpoint, resp.StatusCode())
		}
		return resp.Body(), nil
	})
}

func metadataText(meta map[string]metadataEntry, key string) string {
	entry, ok := meta[key]
	if !ok || entry.Value == nil {
		return ""
	}
	raw, ok := entry.Value.(string)
	if !ok {
		raw = fmt.Sprint(entry.Value)
	}
	return HTMLText(raw)
}

// HTMLText flattens an HTML fragment to its whitespace-normalised text
func HTMLText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte(' ')
			}
		}
	}
}
