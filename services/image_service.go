package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/services/wikimedia"
	"github.com/sahilchouksey/university-explorer/utils/cache"
	"github.com/sahilchouksey/university-explorer/utils/metrics"
)

const (
	// NoImageAltText is the alt text of the "no image" result
	NoImageAltText = "No image available"

	relatedPagesLimit = 3
	searchLimit       = 5
)

var (
	webImageExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
	}

	architectureKeywords = []string{
		"campus", "hall", "library", "building", "stadium", "quad", "quadrangle",
		"tower", "chapel", "gate", "aerial", "dormitory", "residence", "auditorium",
		"museum", "facade", "administration", "arena", "courtyard", "lawn",
		"entrance", "center", "centre", "observatory", "fountain",
	}

	excludedKeywords = []string{
		"logo", "icon", "seal", "shield", "crest", "emblem", "flag", "wordmark",
		"coat of arms", "portrait", "headshot", "signature",
	}

	// compoundKeywords also exclude a word they end, as in "acmeuniversitylogo"
	compoundKeywords = []string{"logo", "wordmark", "emblem", "headshot"}
)

// ImageSource is the upstream the resolver queries; wikimedia.Client implements it
type ImageSource interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
	PageImages(ctx context.Context, title string) ([]string, error)
	CategoryFiles(ctx context.Context, category string) ([]string, error)
	ImageInfo(ctx context.Context, fileTitle string) (*wikimedia.ImageInfo, error)
}

// ImageCache stores resolved images between requests
type ImageCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ImageResult is a resolved image or the "no image" sentinel
type ImageResult struct {
	ImageURL  string `json:"image_url"`
	AltText   string `json:"alt_text"`
	SourceURL string `json:"source_url,omitempty"`
	Title     string `json:"title,omitempty"`
}

// NoImage returns the sentinel result
func NoImage() ImageResult {
	return ImageResult{ImageURL: "", AltText: NoImageAltText}
}

// Found reports whether r carries an image
func (r ImageResult) Found() bool {
	return r.ImageURL != ""
}

// ImageServiceConfig bounds the resolver
type ImageServiceConfig struct {
	MaxCandidates int
	TotalBudget   time.Duration
	CacheTTL      time.Duration
}

// ImageService resolves an institution name to one campus photograph
type ImageService struct {
	source ImageSource
	cache  ImageCache
	cfg    ImageServiceConfig
}

// NewImageService creates the resolver. cache may be nil.
func NewImageService(source ImageSource, imageCache ImageCache, cfg ImageServiceConfig) *ImageService {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 20
	}
	if cfg.TotalBudget <= 0 {
		cfg.TotalBudget = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &ImageService{
		source: source,
		cache:  imageCache,
		cfg:    cfg,
	}
}

// Resolve never fails: upstream errors, an exhausted budget and an empty
// candidate walk all produce the sentinel.
func (s *ImageService) Resolve(ctx context.Context, name string) ImageResult {
	start := time.Now()
	name = strings.TrimSpace(name)
	if name == "" {
		metrics.RecordImageResolution("sentinel", time.Since(start))
		return NoImage()
	}

	cacheKey := "image:" + strings.ToLower(name)
	if s.cache != nil {
		var cached ImageResult
		err := s.cache.GetJSON(ctx, cacheKey, &cached)
		switch {
		case err == nil && cached.Found() && acceptable(cached):
			metrics.RecordImageResolution("cached", time.Since(start))
			return cached
		case err == nil && cached.Found():
			// cached before the current filter rules; resolve again
			if err := s.cache.Delete(ctx, cacheKey); err != nil {
				log.Warnw("Image cache eviction failed", "name", name, "error", err)
			}
		case err != nil && !errors.Is(err, cache.ErrNotFound):
			log.Warnw("Image cache read failed", "name", name, "error", err)
		}
	}

	budgetCtx, cancel := context.WithTimeout(ctx, s.cfg.TotalBudget)
	defer cancel()

	result := s.resolve(budgetCtx, name)
	if !result.Found() {
		metrics.RecordImageResolution("sentinel", time.Since(start))
		return NoImage()
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, result, s.cfg.CacheTTL); err != nil {
			log.Warnw("Image cache write failed", "name", name, "error", err)
		}
	}
	metrics.RecordImageResolution("found", time.Since(start))
	return result
}

func (s *ImageService) resolve(ctx context.Context, name string) ImageResult {
	hits := s.search(ctx, name+" campus building")
	if len(hits) == 0 {
		hits = s.search(ctx, name+" university building")
	}
	if len(hits) == 0 {
		return NoImage()
	}

	candidates := s.collectCandidates(ctx, name, hits[0])
	for _, title := range s.prioritize(candidates) {
		if ctx.Err() != nil {
			log.Warnw("Image resolution budget exhausted", "name", name)
			return NoImage()
		}
		if !hasWebImageExtension(title) || isExcluded(title) {
			continue
		}

		info, err := s.source.ImageInfo(ctx, title)
		if err != nil {
			s.suppress("image_info", title, err)
			continue
		}
		if info == nil || info.URL == "" || !hasWebImageExtension(info.URL) {
			continue
		}
		if isExcluded(info.ObjectName) || isExcluded(info.Description) {
			continue
		}

		return ImageResult{
			ImageURL:  info.URL,
			AltText:   attribution(name, title, info),
			SourceURL: info.DescriptionURL,
			Title:     title,
		}
	}
	return NoImage()
}

func (s *ImageService) search(ctx context.Context, query string) []string {
	hits, err := s.source.Search(ctx, query, searchLimit)
	if err != nil {
		s.suppress("search", query, err)
		return nil
	}
	return hits
}

// collectCandidates pools files from the top hit's page, the same-named
// Commons category and pages related by a "<name> buildings" search.
// Titles are deduplicated preserving first-seen order.
func (s *ImageService) collectCandidates(ctx context.Context, name, topHit string) []string {
	seen := make(map[string]bool)
	var pool []string
	add := func(titles []string) {
		for _, t := range titles {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			pool = append(pool, t)
		}
	}

	if files, err := s.source.PageImages(ctx, topHit); err != nil {
		s.suppress("page_images", topHit, err)
	} else {
		add(files)
	}

	if files, err := s.source.CategoryFiles(ctx, topHit); err != nil {
		s.suppress("category_files", topHit, err)
	} else {
		add(files)
	}

	related := s.search(ctx, name+" buildings")
	if len(related) > relatedPagesLimit {
		related = related[:relatedPagesLimit]
	}
	for _, page := range related {
		if ctx.Err() != nil {
			break
		}
		files, err := s.source.PageImages(ctx, page)
		if err != nil {
			s.suppress("page_images", page, err)
			continue
		}
		add(files)
	}

	return pool
}

// prioritize keeps the keyword-matching candidates, best score first, or the
// whole pool when nothing matches. The result is capped at MaxCandidates.
func (s *ImageService) prioritize(pool []string) []string {
	type scored struct {
		title string
		score int
	}

	var hits []scored
	for _, title := range pool {
		if score := keywordScore(title); score > 0 {
			hits = append(hits, scored{title: title, score: score})
		}
	}

	ordered := pool
	if len(hits) > 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].score > hits[j].score
		})
		ordered = make([]string, len(hits))
		for i, h := range hits {
			ordered[i] = h.title
		}
	}

	if len(ordered) > s.cfg.MaxCandidates {
		ordered = ordered[:s.cfg.MaxCandidates]
	}
	return ordered
}

func (s *ImageService) suppress(operation, subject string, err error) {
	metrics.UpstreamErrorsTotal.WithLabelValues(operation).Inc()
	log.Warnw("Image upstream call failed", "operation", operation, "subject", subject, "error", err)
}

// keywordScore counts architecture keywords in the title and bare filename
func keywordScore(title string) int {
	return countKeywords(title+" "+bareFilename(title), architectureKeywords)
}

// countKeywords matches whole words (or their plural) and multi-word phrases
func countKeywords(text string, keywords []string) int {
	joined := " " + strings.Join(splitWords(text), " ") + " "

	count := 0
	for _, kw := range keywords {
		if strings.Contains(joined, " "+kw+" ") || strings.Contains(joined, " "+kw+"s ") {
			count++
		}
	}
	return count
}

// splitWords lowercases text into words, breaking on punctuation, CamelCase
// humps and letter/digit changes: "AcmeLogo2019.png" is acme logo 2019 png
func splitWords(text string) []string {
	runes := []rune(text)
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(current) > 0 {
			prev := current[len(current)-1]
			switch {
			case unicode.IsDigit(prev) != unicode.IsDigit(r):
				flush()
			case unicode.IsUpper(r) && unicode.IsLower(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			}
		}
		current = append(current, r)
	}
	flush()
	return words
}

func isExcluded(text string) bool {
	if text == "" {
		return false
	}
	if countKeywords(text, excludedKeywords) > 0 {
		return true
	}
	for _, word := range splitWords(text) {
		for _, kw := range compoundKeywords {
			if strings.HasSuffix(word, kw) || strings.HasSuffix(word, kw+"s") {
				return true
			}
		}
	}
	return false
}

// bareFilename turns "File:Old_Main.jpg" into "old main"
func bareFilename(title string) string {
	if i := strings.Index(title, ":"); i >= 0 {
		title = title[i+1:]
	}
	title = strings.TrimSuffix(title, path.Ext(title))
	title = strings.NewReplacer("_", " ", "-", " ").Replace(title)
	return strings.ToLower(strings.TrimSpace(title))
}

func hasWebImageExtension(name string) bool {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return webImageExtensions[strings.ToLower(path.Ext(name))]
}

// acceptable reports whether a previously resolved image still passes the
// format and exclusion filters
func acceptable(r ImageResult) bool {
	return hasWebImageExtension(r.ImageURL) && !isExcluded(r.Title)
}

func attribution(name, title string, info *wikimedia.ImageInfo) string {
	subject := info.ObjectName
	if subject == "" {
		subject = bareFilename(title)
	}

	alt := fmt.Sprintf("%s at %s", subject, name)
	if info.Artist != "" {
		alt += " by " + info.Artist
	}
	if info.License != "" {
		alt += fmt.Sprintf(" (%s)", info.License)
	}
	return alt + ", via Wikimedia Commons"
}
