package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sahilchouksey/university-explorer/services/wikimedia"
	"github.com/sahilchouksey/university-explorer/utils/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageSource struct {
	mu         sync.Mutex
	searches   map[string][]string
	searchErr  error
	pageImages map[string][]string
	categories map[string][]string
	infos      map[string]*wikimedia.ImageInfo
	block      bool

	queries   []string
	infoCalls []string
}

func (f *fakeImageSource) Search(ctx context.Context, query string, limit int) ([]string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searches[query], nil
}

func (f *fakeImageSource) PageImages(ctx context.Context, title string) ([]string, error) {
	return f.pageImages[title], nil
}

func (f *fakeImageSource) CategoryFiles(ctx context.Context, category string) ([]string, error) {
	return f.categories[category], nil
}

func (f *fakeImageSource) ImageInfo(ctx context.Context, fileTitle string) (*wikimedia.ImageInfo, error) {
	f.mu.Lock()
	f.infoCalls = append(f.infoCalls, fileTitle)
	f.mu.Unlock()
	return f.infos[fileTitle], nil
}

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return cache.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func info(title, url string) *wikimedia.ImageInfo {
	return &wikimedia.ImageInfo{
		Title:          title,
		URL:            url,
		DescriptionURL: "https://commons.wikimedia.org/wiki/" + title,
		Artist:         "Jane Doe",
		License:        "CC BY-SA 4.0",
	}
}

func newTestImageService(source ImageSource) *ImageService {
	return NewImageService(source, nil, ImageServiceConfig{MaxCandidates: 10, TotalBudget: time.Second})
}

func minesSource() *fakeImageSource {
	return &fakeImageSource{
		searches: map[string][]string{
			"Colorado School of Mines campus building": {"Colorado School of Mines", "Golden, Colorado"},
			"Colorado School of Mines buildings":       {"Guggenheim Hall"},
		},
		pageImages: map[string][]string{
			"Colorado School of Mines": {"File:Mines logo.png", "File:Mines seal.svg", "File:Golden skyline.jpg"},
			"Guggenheim Hall":          {"File:Guggenheim Hall, Golden.jpg"},
		},
		categories: map[string][]string{
			"Colorado School of Mines": {"File:Golden skyline.jpg", "File:Mines campus library.tif"},
		},
		infos: map[string]*wikimedia.ImageInfo{
			"File:Guggenheim Hall, Golden.jpg": info("File:Guggenheim Hall, Golden.jpg", "https://upload.wikimedia.org/guggenheim.jpg"),
			"File:Golden skyline.jpg":          info("File:Golden skyline.jpg", "https://upload.wikimedia.org/skyline.jpg"),
		},
	}
}

func TestResolveNoHitsReturnsSentinel(t *testing.T) {
	source := &fakeImageSource{}
	result := newTestImageService(source).Resolve(context.Background(), "Nowhere College")

	assert.Equal(t, ImageResult{ImageURL: "", AltText: "No image available"}, result)
	assert.Equal(t, []string{"Nowhere College campus building", "Nowhere College university building"}, source.queries)
}

func TestResolveBroadensSearchOnce(t *testing.T) {
	source := minesSource()
	source.searches["Colorado School of Mines university building"] = source.searches["Colorado School of Mines campus building"]
	delete(source.searches, "Colorado School of Mines campus building")

	result := newTestImageService(source).Resolve(context.Background(), "Colorado School of Mines")

	assert.True(t, result.Found())
	assert.Equal(t, "Colorado School of Mines university building", source.queries[1])
}

func TestResolvePrefersKeywordCandidates(t *testing.T) {
	source := minesSource()
	result := newTestImageService(source).Resolve(context.Background(), "Colorado School of Mines")

	assert.Equal(t, "https://upload.wikimedia.org/guggenheim.jpg", result.ImageURL)
	assert.Equal(t, "File:Guggenheim Hall, Golden.jpg", result.Title)
	assert.Equal(t, "guggenheim hall, golden at Colorado School of Mines by Jane Doe (CC BY-SA 4.0), via Wikimedia Commons", result.AltText)
	// the .tif keyword hit is skipped on extension without an upstream call
	assert.NotContains(t, source.infoCalls, "File:Mines campus library.tif")
}

func TestResolveFallsBackToWholePool(t *testing.T) {
	source := minesSource()
	delete(source.pageImages, "Guggenheim Hall")
	source.categories["Colorado School of Mines"] = []string{"File:Golden skyline.jpg"}

	result := newTestImageService(source).Resolve(context.Background(), "Colorado School of Mines")

	assert.Equal(t, "https://upload.wikimedia.org/skyline.jpg", result.ImageURL)
	assert.NotContains(t, source.infoCalls, "File:Mines logo.png")
}

func TestResolveDeduplicatesCandidates(t *testing.T) {
	source := minesSource()
	source.infos = map[string]*wikimedia.ImageInfo{}

	result := newTestImageService(source).Resolve(context.Background(), "Colorado School of Mines")

	assert.False(t, result.Found())
	seen := map[string]int{}
	for _, call := range source.infoCalls {
		seen[call]++
	}
	for title, n := range seen {
		assert.Equal(t, 1, n, title)
	}
}

func TestResolveNeverReturnsNonWebImage(t *testing.T) {
	source := &fakeImageSource{
		searches: map[string][]string{"Acme University campus building": {"Acme University"}},
		pageImages: map[string][]string{
			"Acme University": {"File:Acme Hall.svg", "File:Acme Library.tiff", "File:Acme Tower.pdf"},
		},
		infos: map[string]*wikimedia.ImageInfo{
			"File:Acme Hall.svg": info("File:Acme Hall.svg", "https://upload.wikimedia.org/acme.svg"),
		},
	}

	result := newTestImageService(source).Resolve(context.Background(), "Acme University")

	assert.Equal(t, NoImage(), result)
	assert.Empty(t, source.infoCalls)
}

func TestResolveSkipsPortraitMetadata(t *testing.T) {
	source := &fakeImageSource{
		searches: map[string][]string{"Acme University campus building": {"Acme University"}},
		pageImages: map[string][]string{
			"Acme University": {"File:Acme Hall 1901.jpg", "File:Acme Library.jpg"},
		},
		infos: map[string]*wikimedia.ImageInfo{
			"File:Acme Hall 1901.jpg": {URL: "https://upload.wikimedia.org/founder.jpg", Description: "Portrait of the founder in Acme Hall"},
			"File:Acme Library.jpg":   info("File:Acme Library.jpg", "https://upload.wikimedia.org/library.jpg"),
		},
	}

	result := newTestImageService(source).Resolve(context.Background(), "Acme University")
	assert.Equal(t, "https://upload.wikimedia.org/library.jpg", result.ImageURL)
}

func TestResolveSkipsCompoundLogoTitles(t *testing.T) {
	source := &fakeImageSource{
		searches: map[string][]string{"Acme University campus building": {"Acme University"}},
		pageImages: map[string][]string{
			"Acme University": {"File:AcmeUniversityLogo.png", "File:Acme_univ_wordmark-logo2019.png", "File:acmelogos.png"},
		},
		infos: map[string]*wikimedia.ImageInfo{
			"File:AcmeUniversityLogo.png":          info("File:AcmeUniversityLogo.png", "https://upload.wikimedia.org/AcmeUniversityLogo.png"),
			"File:Acme_univ_wordmark-logo2019.png": info("File:Acme_univ_wordmark-logo2019.png", "https://upload.wikimedia.org/wordmark.png"),
			"File:acmelogos.png":                   info("File:acmelogos.png", "https://upload.wikimedia.org/acmelogos.png"),
		},
	}

	result := newTestImageService(source).Resolve(context.Background(), "Acme University")
	assert.False(t, result.Found())
	assert.Empty(t, source.infoCalls)
}

func TestResolveSuppressesUpstreamErrors(t *testing.T) {
	source := &fakeImageSource{searchErr: errors.New("connection refused")}

	result := newTestImageService(source).Resolve(context.Background(), "Acme University")
	assert.Equal(t, NoImage(), result)
}

func TestResolveHonoursMaxCandidates(t *testing.T) {
	files := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		files = append(files, "File:Hall "+string(rune('A'+i))+".jpg")
	}
	source := &fakeImageSource{
		searches:   map[string][]string{"Acme University campus building": {"Acme University"}},
		pageImages: map[string][]string{"Acme University": files},
	}

	service := NewImageService(source, nil, ImageServiceConfig{MaxCandidates: 4, TotalBudget: time.Second})
	result := service.Resolve(context.Background(), "Acme University")

	assert.False(t, result.Found())
	assert.Len(t, source.infoCalls, 4)
}

func TestResolveHonoursTotalBudget(t *testing.T) {
	source := &fakeImageSource{block: true}
	service := NewImageService(source, nil, ImageServiceConfig{TotalBudget: 50 * time.Millisecond})

	start := time.Now()
	result := service.Resolve(context.Background(), "Slow University")

	assert.Equal(t, NoImage(), result)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolveUsesCache(t *testing.T) {
	memory := &memoryCache{data: map[string][]byte{}}
	source := minesSource()
	service := NewImageService(source, memory, ImageServiceConfig{TotalBudget: time.Second})

	first := service.Resolve(context.Background(), "Colorado School of Mines")
	require.True(t, first.Found())
	calls := len(source.queries)

	second := service.Resolve(context.Background(), "  colorado school of mines ")
	assert.Equal(t, first, second)
	assert.Equal(t, calls, len(source.queries))
}

func TestResolveEvictsCachedImageThatNoLongerPasses(t *testing.T) {
	memory := &memoryCache{data: map[string][]byte{}}
	stale := ImageResult{
		ImageURL: "https://upload.wikimedia.org/MinesLogo.png",
		AltText:  "MinesLogo at Colorado School of Mines",
		Title:    "File:MinesLogo.png",
	}
	require.NoError(t, memory.SetJSON(context.Background(), "image:colorado school of mines", stale, time.Hour))

	source := minesSource()
	result := NewImageService(source, memory, ImageServiceConfig{MaxCandidates: 10, TotalBudget: time.Second}).
		Resolve(context.Background(), "Colorado School of Mines")

	require.True(t, result.Found())
	assert.NotEqual(t, stale.ImageURL, result.ImageURL)
	assert.NotEmpty(t, source.queries)

	var cached ImageResult
	require.NoError(t, memory.GetJSON(context.Background(), "image:colorado school of mines", &cached))
	assert.Equal(t, result, cached)
}

func TestResolveDoesNotCacheSentinel(t *testing.T) {
	memory := &memoryCache{data: map[string][]byte{}}
	service := NewImageService(&fakeImageSource{}, memory, ImageServiceConfig{TotalBudget: time.Second})

	service.Resolve(context.Background(), "Nowhere College")
	assert.Empty(t, memory.data)
}

func TestKeywordScoreMatchesWholeWords(t *testing.T) {
	assert.Equal(t, 1, keywordScore("File:Old_Main_Hall.jpg"))
	assert.Equal(t, 0, keywordScore("File:Marshall Smith.jpg"))
	assert.Equal(t, 2, keywordScore("File:Campus library.jpg"))
	assert.True(t, isExcluded("File:University seals.png"))
	assert.False(t, isExcluded("File:Flagstaff campus.jpg"))
	assert.True(t, isExcluded("Coat of arms of the university"))
	assert.True(t, isExcluded("File:AcmeUniversityLogo.png"))
	assert.True(t, isExcluded("File:Acme_univ_wordmark-logo2019.png"))
	assert.True(t, isExcluded("File:StateSeal.svg"))
	assert.False(t, isExcluded("File:MarshallHall.jpg"))
	assert.Equal(t, 1, keywordScore("File:OldMainHall2010.jpg"))
	assert.Equal(t, []string{"acme", "university", "logo", "2019", "png"}, splitWords("AcmeUniversityLogo2019.png"))
	assert.Equal(t, []string{"mit", "dome"}, splitWords("MITDome"))
}
