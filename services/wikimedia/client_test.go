package wikimedia

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		WikiAPIURL:        srv.URL + "/wiki",
		CommonsAPIURL:     srv.URL + "/commons",
		CallTimeout:       time.Second,
		RequestsPerSecond: 1000,
		Burst:             100,
	})
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/wiki", r.URL.Path)
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "Colorado School of Mines campus building", q.Get("srsearch"))
		assert.Equal(t, "2", q.Get("formatversion"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"query":{"search":[{"title":"Colorado School of Mines"},{"title":"Golden, Colorado"}]}}`))
	})

	titles, err := client.Search(context.Background(), "Colorado School of Mines campus building", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Colorado School of Mines", "Golden, Colorado"}, titles)
}

func TestPageImagesAndCategoryFiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/wiki":
			assert.Equal(t, "images", q.Get("prop"))
			w.Write([]byte(`{"query":{"pages":[{"title":"Howard University","images":[{"title":"File:Founders Library.jpg"},{"title":"File:Howard seal.svg"}]}]}}`))
		case "/commons":
			assert.Equal(t, "Category:Howard University", q.Get("cmtitle"))
			assert.Equal(t, "file", q.Get("cmtype"))
			w.Write([]byte(`{"query":{"categorymembers":[{"title":"File:Howard Hall.png"}]}}`))
		}
	})

	files, err := client.PageImages(context.Background(), "Howard University")
	require.NoError(t, err)
	assert.Equal(t, []string{"File:Founders Library.jpg", "File:Howard seal.svg"}, files)

	members, err := client.CategoryFiles(context.Background(), "Howard University")
	require.NoError(t, err)
	assert.Equal(t, []string{"File:Howard Hall.png"}, members)
}

func TestImageInfoStripsHTML(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/commons", r.URL.Path)
		assert.Equal(t, "url|mime|extmetadata", r.URL.Query().Get("iiprop"))
		w.Write([]byte(`{"query":{"pages":[{"title":"File:Founders Library.jpg","imageinfo":[{
			"url":"https://upload.wikimedia.org/founders.jpg",
			"descriptionurl":"https://commons.wikimedia.org/wiki/File:Founders_Library.jpg",
			"mime":"image/jpeg",
			"extmetadata":{
				"Artist":{"value":"<a href=\"//commons.wikimedia.org/wiki/User:Jane\">Jane &amp; Doe</a>"},
				"LicenseShortName":{"value":"CC BY-SA 4.0"},
				"ObjectName":{"value":"Founders Library"}
			}}]}]}}`))
	})

	info, err := client.ImageInfo(context.Background(), "File:Founders Library.jpg")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "https://upload.wikimedia.org/founders.jpg", info.URL)
	assert.Equal(t, "Jane & Doe", info.Artist)
	assert.Equal(t, "CC BY-SA 4.0", info.License)
	assert.Equal(t, "Founders Library", info.ObjectName)
}

func TestImageInfoMissingFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":[{"title":"File:Nope.jpg","missing":true}]}}`))
	})

	info, err := client.ImageInfo(context.Background(), "File:Nope.jpg")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestUpstreamErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/commons" {
			w.Write([]byte(`{"error":{"code":"badvalue","info":"Unrecognized value"}}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), "anything", 1)
	assert.True(t, errors.Is(err, ErrUpstream))

	_, err = client.CategoryFiles(context.Background(), "anything")
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"query":{}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{WikiAPIURL: srv.URL, CallTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.Search(context.Background(), "slow", 1)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 8; i++ {
		_, err := client.Search(context.Background(), "down", 1)
		assert.Error(t, err)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestHTMLText(t *testing.T) {
	assert.Equal(t, "Photo by Jane", HTMLText("<span>Photo</span> by <b>Jane</b>"))
	assert.Equal(t, "line one line two", HTMLText("line one<br/>line two"))
	assert.Equal(t, "", HTMLText(""))
}
