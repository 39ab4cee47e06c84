package spaces

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectURL(t *testing.T) {
	bucket, key, err := ParseObjectURL("s3://datasets/ipeds/2024.csv")
	require.NoError(t, err)
	assert.Equal(t, "datasets", bucket)
	assert.Equal(t, "ipeds/2024.csv", key)

	_, _, err = ParseObjectURL("/tmp/ipeds.csv")
	assert.True(t, errors.Is(err, ErrNotObjectURL))

	_, _, err = ParseObjectURL("s3://datasets")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotObjectURL))
}

func TestOpenAndExistsAgainstFakeEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/datasets/ipeds.csv":
			w.Write([]byte("name,state\nMines,CO\n"))
		case r.Method == http.MethodHead && r.URL.Path == "/datasets/ipeds.csv":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := NewSpacesClient(SpacesConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		PathStyle: true,
	})
	require.NoError(t, err)

	body, err := client.Open(context.Background(), "s3://datasets/ipeds.csv")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "name,state\nMines,CO\n", string(data))

	exists, err := client.FileExists(context.Background(), "s3://datasets/ipeds.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.FileExists(context.Background(), "s3://datasets/missing.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}
