package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_HOST", "DB_PORT", "DEFAULT_PAGE_LIMIT", "MATCH_DEDUPE", "IMAGE_CALL_TIMEOUT", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	env, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 8080, env.PORT)
	assert.Equal(t, "localhost", env.DB_HOST)
	assert.Equal(t, "5432", env.DB_PORT)
	assert.Equal(t, 100, env.DEFAULT_PAGE_LIMIT)
	assert.False(t, env.MATCH_DEDUPE)
	assert.Equal(t, 4*time.Second, env.IMAGE_CALL_TIMEOUT)
	assert.Equal(t, []string{"http://localhost:3000"}, env.Origins())
}

func TestGetOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_SCHEMA", "explorer")
	t.Setenv("DEFAULT_PAGE_LIMIT", "25")
	t.Setenv("MATCH_DEDUPE", "true")
	t.Setenv("IMAGE_CALL_TIMEOUT", "2500ms")
	t.Setenv("IMAGE_TOTAL_BUDGET", "30")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("GO_ENV", "production")

	env, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 9090, env.PORT)
	assert.Equal(t, "explorer", env.DB_SCHEMA)
	assert.Equal(t, 25, env.DEFAULT_PAGE_LIMIT)
	assert.True(t, env.MATCH_DEDUPE)
	assert.Equal(t, 2500*time.Millisecond, env.IMAGE_CALL_TIMEOUT)
	assert.Equal(t, 30*time.Second, env.IMAGE_TOTAL_BUDGET)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, env.Origins())
	assert.True(t, env.IsProduction())
}

func TestGetInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("DEFAULT_PAGE_LIMIT", "500")
	t.Setenv("MATCH_DEDUPE", "sometimes")
	t.Setenv("IMAGE_CACHE_TTL", "-5s")

	env, err := Get()
	require.NoError(t, err)

	assert.Equal(t, 8080, env.PORT)
	assert.Equal(t, 100, env.DEFAULT_PAGE_LIMIT)
	assert.False(t, env.MATCH_DEDUPE)
	assert.Equal(t, 24*time.Hour, env.IMAGE_CACHE_TTL)
}
