package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeybek/gopaste/internal/config"
	"github.com/zeybek/gopaste/internal/storage"
)

func TestParseExpiry(t *testing.T) {
	cfg := &config.Config{}

	r := httptest.NewRequest("POST", "/", nil)
	expiry, err := parseExpiry(r, cfg)
	require.NoError(t, err)
	assert.Nil(t, expiry)

	r.Header.Set(ExpireHeader, "5m")
	expiry, err = parseExpiry(r, cfg)
	require.NoError(t, err)
	require.NotNil(t, expiry)
	assert.Greater(t, *expiry, storage.NowMillis())

	r.Header.Set(ExpireHeader, "not a duration")
	_, err = parseExpiry(r, cfg)
	assert.Error(t, err)
}

func TestParseExpiryDefault(t *testing.T) {
	cfg := &config.Config{}
	cfg.Paste.DefaultExpiry = &config.Duration{Duration: time.Hour}

	r := httptest.NewRequest("POST", "/", nil)
	expiry, err := parseExpiry(r, cfg)
	require.NoError(t, err)
	require.NotNil(t, expiry)
	assert.Greater(t, *expiry, storage.NowMillis()+30*60*1000)
}
