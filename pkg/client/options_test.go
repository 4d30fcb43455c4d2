package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c, err := NewClient("http://localhost",
		WithHTTPClient(hc),
		WithRetryMax(7),
		WithRetryWait(100*time.Millisecond, time.Second),
		WithUserAgent("custom/1.0"),
	)
	require.NoError(t, err)
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 7, c.retryMax)
	assert.Equal(t, 100*time.Millisecond, c.retryWaitMin)
	assert.Equal(t, time.Second, c.retryWaitMax)
	assert.Equal(t, "custom/1.0", c.userAgent)
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	c, err := NewClient("http://localhost",
		WithRetryMax(-1),
		WithRetryWait(0, 0),
		WithUserAgent(""),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, c.retryMax)
	assert.Equal(t, 500*time.Millisecond, c.retryWaitMin)
	assert.Equal(t, "molprop-go-sdk/"+Version, c.userAgent)
}

func TestWithRetryWaitRejectsMaxBelowMin(t *testing.T) {
	c, err := NewClient("http://localhost",
		WithRetryWait(time.Second, time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 5*time.Second, c.retryWaitMax)
}
