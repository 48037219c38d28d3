package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostPortPlain(t *testing.T) {
	h, p, err := ParseHostPort("example.com:8888")
	require.NoError(t, err)
	assert.Equal(t, "example.com", h)
	assert.Equal(t, 8888, p)
}

func TestParseHostPortIPv6Brackets(t *testing.T) {
	h, p, err := ParseHostPort("[::1]:8888")
	require.NoError(t, err)
	assert.Equal(t, "::1", h)
	assert.Equal(t, 8888, p)
}

func TestParseHostPortRejectsMissingPort(t *testing.T) {
	_, _, err := ParseHostPort("example.com")
	assert.Error(t, err)
}
