package prism

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEndpoints(t *testing.T) {
	e := NewEndpoints("https://wd2.example.com", "acme", "v3")

	assert.Equal(t, "https://wd2.example.com/ccx/oauth2/acme/token", e.Token)
	assert.Equal(t, "https://wd2.example.com/ccx/api/v3/acme", e.REST)
	assert.Equal(t, "https://wd2.example.com/api/prismAnalytics/v3/acme", e.Prism)
	assert.Equal(t, "https://wd2.example.com/api/wql/v1/acme", e.WQL)
}

func TestNewEndpointsDefaults(t *testing.T) {
	e := NewEndpoints("https://wd2.example.com/", "acme", "")

	// Trailing slash trimmed, version defaulted.
	assert.Equal(t, "https://wd2.example.com/api/prismAnalytics/v3/acme", e.Prism)
}
