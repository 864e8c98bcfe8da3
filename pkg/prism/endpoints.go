package prism

import (
	"fmt"
	"strings"
)

// Endpoints holds the per-tenant URL roots for the different API
// families. All service operations compose paths onto these roots.
type Endpoints struct {
	// Token is the OAuth2 endpoint used to exchange the refresh token.
	Token string

	// REST is the general REST API root.
	REST string

	// Prism is the analytics API root (tables, buckets, dataChanges,
	// fileContainers).
	Prism string

	// WQL is the query API root (dataSources).
	WQL string
}

// NewEndpoints composes the endpoint roots for a tenant. An empty version
// defaults to DefaultAPIVersion.
func NewEndpoints(baseURL, tenant, version string) Endpoints {
	base := strings.TrimRight(baseURL, "/")
	if version == "" {
		version = DefaultAPIVersion
	}

	return Endpoints{
		Token: fmt.Sprintf("%s/ccx/oauth2/%s/token", base, tenant),
		REST:  fmt.Sprintf("%s/ccx/api/%s/%s", base, version, tenant),
		Prism: fmt.Sprintf("%s/api/prismAnalytics/%s/%s", base, version, tenant),
		WQL:   fmt.Sprintf("%s/api/wql/v1/%s", base, tenant),
	}
}
