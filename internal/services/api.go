// Raw access to upstream endpoints for debugging
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs an unsigned GET against an arbitrary upstream endpoint ("album/get") with the
// same credentials and transport as the typed operations, and returns the raw response.
//
// Non-2xx responses are returned, not classified. Only transport failures are errors.
func (s *CatalogService) Get(ctx context.Context, endpoint string, params url.Values, region string) (*APIResponse, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	resp, body, err := s.send(ctx, "api", endpoint, params, region)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// ParseParams turns "key=value" pairs into query parameters.
func ParseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", p)
		}
		params.Add(strings.TrimSpace(key), value)
	}
	return params, nil
}
