package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPAuthorizer resolves tokens against a remote authorization service:
// GET <base>/v1/consoles?token=<token> answers 200 with ConnectInfo JSON for
// a valid token and 404 for an unknown or expired one. The service's own
// retry and availability semantics are its concern; every call here is an
// independent one-shot exchange.
type HTTPAuthorizer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAuthorizer(baseURL string) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *HTTPAuthorizer) Resolve(ctx context.Context, token string) (*ConnectInfo, bool) {
	if token == "" {
		return nil, false
	}

	reqURL := a.baseURL + "/v1/consoles?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.Printf("Auth service request build failed: %v", err)
		return nil, false
	}

	resp, err := a.client.Do(req)
	if err != nil {
		log.Printf("Auth service unreachable: %v", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("Auth service returned %d", resp.StatusCode)
		return nil, false
	}

	var info ConnectInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		log.Printf("Auth service response decode failed: %v", err)
		return nil, false
	}

	return &info, true
}

func (a *HTTPAuthorizer) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
