package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"exodus/internal/identity"
	"exodus/internal/transport"
)

// Invoker is the slice of the resilient transport the HTTP provider needs.
type Invoker interface {
	Invoke(ctx context.Context, method, url string, headers map[string]string, body []byte) (*transport.Response, error)
}

// HTTPProvider reads user records and custom-attribute documents from the
// source provider's export API. The API itself is a black box; this type
// only does the paging and decoding.
type HTTPProvider struct {
	baseURL string
	invoker Invoker
}

func NewHTTPProvider(baseURL string, invoker Invoker) (*HTTPProvider, error) {
	if invoker == nil {
		return nil, fmt.Errorf("transport invoker is required")
	}
	return &HTTPProvider{baseURL: baseURL, invoker: invoker}, nil
}

func (p *HTTPProvider) ListUsers(ctx context.Context, pageToken string) (Page, error) {
	endpoint := p.baseURL + "/v1/users"
	if pageToken != "" {
		endpoint += "?pageToken=" + url.QueryEscape(pageToken)
	}

	resp, err := p.invoker.Invoke(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return Page{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("list users: status %d", resp.StatusCode)
	}

	var parsed struct {
		Users         []Record `json:"users"`
		HasNextPage   bool     `json:"hasNextPage"`
		NextPageToken string   `json:"nextPageToken"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return Page{}, fmt.Errorf("decode user page: %w", err)
	}

	page := Page{HasNextPage: parsed.HasNextPage, NextPageToken: parsed.NextPageToken}
	for _, user := range parsed.Users {
		page.Users = append(page.Users, identity.SourceRecord(user))
	}
	return page, nil
}

func (p *HTTPProvider) FetchCustomAttributes(ctx context.Context, userID string, kind AttributeStoreKind) (map[string]any, error) {
	if kind == AttributeStoreNone {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/v1/users/%s/attributes?store=%s",
		p.baseURL, url.PathEscape(userID), url.QueryEscape(string(kind)))

	resp, err := p.invoker.Invoke(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch attributes for %s: status %d", userID, resp.StatusCode)
	}

	var attrs map[string]any
	if err := json.Unmarshal(resp.Body, &attrs); err != nil {
		return nil, fmt.Errorf("decode attributes for %s: %w", userID, err)
	}
	return attrs, nil
}
