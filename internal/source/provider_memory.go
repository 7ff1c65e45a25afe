package source

import (
	"context"
	"fmt"
	"strconv"
)

// InMemoryProvider serves a fixed user list with real paging semantics.
// Tests and local rehearsal runs use it in place of a live provider.
type InMemoryProvider struct {
	users      []Record
	attributes map[string]map[string]any
	pageSize   int
}

// NewInMemoryProvider builds a provider over the given records. Page size
// defaults to 1000, matching typical provider page limits.
func NewInMemoryProvider(users []Record) *InMemoryProvider {
	return &InMemoryProvider{
		users:      users,
		attributes: make(map[string]map[string]any),
		pageSize:   1000,
	}
}

// WithPageSize lowers the page size so tests can exercise the paging loop.
func (p *InMemoryProvider) WithPageSize(size int) *InMemoryProvider {
	p.pageSize = size
	return p
}

// SetAttributes stages the nested custom-attribute document for a user id.
func (p *InMemoryProvider) SetAttributes(userID string, attrs map[string]any) {
	p.attributes[userID] = attrs
}

func (p *InMemoryProvider) ListUsers(_ context.Context, pageToken string) (Page, error) {
	start := 0
	if pageToken != "" {
		parsed, err := strconv.Atoi(pageToken)
		if err != nil {
			return Page{}, fmt.Errorf("bad page token %q: %w", pageToken, err)
		}
		start = parsed
	}
	if start > len(p.users) {
		return Page{}, fmt.Errorf("page token %q out of range", pageToken)
	}

	end := start + p.pageSize
	if end > len(p.users) {
		end = len(p.users)
	}

	page := Page{HasNextPage: end < len(p.users)}
	for _, user := range p.users[start:end] {
		page.Users = append(page.Users, user)
	}
	if page.HasNextPage {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (p *InMemoryProvider) FetchCustomAttributes(_ context.Context, userID string, kind AttributeStoreKind) (map[string]any, error) {
	if kind == AttributeStoreNone {
		return nil, nil
	}
	return p.attributes[userID], nil
}
