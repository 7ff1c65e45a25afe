// Package source defines the read-only port to the source identity provider
// and the map-backed record shape its APIs return.
package source

import (
	"context"
	"fmt"

	"exodus/internal/identity"
)

// AttributeStoreKind selects where custom attributes are fetched from when
// attribute import is enabled.
type AttributeStoreKind string

const (
	// AttributeStoreNone disables custom-attribute fetching.
	AttributeStoreNone AttributeStoreKind = ""
	// AttributeStoreDocument reads per-user documents from the provider's
	// document store.
	AttributeStoreDocument AttributeStoreKind = "document"
	// AttributeStoreTree reads per-user subtrees from the provider's
	// realtime tree store.
	AttributeStoreTree AttributeStoreKind = "tree"
)

// ParseAttributeStoreKind validates a CLI-provided store name.
func ParseAttributeStoreKind(raw string) (AttributeStoreKind, error) {
	switch AttributeStoreKind(raw) {
	case AttributeStoreNone, AttributeStoreDocument, AttributeStoreTree:
		return AttributeStoreKind(raw), nil
	default:
		return AttributeStoreNone, fmt.Errorf("unknown attribute store %q (want %q or %q)",
			raw, AttributeStoreDocument, AttributeStoreTree)
	}
}

// Page is one page of source user records.
type Page struct {
	Users         []identity.SourceRecord
	HasNextPage   bool
	NextPageToken string
}

// Provider is the read-only source collaborator.
type Provider interface {
	ListUsers(ctx context.Context, pageToken string) (Page, error)
	FetchCustomAttributes(ctx context.Context, userID string, kind AttributeStoreKind) (map[string]any, error)
}

// FetchAll drains the provider's paging into one in-memory sequence. The
// pipeline consumes the source exhaustively before processing begins.
func FetchAll(ctx context.Context, provider Provider) ([]identity.SourceRecord, error) {
	var all []identity.SourceRecord
	token := ""
	for {
		page, err := provider.ListUsers(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("list users (token %q): %w", token, err)
		}
		all = append(all, page.Users...)
		if !page.HasNextPage {
			return all, nil
		}
		token = page.NextPageToken
	}
}
