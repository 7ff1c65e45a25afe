// Package normalize maps one source user record into the canonical identity
// draft delivered to the target platform.
package normalize

import (
	"context"
	"fmt"
	"log/slog"

	"exodus/internal/flatten"
	"exodus/internal/identity"
	"exodus/internal/source"
)

// AnonymousCounter seeds synthesized login ids for accounts lacking both
// email and phone. It is run-scoped and starts at zero; a fresh run may
// renumber. The run is single-threaded, so a plain int suffices.
type AnonymousCounter struct {
	next int
}

// Next returns the current value and advances the counter.
func (c *AnonymousCounter) Next() int {
	n := c.next
	c.next++
	return n
}

// Failure tags a normalization error with the login id it concerns so the
// orchestrator can report "identifier: reason" pairs.
type Failure struct {
	LoginID string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.LoginID, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AttributeFetcher is the slice of the source provider the normalizer needs.
type AttributeFetcher interface {
	FetchCustomAttributes(ctx context.Context, userID string, kind source.AttributeStoreKind) (map[string]any, error)
}

// SchemaRegistrar declares attribute definitions before values referencing
// them are delivered.
type SchemaRegistrar interface {
	Register(ctx context.Context, kinds map[string]flatten.Kind) error
}

// Normalizer derives canonical identities. All run-scoped state (the
// anonymous counter, the attribute-store selection) lives on the struct;
// nothing is package-global.
type Normalizer struct {
	registrar      SchemaRegistrar
	fetcher        AttributeFetcher
	attributeStore source.AttributeStoreKind
	anon           *AnonymousCounter
	logger         *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = logger }
}

// WithAttributeSource enables custom-attribute import from the given store.
func WithAttributeSource(fetcher AttributeFetcher, kind source.AttributeStoreKind) Option {
	return func(n *Normalizer) {
		n.fetcher = fetcher
		n.attributeStore = kind
	}
}

// New builds a Normalizer.
func New(registrar SchemaRegistrar, opts ...Option) (*Normalizer, error) {
	if registrar == nil {
		return nil, fmt.Errorf("schema registrar is required")
	}
	n := &Normalizer{
		registrar: registrar,
		anon:      &AnonymousCounter{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Normalize derives the canonical identity for one source record. The
// credential is attached later by the selector; everything else is final.
func (n *Normalizer) Normalize(ctx context.Context, record identity.SourceRecord) (identity.Identity, error) {
	loginID := n.deriveLoginID(record)

	attrs := map[string]any{
		identity.AttrFreshlyMigrated: true,
	}
	if record.LocalID() != "" {
		attrs[identity.AttrSourceUserID] = record.LocalID()
	}

	if err := n.mergeFetchedAttributes(ctx, record, attrs); err != nil {
		return identity.Identity{}, &Failure{LoginID: loginID, Err: err}
	}

	return identity.Identity{
		LoginID:       loginID,
		Email:         record.Email(),
		Phone:         record.Phone(),
		DisplayName:   record.DisplayName(),
		GivenName:     record.GivenName(),
		FamilyName:    record.FamilyName(),
		Picture:       record.PhotoURL(),
		VerifiedEmail: record.EmailVerified(),
		// Absent phone always reads unverified, whatever the source flag says.
		VerifiedPhone:    record.Phone() != "" && record.PhoneVerified(),
		CustomAttributes: attrs,
		Disabled:         record.Disabled(),
	}, nil
}

// deriveLoginID follows the strict order: email, else phone, else a fresh
// synthesized anonymous id. An identity never carries both an email and a
// synthesized id.
func (n *Normalizer) deriveLoginID(record identity.SourceRecord) string {
	if email := record.Email(); email != "" {
		return email
	}
	if phone := record.Phone(); phone != "" {
		return phone
	}
	return fmt.Sprintf("anon_user_%d@anonymous.com", n.anon.Next())
}

// mergeFetchedAttributes pulls, flattens, registers, and merges the user's
// external custom attributes. Fetched values win on key collision, except
// the freshly-migrated marker, which is never overwritten. Registration
// failures are degraded behavior, not normalization failures.
func (n *Normalizer) mergeFetchedAttributes(ctx context.Context, record identity.SourceRecord, attrs map[string]any) error {
	if n.fetcher == nil || n.attributeStore == source.AttributeStoreNone || record.LocalID() == "" {
		return nil
	}

	nested, err := n.fetcher.FetchCustomAttributes(ctx, record.LocalID(), n.attributeStore)
	if err != nil {
		return fmt.Errorf("fetch custom attributes: %w", err)
	}
	if len(nested) == 0 {
		return nil
	}

	flat := flatten.Flatten(nested)
	if err := n.registrar.Register(ctx, flatten.InferKinds(flat)); err != nil {
		// Values may arrive unregistered and be rejected downstream; the
		// registrar already logged the call, the run continues.
		n.logger.Warn("continuing with unregistered attributes",
			"user_id", record.LocalID(), "error", err)
	}

	for key, value := range flat {
		if key == identity.AttrFreshlyMigrated {
			continue
		}
		attrs[key] = value
	}
	return nil
}
