// Package schema ensures custom-attribute definitions exist in the target
// platform before values referencing them are written. Registration is
// deduplicated through a store so each attribute name is declared at most
// once per run, and at most once ever when the redis-backed store is used.
package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"exodus/internal/flatten"
	"exodus/internal/identity"
	"exodus/internal/target"
	pkgstrings "exodus/pkg/platform/strings"
)

// Store tracks attribute names that have already been registered.
type Store interface {
	Seen(ctx context.Context, name string) (bool, error)
	MarkSeen(ctx context.Context, name string) error
}

// RegistrationClient is the slice of the target client the registrar needs.
type RegistrationClient interface {
	RegisterAttributes(ctx context.Context, definitions []target.AttributeDefinition) error
}

// Registrar batches attribute declarations toward the target platform.
type Registrar struct {
	client        RegistrationClient
	store         Store
	logger        *slog.Logger
	registrations prometheus.Counter
}

// Option configures a Registrar.
type Option func(*Registrar)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registrar) { r.logger = logger }
}

// WithRegistrationCounter counts every registration call issued.
func WithRegistrationCounter(counter prometheus.Counter) Option {
	return func(r *Registrar) { r.registrations = counter }
}

// New builds a Registrar.
func New(client RegistrationClient, store Store, opts ...Option) (*Registrar, error) {
	if client == nil {
		return nil, fmt.Errorf("registration client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("schema store is required")
	}
	r := &Registrar{
		client: client,
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// PreRegister declares the two well-known attributes every created identity
// references unconditionally: the freshly-migrated marker and the source
// unique identifier.
func (r *Registrar) PreRegister(ctx context.Context) error {
	return r.Register(ctx, map[string]flatten.Kind{
		identity.AttrFreshlyMigrated: flatten.KindBoolean,
		identity.AttrSourceUserID:    flatten.KindString,
	})
}

// Register declares every not-yet-seen attribute in one batched call. Names
// already seen are skipped; when nothing is new, no call is issued at all.
// The receiving side is idempotent on re-registration, so a name is only
// marked seen after a successful call. A failed call is logged here and
// returned; callers treat it as non-fatal and the run continues.
func (r *Registrar) Register(ctx context.Context, kinds map[string]flatten.Kind) error {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	names = pkgstrings.NormalizeSet(names)

	pending := make([]string, 0, len(names))
	for _, name := range names {
		seen, err := r.store.Seen(ctx, name)
		if err != nil {
			return fmt.Errorf("check schema store for %q: %w", name, err)
		}
		if !seen {
			pending = append(pending, name)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	definitions := make([]target.AttributeDefinition, 0, len(pending))
	for _, name := range pending {
		definitions = append(definitions, target.DefinitionFor(name, kinds[name]))
	}

	if r.registrations != nil {
		r.registrations.Inc()
	}
	if err := r.client.RegisterAttributes(ctx, definitions); err != nil {
		r.logger.Warn("custom attribute registration failed, continuing",
			"attributes", pending, "error", err)
		return fmt.Errorf("register %d attributes: %w", len(pending), err)
	}

	for _, name := range pending {
		if err := r.store.MarkSeen(ctx, name); err != nil {
			return fmt.Errorf("mark %q seen: %w", name, err)
		}
	}

	r.logger.Info("registered custom attributes", "attributes", pending)
	return nil
}
