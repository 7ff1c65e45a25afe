// Package run drives one migration batch: fetch everything from the source,
// pre-register the well-known schema, then sequentially normalize, select
// credentials, deliver, and classify every record.
package run

import (
	"context"
	"fmt"
	"log/slog"

	"exodus/internal/audit"
	"exodus/internal/credential"
	"exodus/internal/identity"
	"exodus/internal/platform/metrics"
	"exodus/internal/source"
)

// progressInterval is measured in cumulative successes, not records, so the
// heartbeat reflects real forward movement on long runs.
const progressInterval = 10

// Normalizer derives one canonical identity per source record.
type Normalizer interface {
	Normalize(ctx context.Context, record identity.SourceRecord) (identity.Identity, error)
}

// TargetClient delivers identities to the target platform.
type TargetClient interface {
	InviteBatch(ctx context.Context, identities []identity.Identity, inviteURL string, sendMail, sendSMS bool) error
	Activate(ctx context.Context, loginID string) error
	Deactivate(ctx context.Context, loginID string) error
}

// SchemaRegistrar pre-registers the well-known attributes before the loop.
type SchemaRegistrar interface {
	PreRegister(ctx context.Context) error
}

// Outcome is the per-user result tuple. Merged and DisabledMismatch are
// reserved for future account-merge detection and are never set today.
type Outcome struct {
	Success          bool
	Merged           bool
	DisabledMismatch bool
	Identifier       string
}

// Runner executes migration runs. All run-scoped state is explicit here;
// there is no package-level mutability.
type Runner struct {
	runID      string
	source     source.Provider
	normalizer Normalizer
	target     TargetClient
	registrar  SchemaRegistrar
	hashParams identity.HashParams
	inviteURL  string

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Publisher
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(r *Runner) { r.audit = publisher }
}

func WithInviteURL(url string) Option {
	return func(r *Runner) { r.inviteURL = url }
}

// New builds a Runner. Source, normalizer, target, and registrar are all
// required.
func New(runID string, src source.Provider, normalizer Normalizer, target TargetClient, registrar SchemaRegistrar, hashParams identity.HashParams, opts ...Option) (*Runner, error) {
	if src == nil {
		return nil, fmt.Errorf("source provider is required")
	}
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if target == nil {
		return nil, fmt.Errorf("target client is required")
	}
	if registrar == nil {
		return nil, fmt.Errorf("schema registrar is required")
	}

	r := &Runner{
		runID:      runID,
		source:     src,
		normalizer: normalizer,
		target:     target,
		registrar:  registrar,
		hashParams: hashParams,
		inviteURL:  "https://localhost",
		logger:     slog.New(slog.DiscardHandler),
		audit:      audit.NopPublisher{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Execute runs one batch. A dry run only counts; a live run pre-registers
// the well-known schema and then processes every record sequentially.
// Per-user errors never abort the run; only a failure to read the source
// does.
func (r *Runner) Execute(ctx context.Context, dryRun bool) (Report, error) {
	users, err := source.FetchAll(ctx, r.source)
	if err != nil {
		return Report{}, fmt.Errorf("fetch source users: %w", err)
	}

	report := Report{RunID: r.runID, Found: len(users), DryRun: dryRun}

	if dryRun {
		r.logger.Info("dry run, no mutations issued", "found", report.Found)
		for _, user := range users {
			r.emit(ctx, audit.Event{
				LoginID: user.Email(),
				Outcome: audit.OutcomeDryRun,
			})
		}
		return report, nil
	}

	r.logger.Info("starting migration", "found", report.Found)

	// Non-fatal: created identities reference these attributes either way,
	// and the platform tolerates values arriving before their definition in
	// degraded form.
	if err := r.registrar.PreRegister(ctx); err != nil {
		r.logger.Warn("pre-registration of well-known attributes failed", "error", err)
	}

	for _, user := range users {
		outcome := r.migrateOne(ctx, user)
		r.classify(ctx, outcome, &report)
	}

	r.logger.Info("migration finished",
		"found", report.Found,
		"succeeded", report.Succeeded,
		"failed", len(report.Failed),
	)
	return report, nil
}

// migrateOne pushes a single record through normalize → select → deliver.
func (r *Runner) migrateOne(ctx context.Context, record identity.SourceRecord) Outcome {
	ident, err := r.normalizer.Normalize(ctx, record)
	if err != nil {
		r.logger.Error("normalization failed", "error", err)
		return Outcome{Identifier: err.Error()}
	}

	ident.Credential = credential.Select(record, r.hashParams)

	if err := r.target.InviteBatch(ctx, []identity.Identity{ident}, r.inviteURL, false, false); err != nil {
		r.logger.Error("unable to create user", "login_id", ident.LoginID, "error", err)
		return Outcome{Identifier: fmt.Sprintf("%s: %v", ident.LoginID, err)}
	}

	// The create and status calls are not atomic. A status failure leaves
	// the user existing in default status, so it is reported as a per-user
	// failure needing reconciliation rather than silent drift.
	if err := r.applyStatus(ctx, ident); err != nil {
		r.logger.Error("status update failed", "login_id", ident.LoginID, "error", err)
		return Outcome{Identifier: fmt.Sprintf("%s: status update failed: %v", ident.LoginID, err)}
	}

	return Outcome{Success: true, Identifier: ident.LoginID}
}

func (r *Runner) applyStatus(ctx context.Context, ident identity.Identity) error {
	if ident.Disabled {
		return r.target.Deactivate(ctx, ident.LoginID)
	}
	return r.target.Activate(ctx, ident.LoginID)
}

func (r *Runner) classify(ctx context.Context, outcome Outcome, report *Report) {
	if !outcome.Success {
		report.Failed = append(report.Failed, outcome.Identifier)
		if r.metrics != nil {
			r.metrics.UsersFailed.Inc()
		}
		r.emit(ctx, audit.Event{
			LoginID: outcome.Identifier,
			Outcome: audit.OutcomeFailed,
			Reason:  outcome.Identifier,
		})
		return
	}

	report.Succeeded++
	if outcome.Merged {
		report.Merged++
		if outcome.DisabledMismatch {
			report.DisabledMismatch = append(report.DisabledMismatch, outcome.Identifier)
		}
	}
	if r.metrics != nil {
		r.metrics.UsersMigrated.Inc()
	}
	r.emit(ctx, audit.Event{LoginID: outcome.Identifier, Outcome: audit.OutcomeMigrated})

	if report.Succeeded%progressInterval == 0 {
		r.logger.Info("still working", "migrated", report.Succeeded)
	}
}

func (r *Runner) emit(ctx context.Context, event audit.Event) {
	event.RunID = r.runID
	if err := r.audit.Emit(ctx, event); err != nil {
		r.logger.Warn("audit emit failed", "login_id", event.LoginID, "error", err)
	}
}
