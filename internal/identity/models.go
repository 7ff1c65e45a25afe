// Package identity holds the canonical shapes flowing through the pipeline:
// the read-only view of a source user record, the canonical identity draft
// delivered to the target platform, and the credential variants.
package identity

// Well-known custom attribute names every migrated identity may reference.
// Both are registered with the target schema before any user is processed.
const (
	AttrFreshlyMigrated = "freshlyMigrated"
	AttrSourceUserID    = "sourceUserId"
)

// SourceRecord is the narrow read-only view of one user record from the
// source provider. Keeping it an interface means the normalizer never sees
// provider-internal representation details.
type SourceRecord interface {
	Email() string
	Phone() string
	DisplayName() string
	GivenName() string
	FamilyName() string
	PhotoURL() string
	EmailVerified() bool
	PhoneVerified() bool
	Disabled() bool
	PasswordHash() string
	Salt() string
	LocalID() string
}

// HashParams are the key-derivation parameters the target platform needs to
// verify imported password hashes. Loaded once per run from a local file.
type HashParams struct {
	Algorithm     string `json:"algorithm"`
	SignerKey     string `json:"signer_key"`
	SaltSeparator string `json:"salt_separator"`
	Rounds        int    `json:"rounds"`
	MemCost       int    `json:"mem_cost"`
}

// Identity is the canonical draft created once per source record and consumed
// immediately by the credential selector and the target client. It is never
// persisted.
type Identity struct {
	LoginID          string
	Email            string
	Phone            string
	DisplayName      string
	GivenName        string
	FamilyName       string
	Picture          string
	VerifiedEmail    bool
	VerifiedPhone    bool
	CustomAttributes map[string]any
	Disabled         bool
	Credential       Credential
}

// Credential is the tagged variant attached to an identity. A nil Credential
// means the identity is created without a password. The marker method keeps
// the set closed so a new strategy cannot be added without touching every
// type switch over it.
type Credential interface {
	isCredential()
}

// HashedPassword carries a pre-computed password hash plus the run-wide
// derivation parameters. Opaque to this pipeline; interpreted by the target
// platform's import-compatible hashing scheme.
type HashedPassword struct {
	Hash   string
	Salt   string
	Params HashParams
}

func (HashedPassword) isCredential() {}

// PlaceholderPassword satisfies a target-system requirement that every
// account carry some credential. This is a documented limitation for
// anonymous accounts, not a security mechanism.
type PlaceholderPassword struct {
	Cleartext string
}

func (PlaceholderPassword) isCredential() {}
