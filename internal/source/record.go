package source

import "exodus/internal/identity"

// Record adapts the provider's raw key/value user document to the narrow
// identity.SourceRecord view. Unknown or mistyped fields read as zero
// values; the provider owns the document for the duration of a run.
type Record map[string]any

var _ identity.SourceRecord = Record{}

func (r Record) Email() string       { return r.str("email") }
func (r Record) Phone() string       { return r.str("phoneNumber") }
func (r Record) DisplayName() string { return r.str("displayName") }
func (r Record) GivenName() string   { return r.str("givenName") }
func (r Record) FamilyName() string  { return r.str("familyName") }
func (r Record) PhotoURL() string    { return r.str("photoUrl") }
func (r Record) PasswordHash() string { return r.str("passwordHash") }
func (r Record) Salt() string        { return r.str("salt") }
func (r Record) LocalID() string     { return r.str("localId") }

func (r Record) EmailVerified() bool { return r.boolean("emailVerified") }
func (r Record) PhoneVerified() bool { return r.boolean("phoneVerified") }
func (r Record) Disabled() bool      { return r.boolean("disabled") }

func (r Record) str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func (r Record) boolean(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}
