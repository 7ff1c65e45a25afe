// Package credential decides how each identity's credential material moves
// to the target platform.
package credential

import "exodus/internal/identity"

// PlaceholderCleartext is attached to anonymous accounts only because the
// target platform requires every account to carry some credential. It is a
// documented limitation, not a security mechanism: operators are expected to
// force a reset before such accounts are used interactively.
const PlaceholderCleartext = "Anon-Migrated-1!"

// Select picks exactly one of three mutually exclusive strategies:
//
//  1. a password hash on the record carries over with the run's hash params,
//  2. an anonymous record (no email, no phone) gets the placeholder,
//  3. everything else is created without a password.
func Select(record identity.SourceRecord, params identity.HashParams) identity.Credential {
	switch {
	case record.PasswordHash() != "":
		return identity.HashedPassword{
			Hash:   record.PasswordHash(),
			Salt:   record.Salt(),
			Params: params,
		}
	case record.Email() == "" && record.Phone() == "":
		return identity.PlaceholderPassword{Cleartext: PlaceholderCleartext}
	default:
		return nil
	}
}
