// Package account keeps a local copy of the signed-in account and applies changes to
// it optimistically while the provider confirms them.
package account

import (
	"time"

	"github.com/jrsteele09/notes-auth-client/provider"
)

// Flag is one of the account status toggles.
type Flag = provider.StatusFlag

const (
	FlagAccountExpired     = provider.FlagAccountExpired
	FlagAccountLocked      = provider.FlagAccountLocked
	FlagAccountEnabled     = provider.FlagAccountEnabled
	FlagCredentialsExpired = provider.FlagCredentialsExpired
)

// Flags lists every toggle.
var Flags = []Flag{FlagAccountExpired, FlagAccountLocked, FlagAccountEnabled, FlagCredentialsExpired}

// Record is the account as shown to the user. Status flags are stated positively
// ("locked"), the way the toggles are labelled.
type Record struct {
	ID                    int64
	Username              string
	Email                 string
	Roles                 []string
	AccountExpired        bool
	AccountLocked         bool
	Enabled               bool
	CredentialsExpired    bool
	TwoFactorEnabled      bool
	AccountExpiryDate     time.Time
	CredentialsExpiryDate time.Time
}

// RecordFromProvider converts the provider's account view.
func RecordFromProvider(rec *provider.AccountRecord) Record {
	return Record{
		ID:                    rec.ID,
		Username:              rec.Username,
		Email:                 rec.Email,
		Roles:                 append([]string(nil), rec.Roles...),
		AccountExpired:        !rec.AccountNonExpired,
		AccountLocked:         !rec.AccountNonLocked,
		Enabled:               rec.Enabled,
		CredentialsExpired:    !rec.CredentialsNonExpired,
		TwoFactorEnabled:      rec.TwoFactorEnabled,
		AccountExpiryDate:     rec.AccountExpiryDate.Time,
		CredentialsExpiryDate: rec.CredentialsExpiryDate.Time,
	}
}

// Flag returns the value of a status toggle.
func (r Record) Flag(flag Flag) bool {
	switch flag {
	case FlagAccountExpired:
		return r.AccountExpired
	case FlagAccountLocked:
		return r.AccountLocked
	case FlagAccountEnabled:
		return r.Enabled
	case FlagCredentialsExpired:
		return r.CredentialsExpired
	}
	return false
}

func (r *Record) setFlag(flag Flag, value bool) {
	switch flag {
	case FlagAccountExpired:
		r.AccountExpired = value
	case FlagAccountLocked:
		r.AccountLocked = value
	case FlagAccountEnabled:
		r.Enabled = value
	case FlagCredentialsExpired:
		r.CredentialsExpired = value
	}
}

func (r Record) clone() Record {
	r.Roles = append([]string(nil), r.Roles...)
	return r
}
