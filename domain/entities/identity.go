package entities

import (
	"errors"
	"time"
)

// AccountKind represents the kind of account behind an identity
type AccountKind string

const (
	AccountKindGuest      AccountKind = "guest"
	AccountKindRegistered AccountKind = "registered"
)

// Identity represents the authenticated (or guest) user of the client
type Identity struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email,omitempty"`
	Kind        AccountKind `json:"kind"`
	Verified    bool        `json:"verified"`
	// Local marks a guest that was synthesized on-device because the backend
	// guest-creation call failed. A local guest has no server-side record.
	Local     bool      `json:"local,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsGuest reports whether the identity is an unregistered guest
func (i *Identity) IsGuest() bool {
	return i.Kind == AccountKindGuest
}

// Validate validates the identity data
func (i *Identity) Validate() error {
	if i.ID == "" {
		return errors.New("identity id is required")
	}

	switch i.Kind {
	case AccountKindGuest:
		if i.Email != "" {
			return errors.New("guest identity must not carry an email")
		}
	case AccountKindRegistered:
		if i.Email == "" {
			return errors.New("registered identity requires an email")
		}
		if i.Local {
			return errors.New("registered identity cannot be local-only")
		}
	default:
		return errors.New("invalid account kind")
	}

	return nil
}
