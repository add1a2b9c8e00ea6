package identity

import "strings"

// Identity is what the external identity provider yields for an
// authenticated session: a stable external ID plus linked accounts.
type Identity struct {
	ID             string          `json:"id"`
	LinkedAccounts []LinkedAccount `json:"linkedAccounts"`
}

// LinkedAccount is one provider-specific account attached to an identity.
// Which fields are populated depends on the provider.
type LinkedAccount struct {
	Provider    string `json:"type"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"name,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Email returns the identity's email with first-account-wins precedence.
func (id Identity) Email() string {
	for _, acc := range id.LinkedAccounts {
		if acc.Email != "" {
			return acc.Email
		}
	}
	return ""
}

// DisplayName scans linked accounts for a name, falling back to a username.
func (id Identity) DisplayName() string {
	for _, acc := range id.LinkedAccounts {
		if acc.DisplayName != "" {
			return acc.DisplayName
		}
	}
	for _, acc := range id.LinkedAccounts {
		if acc.Username != "" {
			return acc.Username
		}
	}
	return ""
}

// AvatarURL returns the first linked-account avatar, if any.
func (id Identity) AvatarURL() string {
	for _, acc := range id.LinkedAccounts {
		if acc.AvatarURL != "" {
			return acc.AvatarURL
		}
	}
	return ""
}

// Handles returns every provider username attached to the identity.
func (id Identity) Handles() []string {
	var handles []string
	for _, acc := range id.LinkedAccounts {
		if acc.Username != "" {
			handles = append(handles, acc.Username)
		}
	}
	return handles
}

// AdminPolicy decides whether an identity is admin-eligible. It is injected
// so the allow-list lives in configuration rather than in code.
type AdminPolicy interface {
	IsAdmin(id Identity) bool
}

// AllowList is an AdminPolicy matching on email addresses or provider
// handles, both case-insensitive.
type AllowList struct {
	emails  map[string]struct{}
	handles map[string]struct{}
}

// NewAllowList builds an AllowList from configured emails and handles.
func NewAllowList(emails, handles []string) *AllowList {
	l := &AllowList{
		emails:  make(map[string]struct{}, len(emails)),
		handles: make(map[string]struct{}, len(handles)),
	}
	for _, e := range emails {
		l.emails[strings.ToLower(e)] = struct{}{}
	}
	for _, h := range handles {
		l.handles[strings.ToLower(h)] = struct{}{}
	}
	return l
}

func (l *AllowList) IsAdmin(id Identity) bool {
	if email := id.Email(); email != "" {
		if _, ok := l.emails[strings.ToLower(email)]; ok {
			return true
		}
	}
	for _, h := range id.Handles() {
		if _, ok := l.handles[strings.ToLower(h)]; ok {
			return true
		}
	}
	return false
}
