package app

import (
	"context"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Krusherk/ritquiz/internal/domain"
	"github.com/Krusherk/ritquiz/internal/identity"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// ResolveOutcome is the result of resolving an external identity: either an
// application user, or a signal that a username must be chosen first.
type ResolveOutcome struct {
	User          domain.User
	NeedsUsername bool
}

// ProfileService maps external identities to application users, enforces
// unique usernames and assigns roles.
type ProfileService struct {
	users  UserRepository
	admins identity.AdminPolicy
	now    func() time.Time
	log    *logrus.Logger
}

func NewProfileService(users UserRepository, admins identity.AdminPolicy, log *logrus.Logger) *ProfileService {
	return &ProfileService{users: users, admins: admins, now: time.Now, log: log}
}

// NewProfileServiceWithClock is test-only for deterministic timestamps.
func NewProfileServiceWithClock(users UserRepository, admins identity.AdminPolicy, log *logrus.Logger, now func() time.Time) *ProfileService {
	s := NewProfileService(users, admins, log)
	s.now = now
	return s
}

// Resolve looks up the user for an external identity. A missing record means
// the identity needs to claim a username before it is usable elsewhere.
// Avatar refresh and admin promotion are lazy background syncs: their
// failures are logged, never surfaced, and never block the resolve.
func (s *ProfileService) Resolve(ctx context.Context, id identity.Identity) (ResolveOutcome, error) {
	user, err := s.users.Get(ctx, id.ID)
	if err == domain.ErrUserNotFound {
		return ResolveOutcome{NeedsUsername: true}, nil
	}
	if err != nil {
		return ResolveOutcome{}, err
	}

	if s.admins.IsAdmin(id) && user.Role != domain.RoleAdmin {
		promoted := user
		promoted.Role = domain.RoleAdmin
		promoted.UpdatedAt = s.now()
		if err := s.users.Update(ctx, promoted); err != nil {
			s.log.WithError(err).WithField("user", user.ID).Warn("admin promotion failed")
		} else {
			user = promoted
		}
	}

	if avatar := id.AvatarURL(); avatar != "" && avatar != user.AvatarURL {
		refreshed := user
		refreshed.AvatarURL = avatar
		refreshed.UpdatedAt = s.now()
		if err := s.users.Update(ctx, refreshed); err != nil {
			s.log.WithError(err).WithField("user", user.ID).Warn("avatar sync failed")
		} else {
			user = refreshed
		}
	}

	return ResolveOutcome{User: user}, nil
}

// UsernameAvailable reports whether a well-formed username is still
// unclaimed. The check is advisory for the claim form; Claim's atomic
// reservation remains the only arbiter.
func (s *ProfileService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if !usernamePattern.MatchString(username) {
		return false, domain.ErrInvalidUsername
	}
	exists, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Claim reserves the desired username and creates the user record. The
// reservation and the record are written as one atomic unit by the
// repository, so given two concurrent claims for the same lowercased
// username at most one succeeds.
func (s *ProfileService) Claim(ctx context.Context, id identity.Identity, desiredUsername string) (domain.User, error) {
	if !usernamePattern.MatchString(desiredUsername) {
		return domain.User{}, domain.ErrInvalidUsername
	}

	role := domain.RolePlayer
	if s.admins.IsAdmin(id) {
		role = domain.RoleAdmin
	}

	displayName := id.DisplayName()
	if displayName == "" {
		displayName = desiredUsername
	}

	now := s.now()
	user := domain.User{
		ID:          id.ID,
		Username:    desiredUsername,
		DisplayName: displayName,
		Email:       id.Email(),
		AvatarURL:   id.AvatarURL(),
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GrantRole looks up a user by email and updates their role. Returns
// ErrUserNotFound when no user has that email.
func (s *ProfileService) GrantRole(ctx context.Context, email string, role domain.Role) (domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	user.Role = role
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// RevokeHost demotes a host back to player. Admins are never demoted here.
func (s *ProfileService) RevokeHost(ctx context.Context, email string) (domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if user.Role != domain.RoleHost {
		return user, nil
	}
	return s.GrantRole(ctx, email, domain.RolePlayer)
}
