package chat

import (
	"context"
	"fmt"

	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

// Identity is the verified caller as asserted by the identity provider.
type Identity struct {
	Subject    string
	Name       string
	Email      string
	PictureURL string
}

// Profile is the public view of a user.
type Profile struct {
	UserID     string
	ExternalID string
	Name       string
	ImageURL   string
}

func profileOf(u *store.User) Profile {
	if u == nil {
		return Profile{Name: UnknownUserName}
	}
	name := u.Name
	if name == "" {
		name = UnknownUserName
	}
	return Profile{UserID: u.ID, ExternalID: u.ExternalID, Name: name, ImageURL: u.ImageURL}
}

// User is a user record as returned to its owner or to a user listing.
type User struct {
	Profile
	Email      string
	LastSeenAt int64
	CreatedAt  int64
}

func userOf(u *store.User) User {
	return User{Profile: profileOf(u), Email: u.Email, LastSeenAt: u.LastSeenAt, CreatedAt: u.CreatedAt}
}

// ResolveOrCreateUser returns the internal user for id, creating it on first
// contact. An existing user's last-seen time is refreshed.
func (s *Service) ResolveOrCreateUser(ctx context.Context, id *Identity) (User, error) {
	u, created, err := s.lookupOrCreate(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !created {
		now := s.nowMs()
		if err := s.db.TouchUser(ctx, u.ID, now); err != nil {
			return User{}, fmt.Errorf("touch user: %w", err)
		}
		u.LastSeenAt = now
	}
	return userOf(u), nil
}

// Caller resolves id to its user, creating it on first contact, without
// refreshing last-seen.
func (s *Service) Caller(ctx context.Context, id *Identity) (User, error) {
	u, err := s.caller(ctx, id)
	if err != nil {
		return User{}, err
	}
	return userOf(u), nil
}

// Heartbeat refreshes the caller's last-seen time and returns it.
func (s *Service) Heartbeat(ctx context.Context, id *Identity) (int64, error) {
	u, err := s.caller(ctx, id)
	if err != nil {
		return 0, err
	}
	now := s.nowMs()
	if err := s.db.TouchUser(ctx, u.ID, now); err != nil {
		return 0, fmt.Errorf("touch user: %w", err)
	}
	return now, nil
}

// ListUsers returns every user other than the caller. A non-empty search
// keeps users whose name or email contains it, ignoring case.
func (s *Service) ListUsers(ctx context.Context, id *Identity, search string) ([]User, error) {
	u, err := s.caller(ctx, id)
	if err != nil {
		return nil, err
	}
	users, err := s.db.ListUsers(ctx, u.ID, search)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]User, 0, len(users))
	for i := range users {
		out = append(out, userOf(&users[i]))
	}
	return out, nil
}

// caller resolves the internal user behind id without touching last-seen.
func (s *Service) caller(ctx context.Context, id *Identity) (*store.User, error) {
	u, _, err := s.lookupOrCreate(ctx, id)
	return u, err
}

func (s *Service) lookupOrCreate(ctx context.Context, id *Identity) (*store.User, bool, error) {
	if id == nil || id.Subject == "" {
		return nil, false, ErrUnauthenticated
	}
	u, err := s.db.GetUserByExternalID(ctx, id.Subject)
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	if u != nil {
		return u, false, nil
	}

	now := s.nowMs()
	created, err := s.db.InsertUserIfAbsent(ctx, &store.User{
		ID:         newID(),
		ExternalID: id.Subject,
		Name:       id.Name,
		Email:      id.Email,
		ImageURL:   id.PictureURL,
		LastSeenAt: now,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert user: %w", err)
	}
	// Re-read: a concurrent first contact may have won the insert.
	u, err = s.db.GetUserByExternalID(ctx, id.Subject)
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, false, fmt.Errorf("user %q vanished after insert", id.Subject)
	}
	if created {
		s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("external_id", u.ExternalID))
	}
	return u, created, nil
}
