package services

import (
	"context"
	"strings"

	"github.com/Kyy487/ruangcerita/logger"
	"github.com/Kyy487/ruangcerita/models"
)

// UserSession manages the display name a user picks before chatting.
// Each browser session has its own key; an empty session id uses the bare
// user_chat_name key.
type UserSession struct {
	substrate Substrate
	notifier  Notifier
	origin    string
}

func NewUserSession(substrate Substrate, notifier Notifier, origin string) *UserSession {
	return &UserSession{substrate: substrate, notifier: notifier, origin: origin}
}

func DisplayNameKeyFor(sessionID string) string {
	if sessionID == "" {
		return DisplayNameKey
	}
	return DisplayNameKey + ":" + sessionID
}

// DisplayName returns ok=false while no name has been chosen.
func (u *UserSession) DisplayName(ctx context.Context, sessionID string) (string, bool, error) {
	name, ok, err := u.substrate.Get(ctx, DisplayNameKeyFor(sessionID))
	if err != nil || !ok || strings.TrimSpace(name) == "" {
		return "", false, err
	}
	return name, true, nil
}

// SetDisplayName stores name verbatim. A blank name is ignored.
func (u *UserSession) SetDisplayName(ctx context.Context, sessionID, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, nil
	}
	key := DisplayNameKeyFor(sessionID)
	old, err := u.substrate.Set(ctx, key, name)
	if err != nil {
		return false, err
	}
	u.publish(ctx, key, name, old)
	return true, nil
}

// ClearDisplayName forgets the name so the user has to pick a new one.
func (u *UserSession) ClearDisplayName(ctx context.Context, sessionID string) error {
	key := DisplayNameKeyFor(sessionID)
	old, err := u.substrate.Remove(ctx, key)
	if err != nil {
		return err
	}
	u.publish(ctx, key, "", old)
	return nil
}

// Submit appends text under the session's display name. It fails with
// ErrDisplayNameRequired until a name has been set.
func (u *UserSession) Submit(ctx context.Context, store *ChatStore, sessionID, text string) (*models.Message, error) {
	name, ok, err := u.DisplayName(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDisplayNameRequired
	}
	return store.Append(ctx, name, text)
}

func (u *UserSession) publish(ctx context.Context, key, value, old string) {
	if u.notifier == nil {
		return
	}
	err := u.notifier.Publish(ctx, ChangeEvent{Key: key, NewValue: value, OldValue: old, Origin: u.origin})
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Str("origin", u.origin).Msg("display name change not published")
	}
}
