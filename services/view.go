package services

import (
	"context"
	"sync"

	"github.com/Kyy487/ruangcerita/models"
)

type ViewRole string

const (
	RoleUser  ViewRole = "user"
	RoleAdmin ViewRole = "admin"
)

// ChatView is one live context (an open chat or moderation screen). It owns
// a private ChatStore that reloads whenever another context writes, and it
// re-projects the collection for its role after every reload.
//
// A view is acquired with OpenView and must be released with Close.
type ChatView struct {
	store *ChatStore
	sub   *Subscription

	mu       sync.Mutex
	role     ViewRole
	selector string
	onUpdate func(ViewState)
}

// OpenView mounts a view. selector is the admin conversation filter or the
// user's own display name. onUpdate is called from the notifier goroutine.
func OpenView(ctx context.Context, substrate Substrate, notifier Notifier, role ViewRole, selector string, onUpdate func(ViewState)) (*ChatView, error) {
	store, err := NewChatStore(substrate, notifier, StoreOptions{})
	if err != nil {
		return nil, err
	}
	if role == RoleAdmin && selector == "" {
		selector = FilterAll
	}
	v := &ChatView{
		store:    store,
		role:     role,
		selector: selector,
		onUpdate: onUpdate,
	}
	// Bind before the first load so a write in between is not missed.
	v.sub = store.Watch(v.emit)
	if err := store.Reload(ctx); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func (v *ChatView) ID() string {
	return v.store.Origin()
}

func (v *ChatView) project(msgs []models.Message) ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.role == RoleAdmin {
		return AdminProjection(msgs, v.selector)
	}
	return UserProjection(msgs, v.selector)
}

func (v *ChatView) emit(msgs []models.Message) {
	state := v.project(msgs)
	if v.onUpdate != nil {
		v.onUpdate(state)
	}
}

// State projects the view's current collection.
func (v *ChatView) State() ViewState {
	return v.project(v.store.Messages())
}

// Select changes the conversation filter (admin) or the display name (user).
func (v *ChatView) Select(selector string) ViewState {
	v.mu.Lock()
	if v.role == RoleAdmin && selector == "" {
		selector = FilterAll
	}
	v.selector = selector
	v.mu.Unlock()
	return v.State()
}

// Close releases the notifier binding.
func (v *ChatView) Close() {
	if v.sub != nil {
		v.sub.Close()
	}
}
