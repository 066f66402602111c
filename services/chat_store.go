package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Kyy487/ruangcerita/logger"
	"github.com/Kyy487/ruangcerita/models"
	"github.com/google/uuid"
)

type WritePolicy string

const (
	// PolicyLastWriteWins overwrites the document with the in-memory
	// collection. A context that has not yet reloaded erases whatever
	// another context wrote in between.
	PolicyLastWriteWins WritePolicy = "last_write_wins"
	// PolicyOptimistic re-reads the document with its version, replays the
	// operation on it and writes with compare-and-set, retrying on conflict.
	PolicyOptimistic WritePolicy = "optimistic"
)

// DefaultReplyFrom names the admin when a reply carries no author.
const DefaultReplyFrom = "Admin"

type StoreOptions struct {
	// Origin identifies the context; a random one is generated when empty.
	Origin     string
	Policy     WritePolicy
	MaxRetries int
	Now        func() time.Time
}

// ChatStore is one context's handle on the chat_messages document. It is the
// only writer of that key.
type ChatStore struct {
	mu         sync.Mutex
	substrate  Substrate
	versioned  VersionedSubstrate
	notifier   Notifier
	origin     string
	policy     WritePolicy
	maxRetries int
	now        func() time.Time
	clock      *IDClock
	messages   []models.Message
}

// NewChatStore builds a store over substrate. notifier may be nil, in which
// case no other context learns about this store's writes.
func NewChatStore(substrate Substrate, notifier Notifier, opts StoreOptions) (*ChatStore, error) {
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyLastWriteWins
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &ChatStore{
		substrate:  substrate,
		notifier:   notifier,
		origin:     opts.Origin,
		policy:     opts.Policy,
		maxRetries: opts.MaxRetries,
		now:        opts.Now,
		clock:      NewIDClock(opts.Now),
		messages:   []models.Message{},
	}

	switch opts.Policy {
	case PolicyLastWriteWins:
	case PolicyOptimistic:
		versioned, ok := substrate.(VersionedSubstrate)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedPolicy, opts.Policy)
		}
		s.versioned = versioned
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPolicy, opts.Policy)
	}
	return s, nil
}

func (s *ChatStore) Origin() string {
	return s.origin
}

func (s *ChatStore) Policy() WritePolicy {
	return s.policy
}

// Load reads the persisted collection. A missing key or a malformed document
// yields an empty collection; only substrate failures are returned as errors.
func (s *ChatStore) Load(ctx context.Context) ([]models.Message, error) {
	raw, _, err := s.substrate.Get(ctx, MessagesKey)
	if err != nil {
		return []models.Message{}, err
	}
	return decodeMessages(raw), nil
}

// Reload replaces the in-memory collection with the persisted one. The read
// and the swap happen under the same lock as writes, so a reload never
// resurrects a document older than this store's own last write.
func (s *ChatStore) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.Load(ctx)
	if err != nil {
		return err
	}
	s.replace(msgs)
	return nil
}

// Messages returns a copy of the in-memory collection.
func (s *ChatStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.messages)
}

// Append stores a new unread message. Blank usernames or texts are ignored
// and yield a nil message.
func (s *ChatStore) Append(ctx context.Context, username, text string) (*models.Message, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var created models.Message
	changed, err := s.apply(ctx, func(msgs []models.Message) ([]models.Message, bool) {
		id, at := s.clock.Next()
		if highest := maxID(msgs); id <= highest {
			id = highest + 1
			s.clock.Observe(id)
		}
		created = models.Message{
			ID:        id,
			Sender:    models.SenderUser,
			Username:  username,
			Text:      text,
			Timestamp: models.NewISOTime(at),
			Read:      false,
		}
		return append(msgs, created), true
	})
	if err != nil || !changed {
		return nil, err
	}
	return &created, nil
}

// Reply attaches the admin answer to message id and marks it read. Unknown
// ids, blank texts and already answered messages leave the store unchanged.
func (s *ChatStore) Reply(ctx context.Context, id int64, text, from string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	if strings.TrimSpace(from) == "" {
		from = DefaultReplyFrom
	}

	return s.apply(ctx, func(msgs []models.Message) ([]models.Message, bool) {
		for i := range msgs {
			if msgs[i].ID != id {
				continue
			}
			if msgs[i].Reply != nil {
				return msgs, false
			}
			msgs[i].Reply = &models.Reply{
				Text:      text,
				From:      from,
				Timestamp: models.NewISOTime(s.now()),
			}
			msgs[i].Read = true
			return msgs, true
		}
		return msgs, false
	})
}

// Delete removes message id together with its reply.
func (s *ChatStore) Delete(ctx context.Context, id int64) (bool, error) {
	return s.apply(ctx, func(msgs []models.Message) ([]models.Message, bool) {
		for i := range msgs {
			if msgs[i].ID == id {
				return append(msgs[:i], msgs[i+1:]...), true
			}
		}
		return msgs, false
	})
}

// Watch reloads the store whenever another context rewrites chat_messages
// and then calls onChange, if set, with the fresh collection.
func (s *ChatStore) Watch(onChange func([]models.Message)) *Subscription {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Subscribe(MessagesKey, s.origin, func(ChangeEvent) {
		if err := s.Reload(context.Background()); err != nil {
			logger.Error().Err(err).Str("origin", s.origin).Msg("failed to reload messages")
			return
		}
		if onChange != nil {
			onChange(s.Messages())
		}
	})
}

type mutation func([]models.Message) ([]models.Message, bool)

func (s *ChatStore) apply(ctx context.Context, m mutation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy == PolicyOptimistic {
		return s.applyOptimistic(ctx, m)
	}

	next, changed := m(cloneMessages(s.messages))
	if !changed {
		return false, nil
	}
	raw, err := encodeMessages(next)
	if err != nil {
		return false, err
	}
	old, err := s.substrate.Set(ctx, MessagesKey, raw)
	if err != nil {
		return false, err
	}
	storeWrites.WithLabelValues(MessagesKey, string(s.policy)).Inc()
	s.replace(next)
	s.publish(ctx, raw, old)
	return true, nil
}

func (s *ChatStore) applyOptimistic(ctx context.Context, m mutation) (bool, error) {
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		raw, version, err := s.versioned.GetVersioned(ctx, MessagesKey)
		if err != nil {
			return false, err
		}
		current := decodeMessages(raw)
		next, changed := m(cloneMessages(current))
		if !changed {
			s.replace(current)
			return false, nil
		}
		encoded, err := encodeMessages(next)
		if err != nil {
			return false, err
		}
		_, old, err := s.versioned.CompareAndSet(ctx, MessagesKey, version, encoded)
		if errors.Is(err, ErrVersionConflict) {
			writeConflicts.WithLabelValues(MessagesKey).Inc()
			logger.Debug().Str("origin", s.origin).Int("attempt", attempt).Msg("version conflict, replaying")
			continue
		}
		if err != nil {
			return false, err
		}
		storeWrites.WithLabelValues(MessagesKey, string(s.policy)).Inc()
		s.replace(next)
		s.publish(ctx, encoded, old)
		return true, nil
	}
	return false, ErrWriteConflict
}

// replace must be called with s.mu held.
func (s *ChatStore) replace(msgs []models.Message) {
	s.messages = msgs
	if highest := maxID(msgs); highest > 0 {
		s.clock.Observe(highest)
	}
}

func (s *ChatStore) publish(ctx context.Context, raw, old string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, ChangeEvent{
		Key:      MessagesKey,
		NewValue: raw,
		OldValue: old,
		Origin:   s.origin,
	})
	if err != nil {
		logger.Warn().Err(err).Str("origin", s.origin).Msg("change notification not published")
	}
}

func decodeMessages(raw string) []models.Message {
	if raw == "" {
		return []models.Message{}
	}
	var msgs []models.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		logger.Warn().Err(err).Str("key", MessagesKey).Msg("malformed document, starting empty")
		return []models.Message{}
	}
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}

func encodeMessages(msgs []models.Message) (string, error) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("failed to encode messages: %w", err)
	}
	return string(data), nil
}

func cloneMessages(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

func maxID(msgs []models.Message) int64 {
	var highest int64
	for _, m := range msgs {
		if m.ID > highest {
			highest = m.ID
		}
	}
	return highest
}
