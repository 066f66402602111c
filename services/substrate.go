package services

import (
	"context"
	"errors"
)

const (
	// MessagesKey holds the JSON document with the whole message collection.
	MessagesKey = "chat_messages"
	// DisplayNameKey holds the plain display name chosen by the user.
	DisplayNameKey = "user_chat_name"
)

var (
	ErrVersionConflict     = errors.New("version conflict")
	ErrWriteConflict       = errors.New("write conflict: retries exhausted")
	ErrUnsupportedPolicy   = errors.New("write policy not supported by substrate")
	ErrDisplayNameRequired = errors.New("display name required")
)

// Substrate is the key-value persistence port shared by every context.
type Substrate interface {
	// Get returns ok=false when the key does not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set overwrites the key and returns the value it replaced.
	Set(ctx context.Context, key, value string) (old string, err error)
	Remove(ctx context.Context, key string) (old string, err error)
}

// VersionedSubstrate adds a per-key version counter for compare-and-set writes.
// A missing key has version 0.
type VersionedSubstrate interface {
	Substrate
	GetVersioned(ctx context.Context, key string) (value string, version int64, err error)
	// CompareAndSet writes only if the stored version still equals version,
	// otherwise it returns ErrVersionConflict.
	CompareAndSet(ctx context.Context, key string, version int64, value string) (newVersion int64, old string, err error)
}
